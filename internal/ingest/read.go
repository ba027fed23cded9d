// Package ingest decodes CSV, delimited text, spreadsheets and pasted text
// into normalized tables, and encodes tables back to CSV or spreadsheets.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/normalize"
)

// ErrUnsupportedFormat is returned for file extensions with no reader or writer.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Delimiters are tried in this order when sniffing delimited text.
var Delimiters = []rune{',', ';', '\t', '|'}

// SingleColumnName names the column produced when no structure is detected.
const SingleColumnName = "Data"

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ReadFile decodes path according to its extension.
func ReadFile(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".txt", ".tsv":
		return ReadDelimited(f)
	case ".xlsx", ".xlsm":
		return ReadExcel(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV reads comma-separated text with a header row. Input that is not
// valid UTF-8 is decoded as Latin-1.
func ReadCSV(r io.Reader) (*model.Table, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	return parseDelimited(text, ',')
}

// ReadDelimited reads text whose delimiter is sniffed from its content.
// Text without any known delimiter becomes a single column of lines.
func ReadDelimited(r io.Reader) (*model.Table, error) {
	text, err := readText(r)
	if err != nil {
		return nil, err
	}
	for _, d := range Delimiters {
		if strings.ContainsRune(text, d) {
			return parseDelimited(text, d)
		}
	}
	return singleColumn(nonEmptyLines(text)), nil
}

// ReadExcel reads the first sheet of a spreadsheet. The first row is the header.
func ReadExcel(r io.Reader) (*model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort cleanup of excelize temp files.
			_ = cerr
		}
	}()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &model.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(rows), nil
}

func readText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(decoded), nil
}

func parseDelimited(text string, delim rune) (*model.Table, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	return fromRecords(records), nil
}

func fromRecords(records [][]string) *model.Table {
	if len(records) == 0 {
		return &model.Table{}
	}
	return normalize.Normalize(model.FromRecords(records[0], records[1:]))
}

func singleColumn(lines []string) *model.Table {
	if len(lines) == 0 {
		return &model.Table{}
	}
	return normalize.Normalize(model.MustTable(model.NewTextColumn(SingleColumnName, lines...)))
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
