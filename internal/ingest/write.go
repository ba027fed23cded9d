package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/verte-zerg/tabwise/internal/model"
)

const exportSheet = "Sheet1"

// WriteCSV writes t as comma-separated text with a header row. Nulls are empty.
func WriteCSV(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	for r := 0; r < t.Len(); r++ {
		row := t.Row(r)
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = cell.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes t to a single-sheet spreadsheet. Numbers stay numeric.
func WriteExcel(w io.Writer, t *model.Table) error {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			_ = cerr
		}
	}()

	header := make([]interface{}, t.Width())
	for i, name := range t.Names() {
		header[i] = name
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}
	for r := 0; r < t.Len(); r++ {
		row := t.Row(r)
		values := make([]interface{}, len(row))
		for i, cell := range row {
			switch cell.Kind {
			case model.CellNumber:
				values[i] = cell.Num
			case model.CellText:
				values[i] = cell.Text
			default:
				values[i] = nil
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, ref, &values); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// ExportFile writes t to path in the format named by its extension. The
// file is written to a temporary sibling and renamed into place.
func ExportFile(path string, t *model.Table) error {
	var write func(io.Writer, *model.Table) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		write = WriteCSV
	case ".xlsx":
		write = WriteExcel
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".export-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := write(writer, t); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
