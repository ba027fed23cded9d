// Package model defines shared data structures.
package model

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CellKind tags the value held by a Cell.
type CellKind uint8

const (
	// CellNull is the canonical "no value" marker. It is the zero value.
	CellNull CellKind = iota
	// CellNumber holds a float64.
	CellNumber
	// CellText holds a string.
	CellText
)

// Cell is a single typed table value.
type Cell struct {
	Kind CellKind
	Num  float64
	Text string
}

// Null returns the null cell.
func Null() Cell {
	return Cell{}
}

// Number returns a numeric cell.
func Number(v float64) Cell {
	return Cell{Kind: CellNumber, Num: v}
}

// Text returns a text cell.
func Text(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool {
	return c.Kind == CellNull
}

// String renders the cell as text. Null renders as the empty string.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return FormatNumber(c.Num)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Float returns the numeric value of the cell, parsing text when needed.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Num, true
	case CellText:
		return ParseNumber(c.Text)
	default:
		return 0, false
	}
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses s (after trimming) using the plain decimal/scientific
// grammar. Hex, underscores, "inf" and "nan" are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numberPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Equal compares two cells by kind and value. NaN equals NaN.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case CellNumber:
		if math.IsNaN(c.Num) && math.IsNaN(o.Num) {
			return true
		}
		return c.Num == o.Num
	case CellText:
		return c.Text == o.Text
	default:
		return true
	}
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ColumnType is the type tag of a column.
type ColumnType uint8

const (
	// TextType columns keep their values as strings.
	TextType ColumnType = iota
	// NumericType columns hold only numbers and nulls.
	NumericType
)

// String implements fmt.Stringer.
func (t ColumnType) String() string {
	if t == NumericType {
		return "numeric"
	}
	return "text"
}

// Placeholders lists the tokens treated as "no value" on import.
var Placeholders = []string{
	"", " ", "  ", "   ",
	"NULL", "null", "None", "none",
	"#N/A", "#REF!", "#VALUE!",
	"N/A", "n/a", "-",
}

// NamedTable pairs a dataset name with its table.
type NamedTable struct {
	Name  string
	Table *Table
}

// Project is a named collection of datasets persisted together.
type Project struct {
	ID          string
	Name        string
	Description string
	Datasets    []NamedTable
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// ProjectInfo summarizes a stored project for listings.
type ProjectInfo struct {
	ID           string
	Name         string
	Description  string
	DatasetCount int
	CreatedAt    time.Time
	ModifiedAt   time.Time
}

// Config holds the tunable settings shared by CLI and browser.
type Config struct {
	DBPath        string
	AutoSave      bool
	IQRMultiplier float64
	AbbrevMaxLen  int
	DisplayRows   int
	LogLevel      string
}
