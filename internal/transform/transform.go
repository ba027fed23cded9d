// Package transform holds whole-table edits: dropping columns and rows,
// filling nulls and deriving new columns.
package transform

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tabwise/internal/model"
)

var (
	// ErrNoSuchColumn is returned when a named column is absent.
	ErrNoSuchColumn = errors.New("no such column")
	// ErrColumnExists is returned when a new column would shadow an existing one.
	ErrColumnExists = errors.New("column already exists")
	// ErrNotNumeric is returned when a numeric operation targets a text column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrNoValues is returned when a statistic has no non-null input.
	ErrNoValues = errors.New("column has no values")
	// ErrEmptyFill is returned by FillValue without a value.
	ErrEmptyFill = errors.New("fill value is empty")
)

func column(t *model.Table, name string) (*model.Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, name)
	}
	return col, nil
}

// DropColumns returns a copy of t without the named columns.
func DropColumns(t *model.Table, names []string) (*model.Table, error) {
	drop := map[string]bool{}
	for _, name := range names {
		if _, err := column(t, name); err != nil {
			return nil, err
		}
		drop[name] = true
	}
	out := &model.Table{}
	for _, col := range t.Columns {
		if drop[col.Name] {
			continue
		}
		out.Columns = append(out.Columns, col.Clone())
	}
	return out, nil
}

// DropDuplicates keeps the first occurrence of every distinct row.
// It returns the new table and the number of rows removed.
func DropDuplicates(t *model.Table) (*model.Table, int) {
	seen := map[string]struct{}{}
	keep := make([]int, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		key := rowKey(t.Row(r))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, r)
	}
	return t.SelectRows(keep), t.Len() - len(keep)
}

func rowKey(row []model.Cell) string {
	var b strings.Builder
	for _, cell := range row {
		switch cell.Kind {
		case model.CellNull:
			b.WriteString("n")
		case model.CellNumber:
			b.WriteString("f")
			if math.IsNaN(cell.Num) {
				b.WriteString("NaN")
			} else {
				b.WriteString(model.FormatNumber(cell.Num))
			}
		default:
			fmt.Fprintf(&b, "s%d:%s", len(cell.Text), cell.Text)
		}
		b.WriteByte(0)
	}
	return b.String()
}

// DropEmptyRows removes rows in which every cell is null.
func DropEmptyRows(t *model.Table) (*model.Table, int) {
	keep := make([]int, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		for _, cell := range t.Row(r) {
			if !cell.IsNull() {
				keep = append(keep, r)
				break
			}
		}
	}
	return t.SelectRows(keep), t.Len() - len(keep)
}

// Strategy chooses how HandleNulls treats the null cells of a column.
type Strategy uint8

const (
	DropRows Strategy = iota
	FillMean
	FillMedian
	FillValue
	FillMode
)

var strategyNames = []string{"drop", "mean", "median", "value", "mode"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// ParseStrategy accepts drop, mean, median, value or mode.
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range strategyNames {
		if name == s {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown null strategy %q", s)
}

// HandleNulls drops or fills the null cells of one column and reports how
// many cells were affected. Mean and median need a numeric column. A text
// fill value on a numeric column turns the column into text.
func HandleNulls(t *model.Table, name string, strategy Strategy, fill string) (*model.Table, int, error) {
	col, err := column(t, name)
	if err != nil {
		return nil, 0, err
	}
	nulls := col.NullCount()

	if strategy == DropRows {
		keep := make([]int, 0, t.Len())
		for r, cell := range col.Cells {
			if !cell.IsNull() {
				keep = append(keep, r)
			}
		}
		return t.SelectRows(keep), nulls, nil
	}

	var value model.Cell
	switch strategy {
	case FillMean, FillMedian:
		if col.Type != model.NumericType {
			return nil, 0, fmt.Errorf("%w: %q", ErrNotNumeric, name)
		}
		nums := numbers(col)
		if len(nums) == 0 {
			return nil, 0, fmt.Errorf("%w: %q", ErrNoValues, name)
		}
		if strategy == FillMean {
			value = model.Number(mean(nums))
		} else {
			value = model.Number(median(nums))
		}
	case FillValue:
		if fill == "" {
			return nil, 0, ErrEmptyFill
		}
		value = model.Text(fill)
		if col.Type == model.NumericType {
			if v, ok := model.ParseNumber(fill); ok {
				value = model.Number(v)
			}
		}
	case FillMode:
		var ok bool
		value, ok = mode(col)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrNoValues, name)
		}
	default:
		return nil, 0, fmt.Errorf("unknown null strategy %d", strategy)
	}

	out := t.Clone()
	filled := out.Columns[out.Index(name)]
	if filled.Type == model.NumericType && value.Kind == model.CellText {
		toText(filled)
	}
	for i, cell := range filled.Cells {
		if cell.IsNull() {
			filled.Cells[i] = value
		}
	}
	return out, nulls, nil
}

func toText(col *model.Column) {
	col.Type = model.TextType
	for i, cell := range col.Cells {
		if cell.Kind == model.CellNumber {
			col.Cells[i] = model.Text(cell.String())
		}
	}
}

func numbers(col *model.Column) []float64 {
	out := make([]float64, 0, len(col.Cells))
	for _, cell := range col.Cells {
		if v, ok := cell.Float(); ok {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// mode returns the most frequent non-null cell; ties go to the first seen.
func mode(col *model.Column) (model.Cell, bool) {
	counts := map[string]int{}
	first := map[string]model.Cell{}
	var order []string
	for _, cell := range col.Cells {
		if cell.IsNull() {
			continue
		}
		key := rowKey([]model.Cell{cell})
		if _, ok := first[key]; !ok {
			first[key] = cell
			order = append(order, key)
		}
		counts[key]++
	}
	if len(order) == 0 {
		return model.Cell{}, false
	}
	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return first[best], true
}
