// Package normalize canonicalizes empty and placeholder values and infers column types.
package normalize

import (
	"strings"

	"github.com/verte-zerg/tabwise/internal/model"
)

var placeholderSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(model.Placeholders))
	for _, p := range model.Placeholders {
		set[p] = struct{}{}
	}
	return set
}()

// IsPlaceholder reports whether s, once trimmed, means "no value".
func IsPlaceholder(s string) bool {
	_, ok := placeholderSet[strings.TrimSpace(s)]
	return ok
}

// Normalize returns a copy of t with placeholders replaced by null and every
// column tagged Numeric or Text.
//
// Placeholder elimination runs before type inference so that tokens like "-"
// or "N/A" never block a numeric column.
func Normalize(t *model.Table) *model.Table {
	if t == nil {
		return &model.Table{}
	}
	out := &model.Table{Columns: make([]*model.Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = Column(col)
	}
	return out
}

// Column normalizes a single column.
func Column(col *model.Column) *model.Column {
	cells := make([]model.Cell, len(col.Cells))
	for i, cell := range col.Cells {
		cells[i] = nullify(cell)
	}
	typ := inferType(cells)
	return &model.Column{Name: col.Name, Type: typ, Cells: retype(cells, typ)}
}

func nullify(cell model.Cell) model.Cell {
	switch cell.Kind {
	case model.CellText:
		if IsPlaceholder(cell.Text) {
			return model.Null()
		}
		return model.Text(strings.TrimSpace(cell.Text))
	default:
		return cell
	}
}

func inferType(cells []model.Cell) model.ColumnType {
	for _, cell := range cells {
		if cell.IsNull() {
			continue
		}
		if _, ok := cell.Float(); !ok {
			return model.TextType
		}
	}
	return model.NumericType
}

func retype(cells []model.Cell, typ model.ColumnType) []model.Cell {
	if typ == model.NumericType {
		for i, cell := range cells {
			if cell.IsNull() {
				continue
			}
			v, _ := cell.Float()
			cells[i] = model.Number(v)
		}
		return cells
	}
	for i, cell := range cells {
		if cell.Kind == model.CellNumber {
			cells[i] = model.Text(cell.String())
		}
	}
	return cells
}
