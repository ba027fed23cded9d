package model

import "fmt"

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Type  ColumnType
	Cells []Cell
}

// NewTextColumn builds a text column from raw strings. Strings are kept verbatim.
func NewTextColumn(name string, values ...string) *Column {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Text(v)
	}
	return &Column{Name: name, Type: TextType, Cells: cells}
}

// NewNumericColumn builds a numeric column.
func NewNumericColumn(name string, values ...float64) *Column {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Number(v)
	}
	return &Column{Name: name, Type: NumericType, Cells: cells}
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Type: c.Type, Cells: cells}
}

// Strings renders every cell; nulls become empty strings.
func (c *Column) Strings() []string {
	out := make([]string, len(c.Cells))
	for i, cell := range c.Cells {
		out[i] = cell.String()
	}
	return out
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, cell := range c.Cells {
		if cell.IsNull() {
			n++
		}
	}
	return n
}

// Table is an ordered set of equal-length columns.
type Table struct {
	Columns []*Column
}

// NewTable builds a table and checks that all columns have the same length.
func NewTable(cols ...*Column) (*Table, error) {
	t := &Table{}
	for _, col := range cols {
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustTable is NewTable that panics on error. Intended for literals and tests.
func MustTable(cols ...*Column) *Table {
	t, err := NewTable(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRecords builds a text table from a header and string rows.
// Short rows are padded with nulls; extra cells are dropped.
func FromRecords(headers []string, rows [][]string) *Table {
	t := &Table{Columns: make([]*Column, len(headers))}
	for i, h := range headers {
		cells := make([]Cell, len(rows))
		for r, row := range rows {
			if i < len(row) {
				cells[r] = Text(row[i])
			}
		}
		t.Columns[i] = &Column{Name: uniqueName(t.Columns[:i], h, i), Type: TextType, Cells: cells}
	}
	return t
}

func uniqueName(existing []*Column, name string, idx int) string {
	if name == "" {
		name = fmt.Sprintf("column_%d", idx+1)
	}
	candidate := name
	for n := 1; ; n++ {
		clash := false
		for _, col := range existing {
			if col.Name == candidate {
				clash = true
				break
			}
		}
		if !clash {
			return candidate
		}
		candidate = fmt.Sprintf("%s.%d", name, n)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	return t.Columns[idx], true
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, col := range t.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a column. Its length must match the table.
func (t *Table) AddColumn(col *Column) error {
	if t.Index(col.Name) >= 0 {
		return fmt.Errorf("duplicate column %q", col.Name)
	}
	if len(t.Columns) > 0 && len(col.Cells) != t.Len() {
		return fmt.Errorf("column %q has %d rows, table has %d", col.Name, len(col.Cells), t.Len())
	}
	t.Columns = append(t.Columns, col)
	return nil
}

// SetColumn replaces the named column in place, or appends it.
func (t *Table) SetColumn(col *Column) error {
	idx := t.Index(col.Name)
	if idx < 0 {
		return t.AddColumn(col)
	}
	if len(col.Cells) != t.Len() {
		return fmt.Errorf("column %q has %d rows, table has %d", col.Name, len(col.Cells), t.Len())
	}
	t.Columns[idx] = col
	return nil
}

// Row returns the cells of row i across all columns.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.Columns))
	for c, col := range t.Columns {
		row[c] = col.Cells[i]
	}
	return row
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, col := range t.Columns {
		out.Columns[i] = col.Clone()
	}
	return out
}

// Empty returns a zero-row table with the same schema.
func (t *Table) Empty() *Table {
	return t.SelectRows(nil)
}

// SelectRows copies the given rows, in the given order, into a new table.
func (t *Table) SelectRows(rows []int) *Table {
	out := &Table{Columns: make([]*Column, len(t.Columns))}
	for i, col := range t.Columns {
		cells := make([]Cell, len(rows))
		for j, r := range rows {
			cells[j] = col.Cells[r]
		}
		out.Columns[i] = &Column{Name: col.Name, Type: col.Type, Cells: cells}
	}
	return out
}

// Equal reports whether two tables have identical schema and cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	for i, col := range t.Columns {
		other := o.Columns[i]
		if col.Name != other.Name || col.Type != other.Type || len(col.Cells) != len(other.Cells) {
			return false
		}
		for r := range col.Cells {
			if !col.Cells[r].Equal(other.Cells[r]) {
				return false
			}
		}
	}
	return true
}
