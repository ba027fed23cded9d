package model

import "testing"

func TestSelectRowsCopiesInOrder(t *testing.T) {
	tbl := MustTable(
		NewNumericColumn("A", 1, 2, 3),
		NewTextColumn("B", "x", "y", "z"),
	)
	sel := tbl.SelectRows([]int{2, 0})
	if sel.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", sel.Len())
	}
	b, _ := sel.Column("B")
	if b.Cells[0].Text != "z" || b.Cells[1].Text != "x" {
		t.Fatalf("unexpected rows: %+v", b.Cells)
	}
	b.Cells[0] = Text("changed")
	orig, _ := tbl.Column("B")
	if orig.Cells[2].Text != "z" {
		t.Fatalf("selection must not alias the source table")
	}
}

func TestAddColumnRejectsLengthMismatch(t *testing.T) {
	tbl := MustTable(NewNumericColumn("A", 1, 2))
	if err := tbl.AddColumn(NewTextColumn("B", "x")); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if err := tbl.AddColumn(NewTextColumn("A", "x", "y")); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestFromRecordsPadsAndDedupesHeaders(t *testing.T) {
	tbl := FromRecords([]string{"a", "a", ""}, [][]string{{"1", "2"}, {"3", "4", "5"}})
	names := tbl.Names()
	if names[0] != "a" || names[1] != "a.1" || names[2] != "column_3" {
		t.Fatalf("unexpected names: %v", names)
	}
	c, _ := tbl.Column("column_3")
	if !c.Cells[0].IsNull() || c.Cells[1].Text != "5" {
		t.Fatalf("unexpected padding: %+v", c.Cells)
	}
}

func TestCellRendering(t *testing.T) {
	if Number(3).String() != "3" || Number(2.5).String() != "2.5" {
		t.Fatalf("unexpected number rendering")
	}
	if Null().String() != "" {
		t.Fatalf("null must render empty")
	}
	if !Null().IsNull() || Text("").IsNull() {
		t.Fatalf("unexpected null detection")
	}
}

func TestParseNumberGrammar(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{" 42 ", 42, true},
		{"-1.5e3", -1500, true},
		{".5", 0.5, true},
		{"inf", 0, false},
		{"NaN", 0, false},
		{"0x10", 0, false},
		{"1_000", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseNumber(%q) = %v, %v; expected %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
