package transform

import (
	"errors"
	"reflect"
	"testing"

	"github.com/verte-zerg/tabwise/internal/model"
)

func numCol(name string, values ...interface{}) *model.Column {
	cells := make([]model.Cell, len(values))
	for i, v := range values {
		if f, ok := v.(float64); ok {
			cells[i] = model.Number(f)
		}
	}
	return &model.Column{Name: name, Type: model.NumericType, Cells: cells}
}

func TestDropColumns(t *testing.T) {
	tbl := model.MustTable(numCol("a", 1.0), model.NewTextColumn("b", "x"), model.NewTextColumn("c", "y"))
	out, err := DropColumns(tbl, []string{"a", "c"})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if !reflect.DeepEqual(out.Names(), []string{"b"}) || tbl.Width() != 3 {
		t.Fatalf("unexpected columns %v (source width %d)", out.Names(), tbl.Width())
	}
	if _, err := DropColumns(tbl, []string{"zzz"}); !errors.Is(err, ErrNoSuchColumn) {
		t.Fatalf("expected ErrNoSuchColumn, got %v", err)
	}
}

func TestDropDuplicatesAndEmptyRows(t *testing.T) {
	tbl := model.MustTable(
		numCol("n", 1.0, 1.0, nil, 2.0, nil),
		&model.Column{Name: "s", Type: model.TextType, Cells: []model.Cell{
			model.Text("a"), model.Text("a"), model.Null(), model.Text("1"), model.Null(),
		}},
	)
	dedup, removed := DropDuplicates(tbl)
	if removed != 2 || dedup.Len() != 3 {
		t.Fatalf("expected 2 duplicates removed, got %d (len %d)", removed, dedup.Len())
	}
	clean, empty := DropEmptyRows(tbl)
	if empty != 2 || clean.Len() != 3 {
		t.Fatalf("expected 2 empty rows removed, got %d (len %d)", empty, clean.Len())
	}
}

func TestDropDuplicatesDistinguishesKinds(t *testing.T) {
	tbl := model.MustTable(&model.Column{Name: "v", Type: model.TextType, Cells: []model.Cell{
		model.Text("1"), model.Number(1), model.Text(""), model.Null(),
	}})
	if _, removed := DropDuplicates(tbl); removed != 0 {
		t.Fatalf("cells of different kinds must not collide, removed %d", removed)
	}
}

func TestHandleNulls(t *testing.T) {
	tbl := model.MustTable(
		numCol("n", 1.0, nil, 3.0, 10.0, nil),
		model.NewTextColumn("k", "a", "b", "c", "d", "e"),
	)
	cases := []struct {
		strategy Strategy
		fill     string
		want     []string
	}{
		{FillMean, "", []string{"1", "4.666666666666667", "3", "10", "4.666666666666667"}},
		{FillMedian, "", []string{"1", "3", "3", "10", "3"}},
		{FillValue, "0", []string{"1", "0", "3", "10", "0"}},
		{FillMode, "", []string{"1", "1", "3", "10", "1"}},
	}
	for _, tc := range cases {
		out, n, err := HandleNulls(tbl, "n", tc.strategy, tc.fill)
		if err != nil {
			t.Fatalf("%s: %v", tc.strategy, err)
		}
		col, _ := out.Column("n")
		if n != 2 || !reflect.DeepEqual(col.Strings(), tc.want) || col.Type != model.NumericType {
			t.Fatalf("%s: got %v (n=%d type=%s)", tc.strategy, col.Strings(), n, col.Type)
		}
	}

	out, n, err := HandleNulls(tbl, "n", DropRows, "")
	if err != nil || n != 2 || out.Len() != 3 {
		t.Fatalf("drop rows: len=%d n=%d err=%v", out.Len(), n, err)
	}
	if orig, _ := tbl.Column("n"); !orig.Cells[1].IsNull() {
		t.Fatalf("source table must not change")
	}
}

func TestHandleNullsErrors(t *testing.T) {
	tbl := model.MustTable(numCol("n", nil, nil), &model.Column{Name: "s", Type: model.TextType, Cells: []model.Cell{model.Null(), model.Text("x")}})
	if _, _, err := HandleNulls(tbl, "s", FillMean, ""); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if _, _, err := HandleNulls(tbl, "n", FillMedian, ""); !errors.Is(err, ErrNoValues) {
		t.Fatalf("expected ErrNoValues, got %v", err)
	}
	if _, _, err := HandleNulls(tbl, "s", FillValue, ""); !errors.Is(err, ErrEmptyFill) {
		t.Fatalf("expected ErrEmptyFill, got %v", err)
	}
	out, _, err := HandleNulls(tbl, "n", FillValue, "unknown")
	if err != nil {
		t.Fatalf("fill text: %v", err)
	}
	if col, _ := out.Column("n"); col.Type != model.TextType || col.Cells[0].Text != "unknown" {
		t.Fatalf("expected text column after text fill, got %+v", col)
	}
}

func TestAddCalculated(t *testing.T) {
	tbl := model.MustTable(numCol("a", 6.0, 1.0, nil), numCol("b", 3.0, 0.0, 2.0), model.NewTextColumn("s", "x", "y", "z"))
	cases := []struct {
		op   Op
		want []string
	}{
		{Sum, []string{"9", "1", ""}},
		{Subtract, []string{"3", "1", ""}},
		{Multiply, []string{"18", "0", ""}},
		{Divide, []string{"2", "", ""}},
	}
	for _, tc := range cases {
		out, err := AddCalculated(tbl, "r", tc.op, "a", "b", "")
		if err != nil {
			t.Fatalf("%s: %v", tc.op, err)
		}
		col, _ := out.Column("r")
		if !reflect.DeepEqual(col.Strings(), tc.want) {
			t.Fatalf("%s: got %v want %v", tc.op, col.Strings(), tc.want)
		}
	}

	out, err := AddCalculated(tbl, "joined", Concat, "s", "a", "-")
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	col, _ := out.Column("joined")
	if !reflect.DeepEqual(col.Strings(), []string{"x-6", "y-1", "z-"}) || col.Type != model.TextType {
		t.Fatalf("unexpected concat: %v", col.Strings())
	}

	if _, err := AddCalculated(tbl, "r", Sum, "a", "s", ""); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("expected ErrNotNumeric, got %v", err)
	}
	if _, err := AddCalculated(tbl, "a", Sum, "a", "b", ""); !errors.Is(err, ErrColumnExists) {
		t.Fatalf("expected ErrColumnExists, got %v", err)
	}
}

func TestAddFormula(t *testing.T) {
	tbl := model.MustTable(
		numCol("price", 2.0, 3.5, nil),
		numCol("unit count", 3.0, 2.0, 1.0),
		model.NewTextColumn("name", "a", "b", "c"),
	)
	out, failed, err := AddFormula(tbl, "total", `price * col("unit count") + 1`)
	if err != nil {
		t.Fatalf("formula: %v", err)
	}
	col, _ := out.Column("total")
	if failed != 1 || col.Type != model.NumericType || !reflect.DeepEqual(col.Strings(), []string{"7", "8", ""}) {
		t.Fatalf("unexpected result %v (failed %d, type %s)", col.Strings(), failed, col.Type)
	}

	out, _, err = AddFormula(tbl, "label", `name + "!"`)
	if err != nil {
		t.Fatalf("formula: %v", err)
	}
	if col, _ := out.Column("label"); col.Type != model.TextType || col.Cells[0].Text != "a!" {
		t.Fatalf("unexpected label column %+v", col)
	}
}

func TestAddFormulaRejectsInvalid(t *testing.T) {
	tbl := model.MustTable(numCol("a", 1.0))
	for _, src := range []string{"", "a +", "missing * 2", `os.Exit(1)`} {
		if _, _, err := AddFormula(tbl, "x", src); !errors.Is(err, ErrInvalidFormula) {
			t.Fatalf("%q: expected ErrInvalidFormula, got %v", src, err)
		}
	}
}

func TestParsers(t *testing.T) {
	if s, err := ParseStrategy("Median"); err != nil || s != FillMedian {
		t.Fatalf("unexpected strategy %v %v", s, err)
	}
	if op, err := ParseOp("/"); err != nil || op != Divide {
		t.Fatalf("unexpected op %v %v", op, err)
	}
	if _, err := ParseOp("pow"); err == nil {
		t.Fatalf("expected error")
	}
}
