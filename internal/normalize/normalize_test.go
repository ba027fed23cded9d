package normalize

import (
	"testing"

	"github.com/verte-zerg/tabwise/internal/model"
)

func TestNormalizeInfersNumeric(t *testing.T) {
	tbl := model.MustTable(model.NewTextColumn("n", "1", "2", "3"))
	out := Normalize(tbl)
	col := out.Columns[0]
	if col.Type != model.NumericType {
		t.Fatalf("expected numeric column, got %s", col.Type)
	}
	for i, want := range []float64{1, 2, 3} {
		if col.Cells[i].Kind != model.CellNumber || col.Cells[i].Num != want {
			t.Fatalf("cell %d: expected %v, got %+v", i, want, col.Cells[i])
		}
	}
}

func TestNormalizeKeepsMixedAsText(t *testing.T) {
	tbl := model.MustTable(model.NewTextColumn("n", "1", "x", "3"))
	col := Normalize(tbl).Columns[0]
	if col.Type != model.TextType {
		t.Fatalf("expected text column, got %s", col.Type)
	}
	got := col.Strings()
	if got[0] != "1" || got[1] != "x" || got[2] != "3" {
		t.Fatalf("values changed: %v", got)
	}
	if col.Cells[0].Kind != model.CellText {
		t.Fatalf("expected text cell, got %+v", col.Cells[0])
	}
}

func TestNormalizeEliminatesPlaceholders(t *testing.T) {
	for _, token := range model.Placeholders {
		tbl := model.MustTable(model.NewTextColumn("c", token, " "+token+" ", "\t"+token))
		col := Normalize(tbl).Columns[0]
		for i, cell := range col.Cells {
			if !cell.IsNull() {
				t.Fatalf("token %q row %d: expected null, got %+v", token, i, cell)
			}
		}
	}
}

func TestNormalizePlaceholdersDoNotBlockNumeric(t *testing.T) {
	tbl := model.MustTable(model.NewTextColumn("price", "10", "N/A", " 2.5e1 ", "-", ""))
	col := Normalize(tbl).Columns[0]
	if col.Type != model.NumericType {
		t.Fatalf("expected numeric column, got %s", col.Type)
	}
	if col.NullCount() != 3 {
		t.Fatalf("expected 3 nulls, got %d", col.NullCount())
	}
	if col.Cells[2].Num != 25 {
		t.Fatalf("expected 25, got %v", col.Cells[2].Num)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	tbl := model.MustTable(
		model.NewTextColumn("a", " x ", "NULL", "y  z", "7"),
		model.NewTextColumn("b", "1", "2", "#N/A", "1e21"),
		model.NewTextColumn("c", "", " ", "none", "-"),
		&model.Column{Name: "d", Type: model.TextType, Cells: []model.Cell{model.Number(1), model.Text("a"), model.Null(), model.Text(" ")}},
	)
	once := Normalize(tbl)
	twice := Normalize(once)
	if !once.Equal(twice) {
		t.Fatalf("normalize is not idempotent")
	}
}

func TestNormalizeRejectsExoticNumbers(t *testing.T) {
	tbl := model.MustTable(model.NewTextColumn("c", "0x10", "inf", "1_000"))
	if Normalize(tbl).Columns[0].Type != model.TextType {
		t.Fatalf("expected text column for non-decimal numerals")
	}
}
