package browse

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/session"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T) (*Model, *session.Session) {
	t.Helper()
	sess := session.New(nil, zap.NewNop(), session.Options{})
	people := model.MustTable(
		model.NewTextColumn("name", "Ann", "Bob  Lee", "Cy"),
		model.NewTextColumn("age", "25", "35", "45"),
	)
	if _, err := sess.AddTable(context.Background(), "people", people); err != nil {
		t.Fatalf("add table: %v", err)
	}
	m := NewModel(context.Background(), sess, "people", 0)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, sess
}

func rowCount(t *testing.T, sess *session.Session, name string) int {
	t.Helper()
	tbl, err := sess.Table(name)
	if err != nil {
		t.Fatalf("table %s: %v", name, err)
	}
	return tbl.Len()
}

func TestFilterPromptPreviewsAndApplies(t *testing.T) {
	m, sess := newTestModel(t)
	m.Update(runes("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode after /")
	}
	m.Update(runes("age gt 30"))
	if m.filterPreview != "Keeps 2 rows, removes 1" {
		t.Fatalf("unexpected preview %q (error %q)", m.filterPreview, m.filterError)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter mode to end after apply")
	}
	if got := rowCount(t, sess, "people"); got != 2 {
		t.Fatalf("expected 2 rows after filter, got %d", got)
	}
	if !strings.Contains(m.status, "Removed 1 rows") {
		t.Fatalf("unexpected status %q", m.status)
	}

	m.Update(runes("u"))
	if got := rowCount(t, sess, "people"); got != 3 {
		t.Fatalf("expected 3 rows after undo, got %d", got)
	}
}

func TestFilterPromptRejectsBadInput(t *testing.T) {
	m, sess := newTestModel(t)
	m.Update(runes("/"))
	m.Update(runes("age gt"))
	if m.filterError == "" {
		t.Fatalf("expected parse error for missing value")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode {
		t.Fatalf("expected to stay in filter mode on error")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("expected esc to cancel")
	}
	if got := rowCount(t, sess, "people"); got != 3 {
		t.Fatalf("expected table untouched, got %d rows", got)
	}
}

func TestColumnSelectionAndAnalysis(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(runes("a"))
	if m.activeTab != tabAnalysis {
		t.Fatalf("expected analysis tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.viewports[tabAnalysis].View(), "fix_multiple_spaces") {
		t.Fatalf("expected multiple-spaces suggestion in analysis view")
	}

	m.Update(runes("]"))
	if m.colIdx != 1 {
		t.Fatalf("expected column 1, got %d", m.colIdx)
	}
	m.Update(runes("a"))
	if m.errMsg == "" {
		t.Fatalf("expected error when analysing a numeric column")
	}
	m.Update(runes("]"))
	if m.colIdx != 0 {
		t.Fatalf("expected selection to wrap to 0, got %d", m.colIdx)
	}
	m.Update(runes("["))
	if m.colIdx != 1 {
		t.Fatalf("expected selection to wrap to 1, got %d", m.colIdx)
	}
}

func TestUndoWithoutBackup(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(runes("u"))
	if m.errMsg == "" {
		t.Fatalf("expected error when no backup exists")
	}
	if view := m.View(); !strings.Contains(view, m.errMsg) {
		t.Fatalf("expected error in footer")
	}
}

func TestDataTableData(t *testing.T) {
	tbl := model.MustTable(
		model.NewTextColumn("name", "a", "a much longer value than the column cap"),
		model.NewNumericColumn("n", 1, 2),
	)
	cols, rows := dataTableData(tbl, 1, 1)
	if len(cols) != 3 || len(rows) != 1 {
		t.Fatalf("expected 3 columns and 1 row, got %d and %d", len(cols), len(rows))
	}
	if cols[2].Title != selectedMarker+"n" {
		t.Fatalf("expected selected marker on n, got %q", cols[2].Title)
	}
	if cols[1].Width != 4 {
		t.Fatalf("expected width limited to shown rows, got %d", cols[1].Width)
	}
	_, rows = dataTableData(tbl, 0, 0)
	if len(rows) != 2 {
		t.Fatalf("expected all rows, got %d", len(rows))
	}
	cols, _ = dataTableData(tbl, 0, 0)
	if cols[1].Width != maxColumnWidth {
		t.Fatalf("expected capped width, got %d", cols[1].Width)
	}
	if cols, rows := dataTableData(nil, 0, 0); cols != nil || rows != nil {
		t.Fatalf("expected nothing for nil table")
	}
}

func TestEmptySessionView(t *testing.T) {
	sess := session.New(nil, zap.NewNop(), session.Options{})
	m := NewModel(context.Background(), sess, "", 0)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 10})
	if !strings.Contains(m.View(), "No tables loaded.") {
		t.Fatalf("expected empty hint in view")
	}
	m.Update(runes("/"))
	if m.filterMode {
		t.Fatalf("filter should not open without tables")
	}
}
