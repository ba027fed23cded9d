package session

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/filter"
	"github.com/verte-zerg/tabwise/internal/join"
	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/quality"
	"github.com/verte-zerg/tabwise/internal/store"
	"github.com/verte-zerg/tabwise/internal/transform"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tabwise.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return New(st, zap.NewNop(), Options{AutoSave: true})
}

func companies() *model.Table {
	return model.MustTable(
		model.NewTextColumn("company", " Acme ", "ACME", "acme Corp", "acme  corp"),
		model.NewTextColumn("revenue", "10", "N/A", "30", "40"),
	)
}

func mustAdd(t *testing.T, s *Session, name string, tbl *model.Table) {
	t.Helper()
	if _, err := s.AddTable(context.Background(), name, tbl); err != nil {
		t.Fatalf("add table: %v", err)
	}
}

func TestAddTableNormalizes(t *testing.T) {
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())
	tbl, err := s.Table("c")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	rev, _ := tbl.Column("revenue")
	if rev.Type != model.NumericType || !rev.Cells[1].IsNull() {
		t.Fatalf("expected normalized numeric revenue, got %+v", rev)
	}
	company, _ := tbl.Column("company")
	if company.Cells[0].Text != "Acme" {
		t.Fatalf("expected trimmed value, got %q", company.Cells[0].Text)
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())
	before, _ := s.Table("c")

	if err := s.Backup("c"); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if _, err := s.DropColumns(ctx, "c", []string{"revenue"}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := s.Restore(ctx, "c"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	after, _ := s.Table("c")
	if !after.Equal(before) {
		t.Fatalf("restore did not bring back the original table")
	}
}

func TestBackupErrors(t *testing.T) {
	s := newTestSession(t)
	if err := s.Backup("missing"); !errors.Is(err, ErrNoSuchTable) {
		t.Fatalf("expected ErrNoSuchTable, got %v", err)
	}
	mustAdd(t, s, "c", companies())
	if _, err := s.Restore(context.Background(), "c"); !errors.Is(err, ErrNoBackupAvailable) {
		t.Fatalf("expected ErrNoBackupAvailable, got %v", err)
	}
}

func TestBackupKeepsOneGeneration(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())
	if _, err := s.DropColumns(ctx, "c", []string{"revenue"}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	afterFirst, _ := s.Table("c")
	if _, err := s.DropEmptyRows(ctx, "c"); err != nil {
		t.Fatalf("drop empty: %v", err)
	}
	if _, err := s.Restore(ctx, "c"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := s.Table("c")
	if !got.Equal(afterFirst) {
		t.Fatalf("restore should return the state before the last mutation only")
	}
}

func TestAnalyzeAndApplyScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	// Bypass import trimming so the raw scenario values reach the analyzer.
	s.set("raw", model.MustTable(model.NewTextColumn("company", " Acme ", "ACME", "acme Corp", "acme  corp")))

	res, err := s.Analyze("raw", "company")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !res.Suggested(quality.FixCapitalization) || !res.Suggested(quality.FixMultipleSpaces) {
		t.Fatalf("unexpected suggestions: %+v", res.Suggestions)
	}
	if _, err := s.Analysis("raw", "company"); err != nil {
		t.Fatalf("fresh analysis rejected: %v", err)
	}

	changes, err := s.PreviewCorrection("raw", "company", quality.FixMultipleSpaces, 0)
	if err != nil || len(changes) != 1 || changes[0].After != "acme corp" {
		t.Fatalf("unexpected preview %+v err=%v", changes, err)
	}

	for _, kind := range []quality.Kind{quality.FixMultipleSpaces, quality.TrimSpaces, quality.FixCapitalization} {
		if _, err := s.ApplyCorrection(ctx, "raw", "company", kind); err != nil {
			t.Fatalf("apply %s: %v", kind, err)
		}
	}
	tbl, _ := s.Table("raw")
	col, _ := tbl.Column("company")
	if !reflect.DeepEqual(col.Strings(), []string{"Acme", "Acme", "Acme Corp", "Acme Corp"}) {
		t.Fatalf("unexpected corrected values %v", col.Strings())
	}
	if _, err := s.Analysis("raw", "company"); !errors.Is(err, ErrStaleAnalysis) {
		t.Fatalf("expected ErrStaleAnalysis, got %v", err)
	}
	if _, _, err := s.ApplyAllCorrections(ctx, "raw", "company"); !errors.Is(err, ErrStaleAnalysis) {
		t.Fatalf("apply all on stale analysis: expected ErrStaleAnalysis, got %v", err)
	}
}

func TestApplyAllCorrections(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	s.set("raw", model.MustTable(model.NewTextColumn("name", "the the cat", "Dr. who")))
	if _, err := s.Analyze("raw", "name"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	out, applied, err := s.ApplyAllCorrections(ctx, "raw", "name")
	if err != nil {
		t.Fatalf("apply all: %v", err)
	}
	if !reflect.DeepEqual(applied, []quality.Kind{quality.RemoveDuplicateWords, quality.StandardizeAbbreviations}) {
		t.Fatalf("unexpected applied kinds %v", applied)
	}
	if out.Affected != 1 {
		t.Fatalf("expected one changed cell, got %d", out.Affected)
	}
	if !s.HasBackup("raw") {
		t.Fatalf("apply all must take a backup")
	}
}

func TestAnalyzeNumericColumn(t *testing.T) {
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())
	if _, err := s.Analyze("c", "revenue"); !errors.Is(err, quality.ErrInvalidColumnType) {
		t.Fatalf("expected ErrInvalidColumnType, got %v", err)
	}
}

func TestAnalyzeAllNullColumn(t *testing.T) {
	s := newTestSession(t)
	mustAdd(t, s, "t", model.MustTable(model.NewTextColumn("name", "", "N/A", "-")))
	tbl, _ := s.Table("t")
	if col, _ := tbl.Column("name"); col.Type != model.NumericType {
		t.Fatalf("expected all-null column to infer numeric, got %s", col.Type)
	}
	res, err := s.Analyze("t", "name")
	if err != nil {
		t.Fatalf("analyze all-null column: %v", err)
	}
	if len(res.Suggestions) != 0 || res.Stats.Total != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestRemoveRows(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())
	set := filter.Set{Specs: []filter.Spec{
		{Column: "revenue", Predicate: filter.NumericPredicate{Op: filter.GreaterThan, Value: "15"}, Active: true},
	}}
	preview, err := s.PreviewFilter("c", set)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Kept.Len() != 2 || preview.Removed.Len() != 2 {
		t.Fatalf("unexpected preview %d/%d", preview.Kept.Len(), preview.Removed.Len())
	}
	out, _, err := s.RemoveRows(ctx, "c", set)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if out.Affected != 2 {
		t.Fatalf("expected 2 removed rows, got %d", out.Affected)
	}
	tbl, _ := s.Table("c")
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows left, got %d", tbl.Len())
	}
	if _, err := s.Restore(ctx, "c"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if tbl, _ := s.Table("c"); tbl.Len() != 4 {
		t.Fatalf("expected restore to bring back 4 rows, got %d", tbl.Len())
	}
}

func TestTransformsGoThroughBackups(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "c", companies())

	if _, err := s.HandleNulls(ctx, "c", "revenue", transform.FillMedian, ""); err != nil {
		t.Fatalf("nulls: %v", err)
	}
	if _, err := s.AddCalculatedColumn(ctx, "c", "double", transform.Sum, "revenue", "revenue", ""); err != nil {
		t.Fatalf("calc: %v", err)
	}
	if _, err := s.AddFormulaColumn(ctx, "c", "half", "revenue / 2"); err != nil {
		t.Fatalf("formula: %v", err)
	}
	if _, err := s.AddFormulaColumn(ctx, "c", "bad", "revenue +"); !errors.Is(err, transform.ErrInvalidFormula) {
		t.Fatalf("expected ErrInvalidFormula, got %v", err)
	}
	tbl, _ := s.Table("c")
	half, _ := tbl.Column("half")
	if !reflect.DeepEqual(half.Strings(), []string{"5", "15", "15", "20"}) {
		t.Fatalf("unexpected formula column %v", half.Strings())
	}
	if _, err := s.DropDuplicates(ctx, "c"); err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if _, err := s.Renormalize(ctx, "c"); err != nil {
		t.Fatalf("renormalize: %v", err)
	}
}

func TestRenameAndDeleteTable(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "a", companies())
	mustAdd(t, s, "b", companies())
	if _, err := s.RenameTable(ctx, "a", "b"); !errors.Is(err, ErrNameCollision) {
		t.Fatalf("expected ErrNameCollision, got %v", err)
	}
	if _, err := s.RenameTable(ctx, "a", "z"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if !reflect.DeepEqual(s.Names(), []string{"z", "b"}) {
		t.Fatalf("unexpected names %v", s.Names())
	}
	if _, err := s.DeleteTable(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Table("b"); !errors.Is(err, ErrNoSuchTable) {
		t.Fatalf("expected ErrNoSuchTable, got %v", err)
	}
}

func TestJoinIntoWorkingSet(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	mustAdd(t, s, "l", model.MustTable(model.NewTextColumn("id", "1", "2"), model.NewTextColumn("v", "a", "b")))
	mustAdd(t, s, "r", model.MustTable(model.NewTextColumn("id", "2"), model.NewTextColumn("w", "x")))
	out, err := s.Join(ctx, "l", "id", "r", "id", join.Left, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if out.Table != "l_r" || out.Affected != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
