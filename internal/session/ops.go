package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/filter"
	"github.com/verte-zerg/tabwise/internal/join"
	"github.com/verte-zerg/tabwise/internal/normalize"
	"github.com/verte-zerg/tabwise/internal/transform"
)

// PreviewFilter partitions a table without changing it.
func (s *Session) PreviewFilter(table string, set filter.Set) (filter.Result, error) {
	t, err := s.get(table)
	if err != nil {
		return filter.Result{}, err
	}
	return filter.Evaluate(t, set), nil
}

// RemoveRows keeps only the rows the filter set keeps. When nothing would be
// removed the table, and its backup, are left alone.
func (s *Session) RemoveRows(ctx context.Context, table string, set filter.Set) (Outcome, filter.Result, error) {
	res, err := s.PreviewFilter(table, set)
	if err != nil {
		return Outcome{}, filter.Result{}, err
	}
	for _, sk := range res.Skipped {
		s.logger.Warn("filter skipped", zap.String("table", table), zap.String("filter", sk.Spec.String()), zap.Error(sk.Err))
	}
	removed := res.Removed.Len()
	if removed == 0 {
		return Outcome{Table: table}, res, nil
	}
	out, err := s.replace(ctx, table, res.Kept, removed)
	if err != nil {
		return Outcome{}, filter.Result{}, err
	}
	s.logger.Info("rows removed", zap.String("table", table), zap.Int("removed", removed))
	return out, res, nil
}

// DropColumns removes the named columns from a table.
func (s *Session) DropColumns(ctx context.Context, table string, columns []string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, err := transform.DropColumns(t, columns)
	if err != nil {
		return Outcome{}, err
	}
	return s.replace(ctx, table, next, len(columns))
}

// HandleNulls drops or fills the nulls of one column.
func (s *Session) HandleNulls(ctx context.Context, table, column string, strategy transform.Strategy, fill string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, n, err := transform.HandleNulls(t, column, strategy, fill)
	if err != nil {
		return Outcome{}, err
	}
	return s.replace(ctx, table, next, n)
}

// AddCalculatedColumn derives a column from two others.
func (s *Session) AddCalculatedColumn(ctx context.Context, table, name string, op transform.Op, a, b, sep string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, err := transform.AddCalculated(t, name, op, a, b, sep)
	if err != nil {
		return Outcome{}, err
	}
	return s.replace(ctx, table, next, next.Len())
}

// AddFormulaColumn derives a column from a formula. Affected counts the rows
// whose evaluation failed and became null.
func (s *Session) AddFormulaColumn(ctx context.Context, table, name, formula string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, failed, err := transform.AddFormula(t, name, formula)
	if err != nil {
		return Outcome{}, err
	}
	if failed > 0 {
		s.logger.Warn("formula failed on some rows", zap.String("table", table), zap.String("column", name), zap.Int("rows", failed))
	}
	return s.replace(ctx, table, next, failed)
}

// DropDuplicates removes repeated rows, keeping the first occurrence.
func (s *Session) DropDuplicates(ctx context.Context, table string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, removed := transform.DropDuplicates(t)
	return s.replace(ctx, table, next, removed)
}

// DropEmptyRows removes rows where every cell is null.
func (s *Session) DropEmptyRows(ctx context.Context, table string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next, removed := transform.DropEmptyRows(t)
	return s.replace(ctx, table, next, removed)
}

// Renormalize reruns the null normalizer and type inference on a table.
func (s *Session) Renormalize(ctx context.Context, table string) (Outcome, error) {
	t, err := s.get(table)
	if err != nil {
		return Outcome{}, err
	}
	next := normalize.Normalize(t)
	changed := 0
	for i, col := range next.Columns {
		before := t.Columns[i]
		for r := range col.Cells {
			if !col.Cells[r].Equal(before.Cells[r]) {
				changed++
			}
		}
	}
	return s.replace(ctx, table, next, changed)
}

// Join stores the join of two tables under result. An existing result table
// is backed up and replaced.
func (s *Session) Join(ctx context.Context, left, leftKey, right, rightKey string, kind join.Kind, result string) (Outcome, error) {
	lt, err := s.get(left)
	if err != nil {
		return Outcome{}, err
	}
	rt, err := s.get(right)
	if err != nil {
		return Outcome{}, err
	}
	if result == "" {
		result = fmt.Sprintf("%s_%s", left, right)
	}
	joined, err := join.Join(lt, leftKey, rt, rightKey, kind)
	if err != nil {
		return Outcome{}, err
	}
	if _, exists := s.tables[result]; exists {
		return s.replace(ctx, result, joined, joined.Len())
	}
	s.set(result, joined)
	s.logger.Info("tables joined",
		zap.String("left", left),
		zap.String("right", right),
		zap.String("kind", kind.String()),
		zap.Int("rows", joined.Len()))
	return Outcome{Table: result, Affected: joined.Len(), Save: s.autoSaveHook(ctx)}, nil
}
