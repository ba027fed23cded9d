package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/quality"
)

// analysis binds a result to the table generation it was computed from.
type analysis struct {
	table  string
	column string
	gen    uint64
	result quality.Result
}

func (s *Session) column(table, column string) (*model.Table, *model.Column, error) {
	t, err := s.get(table)
	if err != nil {
		return nil, nil, err
	}
	col, ok := t.Column(column)
	if !ok {
		return nil, nil, fmt.Errorf("table %q has no column %q", table, column)
	}
	return t, col, nil
}

// Analyze runs the quality detectors on a text column and remembers the result.
func (s *Session) Analyze(table, column string) (quality.Result, error) {
	_, col, err := s.column(table, column)
	if err != nil {
		return quality.Result{}, err
	}
	res, err := quality.Analyze(col, s.quality)
	if err != nil {
		return quality.Result{}, fmt.Errorf("analyze %s.%s: %w", table, column, err)
	}
	s.analysis = &analysis{table: table, column: column, gen: s.gens[table], result: res}
	s.logger.Debug("column analyzed",
		zap.String("table", table),
		zap.String("column", column),
		zap.Int("suggestions", len(res.Suggestions)))
	return res, nil
}

// Analysis returns the remembered result for the column. It fails with
// ErrStaleAnalysis once the table has changed.
func (s *Session) Analysis(table, column string) (quality.Result, error) {
	a := s.analysis
	if a == nil || a.table != table || a.column != column {
		return quality.Result{}, fmt.Errorf("%w: %s.%s", ErrNoAnalysis, table, column)
	}
	if _, err := s.get(table); err != nil {
		return quality.Result{}, err
	}
	if s.gens[table] != a.gen {
		return quality.Result{}, fmt.Errorf("%w: %s.%s", ErrStaleAnalysis, table, column)
	}
	return a.result, nil
}

// PreviewCorrection shows which cells a correction would change, without
// applying it. A limit of zero or less lists every change.
func (s *Session) PreviewCorrection(table, column string, kind quality.Kind, limit int) ([]quality.Change, error) {
	_, col, err := s.column(table, column)
	if err != nil {
		return nil, err
	}
	if col.Type != model.TextType {
		return nil, quality.ErrInvalidColumnType
	}
	fixed, err := quality.Apply(col, kind)
	if err != nil {
		return nil, err
	}
	return quality.Preview(col, fixed, limit), nil
}

// ApplyCorrection applies one correction to a text column. Affected counts
// the changed cells.
func (s *Session) ApplyCorrection(ctx context.Context, table, column string, kind quality.Kind) (Outcome, error) {
	t, col, err := s.column(table, column)
	if err != nil {
		return Outcome{}, err
	}
	if col.Type != model.TextType {
		return Outcome{}, quality.ErrInvalidColumnType
	}
	fixed, err := quality.Apply(col, kind)
	if err != nil {
		return Outcome{}, err
	}
	return s.installColumn(ctx, table, t, col, fixed)
}

// ApplyAllCorrections chains every correction suggested by the current
// analysis of the column.
func (s *Session) ApplyAllCorrections(ctx context.Context, table, column string) (Outcome, []quality.Kind, error) {
	res, err := s.Analysis(table, column)
	if err != nil {
		return Outcome{}, nil, err
	}
	t, col, err := s.column(table, column)
	if err != nil {
		return Outcome{}, nil, err
	}
	fixed, applied, err := quality.ApplyAll(col, res.Suggestions)
	if err != nil {
		return Outcome{}, nil, err
	}
	out, err := s.installColumn(ctx, table, t, col, fixed)
	if err != nil {
		return Outcome{}, nil, err
	}
	return out, applied, nil
}

func (s *Session) installColumn(ctx context.Context, table string, t *model.Table, before, after *model.Column) (Outcome, error) {
	changed := len(quality.Preview(before, after, 0))
	next := t.Clone()
	if err := next.SetColumn(after); err != nil {
		return Outcome{}, err
	}
	out, err := s.replace(ctx, table, next, changed)
	if err != nil {
		return Outcome{}, err
	}
	s.logger.Info("correction applied",
		zap.String("table", table),
		zap.String("column", after.Name),
		zap.Int("changed", changed))
	return out, nil
}
