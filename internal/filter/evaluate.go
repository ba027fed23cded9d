package filter

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/verte-zerg/tabwise/internal/model"
)

// SkippedSpec records a spec that contributed nothing to the evaluation.
type SkippedSpec struct {
	Index int
	Spec  Spec
	Err   error
}

// Result is the kept/removed partition of a table.
type Result struct {
	Kept    *model.Table
	Removed *model.Table
	Skipped []SkippedSpec
}

// Evaluate partitions t by the active specs of set. Specs that fail to
// compile are skipped and reported. With no usable spec every row is kept.
func Evaluate(t *model.Table, set Set) Result {
	if t == nil {
		t = &model.Table{}
	}
	var (
		masks   [][]bool
		skipped []SkippedSpec
	)
	for i, spec := range set.Specs {
		if !spec.Active {
			continue
		}
		mask, err := rowMask(t, spec)
		if err != nil {
			skipped = append(skipped, SkippedSpec{Index: i, Spec: spec, Err: err})
			continue
		}
		masks = append(masks, mask)
	}

	n := t.Len()
	if len(masks) == 0 {
		return Result{Kept: t.Clone(), Removed: t.Empty(), Skipped: skipped}
	}
	kept := make([]int, 0, n)
	removed := make([]int, 0, n)
	for r := 0; r < n; r++ {
		if combine(masks, r, set.Logic) {
			kept = append(kept, r)
		} else {
			removed = append(removed, r)
		}
	}
	return Result{Kept: t.SelectRows(kept), Removed: t.SelectRows(removed), Skipped: skipped}
}

func combine(masks [][]bool, row int, logic Logic) bool {
	if logic == Or {
		for _, m := range masks {
			if m[row] {
				return true
			}
		}
		return false
	}
	for _, m := range masks {
		if !m[row] {
			return false
		}
	}
	return true
}

func rowMask(t *model.Table, spec Spec) ([]bool, error) {
	col, ok := t.Column(spec.Column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchColumn, spec.Column)
	}
	match, err := compile(spec.Predicate)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(col.Cells))
	for i, cell := range col.Cells {
		mask[i] = match(cell) != spec.Invert
	}
	return mask, nil
}

// Matcher reports whether a single cell satisfies a predicate.
type Matcher func(model.Cell) bool

// Compile turns a predicate into a cell matcher.
func Compile(p Predicate) (Matcher, error) {
	return compile(p)
}

func compile(p Predicate) (Matcher, error) {
	switch p := p.(type) {
	case TextPredicate:
		return compileText(p)
	case NumericPredicate:
		return compileNumeric(p)
	case NullPredicate:
		return compileNull(p)
	case nil:
		return nil, fmt.Errorf("%w: missing predicate", ErrUnknownOp)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOp, p)
	}
}

func compileText(p TextPredicate) (Matcher, error) {
	needle := strings.ToLower(p.Value)
	switch p.Op {
	case Contains:
		return func(c model.Cell) bool {
			return strings.Contains(strings.ToLower(c.String()), needle)
		}, nil
	case NotContains:
		return func(c model.Cell) bool {
			return !strings.Contains(strings.ToLower(c.String()), needle)
		}, nil
	case Equal:
		return func(c model.Cell) bool {
			return strings.EqualFold(c.String(), p.Value)
		}, nil
	case NotEqual:
		return func(c model.Cell) bool {
			return !strings.EqualFold(c.String(), p.Value)
		}, nil
	case StartsWith:
		return func(c model.Cell) bool {
			return !c.IsNull() && strings.HasPrefix(c.String(), p.Value)
		}, nil
	case EndsWith:
		return func(c model.Cell) bool {
			return !c.IsNull() && strings.HasSuffix(c.String(), p.Value)
		}, nil
	case Regex:
		re, err := regexp.Compile(`(?i)^(?:` + p.Value + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilterPattern, err)
		}
		return func(c model.Cell) bool {
			return !c.IsNull() && re.MatchString(c.String())
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, p.Op)
	}
}

func compileNumeric(p NumericPredicate) (Matcher, error) {
	want, ok := model.ParseNumber(p.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilterValue, p.Value)
	}
	var cmp func(float64) bool
	switch p.Op {
	case NumEqual:
		cmp = func(v float64) bool { return v == want }
	case NumNotEqual:
		cmp = func(v float64) bool { return v != want }
	case GreaterThan:
		cmp = func(v float64) bool { return v > want }
	case LessThan:
		cmp = func(v float64) bool { return v < want }
	case GreaterOrEqual:
		cmp = func(v float64) bool { return v >= want }
	case LessOrEqual:
		cmp = func(v float64) bool { return v <= want }
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, p.Op)
	}
	return func(c model.Cell) bool {
		v, ok := c.Float()
		if !ok {
			// Null and non-numeric text compare like NaN.
			v = math.NaN()
		}
		return cmp(v)
	}, nil
}

func compileNull(p NullPredicate) (Matcher, error) {
	switch p.Op {
	case IsNull:
		return model.Cell.IsNull, nil
	case IsNotNull:
		return func(c model.Cell) bool { return !c.IsNull() }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, p.Op)
	}
}

// SpecCounts evaluates every spec of set on its own and returns the number of
// rows each would keep. Inactive or skipped specs report -1.
func SpecCounts(t *model.Table, set Set) []int {
	counts := make([]int, len(set.Specs))
	for i, spec := range set.Specs {
		counts[i] = -1
		if !spec.Active {
			continue
		}
		mask, err := rowMask(t, spec)
		if err != nil {
			continue
		}
		n := 0
		for _, keep := range mask {
			if keep {
				n++
			}
		}
		counts[i] = n
	}
	return counts
}
