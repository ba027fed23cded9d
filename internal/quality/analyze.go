package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/tabwise/internal/model"
)

const maxExamples = 3

// Options tunes the heuristic detectors.
type Options struct {
	IQRMultiplier float64
	AbbrevMaxLen  int
}

// DefaultOptions returns the standard detector settings.
func DefaultOptions() Options {
	return Options{IQRMultiplier: 1.5, AbbrevMaxLen: 3}
}

// Example is a sample value, or a group of variants for capitalization issues.
type Example struct {
	Value    string
	Variants []string
}

// String implements fmt.Stringer.
func (e Example) String() string {
	if len(e.Variants) > 0 {
		quoted := make([]string, len(e.Variants))
		for i, v := range e.Variants {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	return fmt.Sprintf("%q", e.Value)
}

// Suggestion proposes one correction for the analyzed column.
type Suggestion struct {
	Kind        Kind
	Description string
	Count       int
	Examples    []Example
}

// Stats summarizes the non-null values of a column.
type Stats struct {
	Total      int
	Unique     int
	MeanLength float64
	MaxLength  int
	MinLength  int
}

// Result is the outcome of analyzing one column.
type Result struct {
	Problems    []string
	Suggestions []Suggestion
	Stats       Stats
}

// Suggested reports whether the result proposes the given kind.
func (r Result) Suggested(kind Kind) bool {
	for _, s := range r.Suggestions {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Analyze inspects a text column for the known anomaly categories. A column
// without non-null cells yields an empty Result whatever its inferred type.
func Analyze(col *model.Column, opts Options) (Result, error) {
	if col == nil {
		return Result{}, ErrInvalidColumnType
	}
	values := make([]string, 0, len(col.Cells))
	for _, cell := range col.Cells {
		if !cell.IsNull() {
			values = append(values, cell.String())
		}
	}
	var res Result
	if len(values) == 0 {
		return res, nil
	}
	if col.Type != model.TextType {
		return Result{}, ErrInvalidColumnType
	}
	if opts.IQRMultiplier <= 0 {
		opts.IQRMultiplier = DefaultOptions().IQRMultiplier
	}
	if opts.AbbrevMaxLen <= 0 {
		opts.AbbrevMaxLen = DefaultOptions().AbbrevMaxLen
	}
	res.Stats = computeStats(values)

	res.addMatches(TrimSpaces, "values with leading or trailing spaces", values, hasOuterSpace)
	res.addMatches(FixMultipleSpaces, "values with consecutive whitespace", values, hasMultipleSpaces)
	res.addCapitalization(values)
	res.addMatches(RemoveDuplicateWords, "values with consecutive duplicate words", values, hasDuplicateWord)
	res.addMatches(CleanSpecialChars, "values with unusual special characters", values, hasSpecialChar)
	low, high := lengthBounds(values, opts.IQRMultiplier)
	res.addMatches(ReviewLengthOutliers, "values with atypical length", values, func(v string) bool {
		n := float64(utf8.RuneCountInString(v))
		return n < low || n > high
	})
	res.addMatches(StandardizeAbbreviations, "values with possible abbreviations", values, func(v string) bool {
		return hasAbbreviation(v, opts.AbbrevMaxLen)
	})
	return res, nil
}

func (r *Result) addMatches(kind Kind, label string, values []string, match func(string) bool) {
	count := 0
	var examples []Example
	for _, v := range values {
		if !match(v) {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, Example{Value: v})
		}
	}
	if count == 0 {
		return
	}
	r.Problems = append(r.Problems, fmt.Sprintf("%d %s", count, label))
	r.Suggestions = append(r.Suggestions, Suggestion{
		Kind:        kind,
		Description: kind.Description(),
		Count:       count,
		Examples:    examples,
	})
}

func (r *Result) addCapitalization(values []string) {
	groups := capitalizationGroups(values)
	if len(groups) == 0 {
		return
	}
	total := 0
	examples := make([]Example, 0, maxExamples)
	for _, g := range groups {
		total += len(g)
		if len(examples) < maxExamples {
			examples = append(examples, Example{Variants: g})
		}
	}
	r.Problems = append(r.Problems, fmt.Sprintf("%d groups with inconsistent capitalization", len(groups)))
	r.Suggestions = append(r.Suggestions, Suggestion{
		Kind:        FixCapitalization,
		Description: FixCapitalization.Description(),
		Count:       total,
		Examples:    examples,
	})
}

func computeStats(values []string) Stats {
	seen := make(map[string]struct{}, len(values))
	st := Stats{Total: len(values), MinLength: math.MaxInt}
	sum := 0
	for _, v := range values {
		seen[v] = struct{}{}
		n := utf8.RuneCountInString(v)
		sum += n
		if n > st.MaxLength {
			st.MaxLength = n
		}
		if n < st.MinLength {
			st.MinLength = n
		}
	}
	st.Unique = len(seen)
	st.MeanLength = float64(sum) / float64(len(values))
	return st
}

func hasOuterSpace(v string) bool {
	return strings.TrimSpace(v) != v
}

func hasMultipleSpaces(v string) bool {
	prevSpace := false
	for _, r := range v {
		space := unicode.IsSpace(r)
		if space && prevSpace {
			return true
		}
		prevSpace = space
	}
	return false
}

// capitalizationGroups groups values that differ only by case, in order of
// first appearance. Only groups with at least two surface forms are returned.
// Inner whitespace is part of the identity; outer spaces are not.
func capitalizationGroups(values []string) [][]string {
	index := map[string]int{}
	var groups [][]string
	seen := map[string]struct{}{}
	for _, v := range values {
		form := strings.TrimSpace(v)
		if form == "" {
			continue
		}
		if _, ok := seen[form]; ok {
			continue
		}
		seen[form] = struct{}{}
		key := strings.ToLower(form)
		idx, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, []string{form})
			continue
		}
		groups[idx] = append(groups[idx], form)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

func hasDuplicateWord(v string) bool {
	runes := []rune(v)
	spans := wordSpans(runes)
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		gap := runes[prev.end:cur.start]
		if len(gap) == 0 || !allSpace(gap) {
			continue
		}
		if strings.EqualFold(string(runes[prev.start:prev.end]), string(runes[cur.start:cur.end])) {
			return true
		}
	}
	return false
}

func allSpace(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func hasSpecialChar(v string) bool {
	for _, r := range v {
		if !isAllowedRune(r) {
			return true
		}
	}
	return false
}

func hasAbbreviation(v string, maxLen int) bool {
	runes := []rune(v)
	for _, span := range wordSpans(runes) {
		n := span.end - span.start
		if n < 1 || n > maxLen {
			continue
		}
		if span.end < len(runes) && runes[span.end] == '.' {
			return true
		}
	}
	return false
}

// lengthBounds returns the IQR fences over rune lengths.
func lengthBounds(values []string, k float64) (low, high float64) {
	lengths := make([]float64, len(values))
	for i, v := range values {
		lengths[i] = float64(utf8.RuneCountInString(v))
	}
	sort.Float64s(lengths)
	q1 := quantile(lengths, 0.25)
	q3 := quantile(lengths, 0.75)
	iqr := q3 - q1
	low = math.Max(1, q1-k*iqr)
	high = q3 + k*iqr
	return low, high
}

// quantile uses linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
