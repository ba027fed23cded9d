// Package filter selects table rows with combinable column predicates.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFilterPattern is returned for a regex that does not compile.
	ErrInvalidFilterPattern = errors.New("invalid filter pattern")
	// ErrInvalidFilterValue is returned when a numeric predicate value does not parse.
	ErrInvalidFilterValue = errors.New("invalid filter value")
	// ErrNoSuchColumn is returned when a spec names a column the table lacks.
	ErrNoSuchColumn = errors.New("no such column")
	// ErrUnknownOp is returned by the parsers for an unrecognized operator word.
	ErrUnknownOp = errors.New("unknown filter operator")
)

// TextOp is a string comparison.
type TextOp uint8

const (
	Contains TextOp = iota
	NotContains
	Equal
	NotEqual
	StartsWith
	EndsWith
	Regex
)

// NumericOp is a numeric comparison.
type NumericOp uint8

const (
	NumEqual NumericOp = iota
	NumNotEqual
	GreaterThan
	LessThan
	GreaterOrEqual
	LessOrEqual
)

// NullOp tests for the null marker.
type NullOp uint8

const (
	IsNull NullOp = iota
	IsNotNull
)

// Predicate is one of TextPredicate, NumericPredicate or NullPredicate.
type Predicate interface {
	predicate()
	String() string
}

// TextPredicate compares the rendered cell with Value.
type TextPredicate struct {
	Op    TextOp
	Value string
}

// NumericPredicate compares the numeric cell value with Value, parsed as a number.
type NumericPredicate struct {
	Op    NumericOp
	Value string
}

// NullPredicate matches on nullness.
type NullPredicate struct {
	Op NullOp
}

func (TextPredicate) predicate()    {}
func (NumericPredicate) predicate() {}
func (NullPredicate) predicate()    {}

func (p TextPredicate) String() string    { return fmt.Sprintf("%s %q", p.Op, p.Value) }
func (p NumericPredicate) String() string { return fmt.Sprintf("%s %s", p.Op, p.Value) }
func (p NullPredicate) String() string    { return p.Op.String() }

// Spec applies a predicate to one column.
type Spec struct {
	Column    string
	Predicate Predicate
	Active    bool
	Invert    bool
}

// String renders the spec in the form accepted by ParseSpec.
func (s Spec) String() string {
	prefix := ""
	if s.Invert {
		prefix = "!"
	}
	if s.Predicate == nil {
		return s.Column
	}
	switch p := s.Predicate.(type) {
	case TextPredicate:
		return fmt.Sprintf("%s %s%s %s", s.Column, prefix, p.Op, p.Value)
	case NumericPredicate:
		return fmt.Sprintf("%s %s%s %s", s.Column, prefix, p.Op, p.Value)
	case NullPredicate:
		return fmt.Sprintf("%s %s%s", s.Column, prefix, p.Op)
	}
	return s.Column
}

// Logic combines the row sets of several specs.
type Logic uint8

const (
	And Logic = iota
	Or
)

func (l Logic) String() string {
	if l == Or {
		return "or"
	}
	return "and"
}

// Set is a group of specs evaluated together.
type Set struct {
	Specs []Spec
	Logic Logic
}

var textOpNames = []struct {
	op    TextOp
	words []string
}{
	{Contains, []string{"contains"}},
	{NotContains, []string{"not-contains"}},
	{Equal, []string{"eq", "=="}},
	{NotEqual, []string{"ne", "!="}},
	{StartsWith, []string{"starts-with"}},
	{EndsWith, []string{"ends-with"}},
	{Regex, []string{"regex", "~"}},
}

var numericOpNames = []struct {
	op    NumericOp
	words []string
}{
	{NumEqual, []string{"num-eq", "="}},
	{NumNotEqual, []string{"num-ne", "<>"}},
	{GreaterThan, []string{"gt", ">"}},
	{LessThan, []string{"lt", "<"}},
	{GreaterOrEqual, []string{"ge", ">="}},
	{LessOrEqual, []string{"le", "<="}},
}

var nullOpNames = []struct {
	op    NullOp
	words []string
}{
	{IsNull, []string{"is-null"}},
	{IsNotNull, []string{"is-not-null"}},
}

func (op TextOp) String() string {
	if int(op) < len(textOpNames) {
		return textOpNames[op].words[0]
	}
	return fmt.Sprintf("TextOp(%d)", op)
}

func (op NumericOp) String() string {
	if int(op) < len(numericOpNames) {
		return numericOpNames[op].words[0]
	}
	return fmt.Sprintf("NumericOp(%d)", op)
}

func (op NullOp) String() string {
	if int(op) < len(nullOpNames) {
		return nullOpNames[op].words[0]
	}
	return fmt.Sprintf("NullOp(%d)", op)
}

// ParseTextOp maps an operator word onto a TextOp.
func ParseTextOp(word string) (TextOp, error) {
	word = strings.ToLower(word)
	for _, entry := range textOpNames {
		for _, w := range entry.words {
			if w == word {
				return entry.op, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, word)
}

// ParseNumericOp maps an operator word onto a NumericOp.
func ParseNumericOp(word string) (NumericOp, error) {
	word = strings.ToLower(word)
	for _, entry := range numericOpNames {
		for _, w := range entry.words {
			if w == word {
				return entry.op, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, word)
}

// ParseNullOp maps an operator word onto a NullOp.
func ParseNullOp(word string) (NullOp, error) {
	word = strings.ToLower(word)
	for _, entry := range nullOpNames {
		for _, w := range entry.words {
			if w == word {
				return entry.op, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOp, word)
}

// ParseLogic accepts "and" or "or".
func ParseLogic(word string) (Logic, error) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "", "and", "all":
		return And, nil
	case "or", "any":
		return Or, nil
	default:
		return And, fmt.Errorf("unknown filter logic %q", word)
	}
}

// ParsePredicate builds a predicate from an operator word and its value.
// A leading "!" on the operator requests inversion.
func ParsePredicate(opWord, value string) (Predicate, bool, error) {
	invert := false
	if len(opWord) > 1 && strings.HasPrefix(opWord, "!") && opWord != "!=" {
		invert = true
		opWord = opWord[1:]
	}
	if op, err := ParseNullOp(opWord); err == nil {
		return NullPredicate{Op: op}, invert, nil
	}
	if op, err := ParseTextOp(opWord); err == nil {
		return TextPredicate{Op: op, Value: value}, invert, nil
	}
	if op, err := ParseNumericOp(opWord); err == nil {
		return NumericPredicate{Op: op, Value: value}, invert, nil
	}
	return nil, false, fmt.Errorf("%w: %q", ErrUnknownOp, opWord)
}

// ParseSpec parses "column op value". The column may contain spaces; the
// first operator word found splits it from the value. The spec is active.
func ParseSpec(text string) (Spec, error) {
	fields := strings.Fields(text)
	for i := 1; i < len(fields); i++ {
		pred, invert, err := ParsePredicate(fields[i], strings.Join(fields[i+1:], " "))
		if err != nil {
			continue
		}
		if _, isNull := pred.(NullPredicate); !isNull && i == len(fields)-1 {
			return Spec{}, fmt.Errorf("filter %q: missing value", text)
		}
		return Spec{
			Column:    strings.Join(fields[:i], " "),
			Predicate: pred,
			Active:    true,
			Invert:    invert,
		}, nil
	}
	return Spec{}, fmt.Errorf("filter %q: expected \"column op value\"", text)
}
