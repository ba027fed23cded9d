// Package quality detects text anomalies in a column and applies corrections.
package quality

import (
	"errors"
	"unicode"
)

// Kind identifies an anomaly category and its correction.
type Kind string

const (
	TrimSpaces               Kind = "trim_spaces"
	FixMultipleSpaces        Kind = "fix_multiple_spaces"
	FixCapitalization        Kind = "fix_capitalization"
	RemoveDuplicateWords     Kind = "remove_duplicate_words"
	CleanSpecialChars        Kind = "clean_special_chars"
	ReviewLengthOutliers     Kind = "review_length_outliers"
	StandardizeAbbreviations Kind = "standardize_abbreviations"
)

// Kinds lists every category in detection and "apply all" order.
var Kinds = []Kind{
	TrimSpaces,
	FixMultipleSpaces,
	FixCapitalization,
	RemoveDuplicateWords,
	CleanSpecialChars,
	ReviewLengthOutliers,
	StandardizeAbbreviations,
}

var descriptions = map[Kind]string{
	TrimSpaces:               "Remove leading and trailing spaces",
	FixMultipleSpaces:        "Replace runs of whitespace with a single space",
	FixCapitalization:        "Standardize capitalization (title case)",
	RemoveDuplicateWords:     "Remove consecutive duplicate words",
	CleanSpecialChars:        "Remove unusual special characters",
	ReviewLengthOutliers:     "Review values with atypical length",
	StandardizeAbbreviations: "Standardize abbreviations",
}

// Description returns the human-readable label of the kind.
func (k Kind) Description() string {
	return descriptions[k]
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

var (
	// ErrInvalidColumnType is returned when analysis is requested for a non-text column.
	ErrInvalidColumnType = errors.New("column is not a text column")
	// ErrUnknownKind is returned for an unrecognized correction kind.
	ErrUnknownKind = errors.New("unknown correction kind")
)

const allowedPunct = `-.,!?()[]{}"':;`

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isAllowedRune(r rune) bool {
	if isWordRune(r) || unicode.IsSpace(r) {
		return true
	}
	for _, p := range allowedPunct {
		if r == p {
			return true
		}
	}
	return false
}

// wordSpan is a maximal run of word runes within a value, as rune offsets.
type wordSpan struct {
	start int
	end   int
}

func wordSpans(runes []rune) []wordSpan {
	var spans []wordSpan
	start := -1
	for i, r := range runes {
		if isWordRune(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			spans = append(spans, wordSpan{start: start, end: i})
			start = -1
		}
	}
	if start != -1 {
		spans = append(spans, wordSpan{start: start, end: len(runes)})
	}
	return spans
}
