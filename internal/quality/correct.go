package quality

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/verte-zerg/tabwise/internal/model"
)

type abbreviation struct {
	pattern     *regexp.Regexp
	replacement string
}

var abbreviations = []abbreviation{
	{regexp.MustCompile(`(?i)\bdr\.`), "Dr."},
	{regexp.MustCompile(`(?i)\bsr\.`), "Sr."},
	{regexp.MustCompile(`(?i)\bsra\.`), "Sra."},
	{regexp.MustCompile(`(?i)\bltda\.`), "Ltda."},
	{regexp.MustCompile(`(?i)\bs\.a\.`), "S.A."},
}

// Apply returns a corrected copy of col. Null cells pass through unchanged.
func Apply(col *model.Column, kind Kind) (*model.Column, error) {
	fix, err := transformFor(kind)
	if err != nil {
		return nil, err
	}
	out := col.Clone()
	if fix == nil {
		return out, nil
	}
	for i, cell := range out.Cells {
		if cell.Kind != model.CellText {
			continue
		}
		out.Cells[i] = model.Text(fix(cell.Text))
	}
	return out, nil
}

// ApplyAll chains the corrections for every suggested kind, in category order.
func ApplyAll(col *model.Column, suggestions []Suggestion) (*model.Column, []Kind, error) {
	wanted := map[Kind]bool{}
	for _, s := range suggestions {
		wanted[s.Kind] = true
	}
	current := col
	var applied []Kind
	for _, kind := range Kinds {
		if !wanted[kind] {
			continue
		}
		next, err := Apply(current, kind)
		if err != nil {
			return nil, nil, err
		}
		current = next
		applied = append(applied, kind)
	}
	if current == col {
		current = col.Clone()
	}
	return current, applied, nil
}

// Change describes one cell altered by a correction.
type Change struct {
	Row    int
	Before string
	After  string
}

// Preview lists rows whose value differs between before and after.
// A limit of zero or less returns every change.
func Preview(before, after *model.Column, limit int) []Change {
	var changes []Change
	for i := range before.Cells {
		if i >= len(after.Cells) {
			break
		}
		if before.Cells[i].Equal(after.Cells[i]) {
			continue
		}
		changes = append(changes, Change{Row: i, Before: before.Cells[i].String(), After: after.Cells[i].String()})
		if limit > 0 && len(changes) >= limit {
			break
		}
	}
	return changes
}

func transformFor(kind Kind) (func(string) string, error) {
	switch kind {
	case TrimSpaces:
		return strings.TrimSpace, nil
	case FixMultipleSpaces:
		return squeezeSpaces, nil
	case FixCapitalization:
		return titleCase, nil
	case RemoveDuplicateWords:
		return removeDuplicateWords, nil
	case CleanSpecialChars:
		return stripSpecialChars, nil
	case StandardizeAbbreviations:
		return standardizeAbbreviations, nil
	case ReviewLengthOutliers:
		// Flag-only; the user reviews these values by hand.
		return nil, nil
	default:
		return nil, ErrUnknownKind
	}
}

// squeezeSpaces replaces every whitespace run with a single space.
func squeezeSpaces(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	inSpace := false
	for _, r := range v {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// titleCase upper-cases the first letter of every letter run and lower-cases the rest.
func titleCase(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	prevLetter := false
	for _, r := range v {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

func removeDuplicateWords(v string) string {
	tokens := strings.Fields(v)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(kept) > 0 && strings.EqualFold(kept[len(kept)-1], tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func stripSpecialChars(v string) string {
	return strings.Map(func(r rune) rune {
		if isAllowedRune(r) {
			return r
		}
		return -1
	}, v)
}

func standardizeAbbreviations(v string) string {
	for _, a := range abbreviations {
		v = a.pattern.ReplaceAllLiteralString(v, a.replacement)
	}
	return v
}
