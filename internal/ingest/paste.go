package ingest

import (
	"strings"

	"github.com/verte-zerg/tabwise/internal/model"
)

const (
	minGroupSize = 2
	maxGroupSize = 10
	sniffLines   = 3
)

// ParsePaste turns free-form pasted text into a table.
//
// A delimiter found in the first lines selects delimited parsing. Otherwise
// the non-empty lines are read as a transposed repeating group: the smallest
// k in 2..10 that divides the line count into at least two groups wins, the
// first group being the header. Failing both, each line becomes a row of a
// single column. Fewer than two non-empty lines without a delimiter yield an
// empty table.
func ParsePaste(text string) (*model.Table, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	if text == "" {
		return &model.Table{}, nil
	}
	lines := strings.Split(text, "\n")
	head := lines
	if len(head) > sniffLines {
		head = head[:sniffLines]
	}
	for _, d := range Delimiters {
		for _, line := range head {
			if strings.ContainsRune(line, d) {
				return parseDelimited(text, d)
			}
		}
	}

	values := nonEmptyLines(text)
	if len(values) < 2 {
		return &model.Table{}, nil
	}
	if k := groupSize(len(values)); k > 0 {
		rows := make([][]string, 0, len(values)/k-1)
		for start := k; start < len(values); start += k {
			rows = append(rows, values[start:start+k])
		}
		return fromRecords(append([][]string{values[:k]}, rows...)), nil
	}
	return singleColumn(values), nil
}

func groupSize(n int) int {
	for k := minGroupSize; k <= maxGroupSize && k <= n; k++ {
		if n%k == 0 && n/k >= 2 {
			return k
		}
	}
	return 0
}
