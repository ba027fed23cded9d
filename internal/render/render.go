// Package render prints tables, column summaries and analysis reports as plain text.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tabwise/internal/filter"
	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/quality"
)

const (
	sparkChars   = " .:-=+*#%@"
	histogramBin = 10
)

// Table prints the first limit rows of t. A limit of zero or less prints every
// row; width caps each cell so the table fits a terminal of that width.
func Table(w io.Writer, t *model.Table, limit, width int) error {
	if t == nil || t.Width() == 0 {
		_, err := fmt.Fprintln(w, "Empty table.")
		return err
	}
	n := t.Len()
	shown := n
	if limit > 0 && limit < n {
		shown = limit
	}
	budget := cellBudget(width, t.Width()+1)

	headers := make([]string, 0, t.Width()+1)
	headers = append(headers, "#")
	rightAlign := map[int]bool{0: true}
	for i, col := range t.Columns {
		headers = append(headers, truncateCell(singleLine(col.Name), budget))
		if col.Type == model.NumericType {
			rightAlign[i+1] = true
		}
	}
	rows := make([][]string, 0, shown)
	for r := 0; r < shown; r++ {
		row := make([]string, 0, t.Width()+1)
		row = append(row, fmt.Sprintf("%d", r))
		for _, col := range t.Columns {
			row = append(row, truncateCell(singleLine(col.Cells[r].String()), budget))
		}
		rows = append(rows, row)
	}
	if err := writeLines(w, formatTable(headers, rows, rightAlign)); err != nil {
		return err
	}
	if shown < n {
		if _, err := fmt.Fprintf(w, "... %d more rows\n", n-shown); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d rows x %d columns\n", n, t.Width())
	return err
}

// ColumnInfo prints type and null statistics per column. Numeric columns get a
// histogram sparkline of their values.
func ColumnInfo(w io.Writer, t *model.Table) error {
	if t == nil || t.Width() == 0 {
		_, err := fmt.Fprintln(w, "Empty table.")
		return err
	}
	headers := []string{"Column", "Type", "Non-null", "Nulls", "% Nulls", "Distribution"}
	rows := make([][]string, 0, t.Width())
	n := t.Len()
	for _, col := range t.Columns {
		nulls := col.NullCount()
		pct := 0.0
		if n > 0 {
			pct = float64(nulls) / float64(n) * 100
		}
		dist := ""
		if col.Type == model.NumericType {
			dist = Sparkline(Histogram(numbers(col), histogramBin))
		}
		rows = append(rows, []string{
			col.Name,
			col.Type.String(),
			fmt.Sprintf("%d", n-nulls),
			fmt.Sprintf("%d", nulls),
			fmt.Sprintf("%.1f%%", pct),
			dist,
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true}
	return writeLines(w, formatTable(headers, rows, rightAlign))
}

// Analysis prints the problems, statistics and suggestions of a column analysis.
func Analysis(w io.Writer, column string, res quality.Result) error {
	if _, err := fmt.Fprintf(w, "Analysis of %q\n", column); err != nil {
		return err
	}
	st := res.Stats
	if _, err := fmt.Fprintf(w, "Values: %d  Unique: %d  Length min/avg/max: %d/%.1f/%d\n",
		st.Total, st.Unique, st.MinLength, st.MeanLength, st.MaxLength); err != nil {
		return err
	}
	if len(res.Suggestions) == 0 {
		_, err := fmt.Fprintln(w, "No problems found.")
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	for _, p := range res.Problems {
		if _, err := fmt.Fprintf(w, "- %s\n", p); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	headers := []string{"Kind", "Count", "Description", "Examples"}
	rows := make([][]string, 0, len(res.Suggestions))
	for _, s := range res.Suggestions {
		examples := make([]string, len(s.Examples))
		for i, ex := range s.Examples {
			examples[i] = ex.String()
		}
		rows = append(rows, []string{
			string(s.Kind),
			fmt.Sprintf("%d", s.Count),
			s.Description,
			strings.Join(examples, ", "),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true}))
}

// Changes prints a before/after preview of a correction.
func Changes(w io.Writer, changes []quality.Change) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No values would change.")
		return err
	}
	headers := []string{"Row", "Before", "After"}
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{fmt.Sprintf("%d", c.Row), fmt.Sprintf("%q", c.Before), fmt.Sprintf("%q", c.After)})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true}))
}

// Projects prints stored projects, marking the active one.
func Projects(w io.Writer, projects []model.ProjectInfo, active string) error {
	if len(projects) == 0 {
		_, err := fmt.Fprintln(w, "No projects found.")
		return err
	}
	headers := []string{"", "Name", "Datasets", "Modified", "Description"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		mark := ""
		if p.Name == active {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			p.Name,
			fmt.Sprintf("%d", p.DatasetCount),
			p.ModifiedAt.Local().Format(time.DateTime),
			p.Description,
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{2: true}))
}

// FilterSummary prints the per-condition match counts and the kept/removed totals.
func FilterSummary(w io.Writer, t *model.Table, set filter.Set, res filter.Result) error {
	counts := filter.SpecCounts(t, set)
	skipped := make(map[int]error, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped[s.Index] = s.Err
	}
	headers := []string{"#", "Condition", "Matches"}
	rows := make([][]string, 0, len(set.Specs))
	for i, spec := range set.Specs {
		matches := fmt.Sprintf("%d", counts[i])
		switch {
		case !spec.Active:
			matches = "inactive"
		case skipped[i] != nil:
			matches = "skipped: " + skipped[i].Error()
		}
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), spec.String(), matches})
	}
	if len(rows) > 0 {
		if _, err := fmt.Fprintf(w, "Conditions combined with %s\n", strings.ToUpper(set.Logic.String())); err != nil {
			return err
		}
		if err := writeLines(w, formatTable(headers, rows, map[int]bool{0: true})); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Kept: %d  Removed: %d\n", res.Kept.Len(), res.Removed.Len())
	return err
}

// Histogram counts values into bins equal-width buckets between min and max.
func Histogram(values []float64, bins int) []float64 {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	counts := make([]float64, bins)
	span := maxVal - minVal
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - minVal) / span * float64(bins))
		}
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}
	return counts
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func numbers(col *model.Column) []float64 {
	out := make([]float64, 0, len(col.Cells))
	for _, cell := range col.Cells {
		if v, ok := cell.Float(); ok {
			out = append(out, v)
		}
	}
	return out
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
