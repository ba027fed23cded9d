package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabwise/internal/filter"
	"github.com/verte-zerg/tabwise/internal/join"
	"github.com/verte-zerg/tabwise/internal/quality"
	"github.com/verte-zerg/tabwise/internal/render"
	"github.com/verte-zerg/tabwise/internal/transform"
)

const previewLimit = 10

var (
	fixKind   string
	fixAll    bool
	fixDryRun bool

	filterLogic string
	filterApply bool

	nullStrategy string
	nullValue    string

	calcSep string

	joinHow string
	joinAs  string
)

func addCleaningCommands(root *cobra.Command) {
	fixCmd := &cobra.Command{
		Use:   "fix <table> <column>",
		Short: "Apply a text correction to a column",
		Long: "Apply one correction (--kind) or every correction the analysis suggests (--all).\n" +
			"Kinds: " + kindList(),
		Args: cobra.ExactArgs(2),
		RunE: withApp(true, runFix),
	}
	fixCmd.Flags().StringVar(&fixKind, "kind", "", "correction kind")
	fixCmd.Flags().BoolVar(&fixAll, "all", false, "apply every suggested correction in order")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "preview the changes of --kind without applying them")
	fixCmd.MarkFlagsMutuallyExclusive("kind", "all")

	filterCmd := &cobra.Command{
		Use:   "filter <table> <condition>...",
		Short: "Preview, or with --apply remove, the rows a set of conditions rejects",
		Long: "Each condition is one argument of the form \"column op value\".\n" +
			"Text ops: contains, not-contains, eq, ne, starts-with, ends-with, regex.\n" +
			"Numeric ops: =, <>, gt, lt, ge, le. Null ops: is-null, is-not-null.\n" +
			"Prefix an op with ! to invert it. Rows that match are kept.",
		Args: cobra.MinimumNArgs(2),
		RunE: withApp(true, runFilter),
	}
	filterCmd.Flags().StringVar(&filterLogic, "logic", "and", "combine conditions with and/or")
	filterCmd.Flags().BoolVar(&filterApply, "apply", false, "remove the rejected rows (backup first)")

	columnsCmd := &cobra.Command{
		Use:   "columns",
		Short: "Column operations",
	}
	columnsCmd.AddCommand(&cobra.Command{
		Use:   "drop <table> <column>...",
		Short: "Remove columns from a table",
		Args:  cobra.MinimumNArgs(2),
		RunE:  withApp(true, runColumnsDrop),
	})

	nullsCmd := &cobra.Command{
		Use:   "nulls <table> <column>",
		Short: "Drop or fill the nulls of a column",
		Args:  cobra.ExactArgs(2),
		RunE:  withApp(true, runNulls),
	}
	nullsCmd.Flags().StringVar(&nullStrategy, "strategy", "drop", "drop, mean, median, value or mode")
	nullsCmd.Flags().StringVar(&nullValue, "value", "", "fill value for --strategy value")

	calcCmd := &cobra.Command{
		Use:   "calc <table> <new-column> <a> <op> <b>",
		Short: "Add a column computed from two columns",
		Long:  "Ops: sum (+), subtract (-), multiply (*), divide (/), concat (&).",
		Args:  cobra.ExactArgs(5),
		RunE:  withApp(true, runCalc),
	}
	calcCmd.Flags().StringVar(&calcSep, "sep", " ", "separator for concat")

	joinCmd := &cobra.Command{
		Use:   "join <left> <left-key> <right> <right-key>",
		Short: "Join two tables into a new table",
		Args:  cobra.ExactArgs(4),
		RunE:  withApp(true, runJoin),
	}
	joinCmd.Flags().StringVar(&joinHow, "how", "inner", "inner, left, right or outer")
	joinCmd.Flags().StringVar(&joinAs, "as", "", "result table name (default: left_right)")

	root.AddCommand(
		&cobra.Command{
			Use:   "analyze <table> <column>",
			Short: "Detect text quality problems in a column",
			Args:  cobra.ExactArgs(2),
			RunE:  withApp(false, runAnalyze),
		},
		fixCmd,
		filterCmd,
		columnsCmd,
		nullsCmd,
		calcCmd,
		&cobra.Command{
			Use:   "formula <table> <new-column> <expression>",
			Short: "Add a column computed by an expression over the row",
			Long: "Columns are variables; use col(\"name with spaces\") for other names.\n" +
				"Example: tabwise formula sales total 'price * qty'",
			Args: cobra.ExactArgs(3),
			RunE: withApp(true, runFormula),
		},
		&cobra.Command{
			Use:   "dedupe <table>",
			Short: "Remove duplicate rows, keeping the first",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runDedupe),
		},
		&cobra.Command{
			Use:   "drop-empty <table>",
			Short: "Remove rows where every cell is null",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runDropEmpty),
		},
		&cobra.Command{
			Use:   "reclean <table>",
			Short: "Re-run null normalization and type inference",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runReclean),
		},
		joinCmd,
	)
}

func kindList() string {
	names := make([]string, len(quality.Kinds))
	for i, k := range quality.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func runAnalyze(_ context.Context, a *app, args []string) error {
	res, err := a.sess.Analyze(args[0], args[1])
	if err != nil {
		return err
	}
	return render.Analysis(a.out, args[1], res)
}

func runFix(ctx context.Context, a *app, args []string) error {
	table, column := args[0], args[1]
	if fixAll {
		if _, err := a.sess.Analyze(table, column); err != nil {
			return err
		}
		out, applied, err := a.sess.ApplyAllCorrections(ctx, table, column)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			return a.printf("No corrections suggested for %s.%s\n", table, column)
		}
		kinds := make([]string, len(applied))
		for i, k := range applied {
			kinds[i] = string(k)
		}
		return a.report(out, "Applied %s to %s.%s: %d cells changed", strings.Join(kinds, ", "), table, column, out.Affected)
	}
	if fixKind == "" {
		return fmt.Errorf("use --kind <kind> or --all (kinds: %s)", kindList())
	}
	kind, err := quality.ParseKind(fixKind)
	if err != nil {
		return fmt.Errorf("%w %q (kinds: %s)", err, fixKind, kindList())
	}
	if fixDryRun {
		changes, err := a.sess.PreviewCorrection(table, column, kind, previewLimit)
		if err != nil {
			return err
		}
		return render.Changes(a.out, changes)
	}
	out, err := a.sess.ApplyCorrection(ctx, table, column, kind)
	if err != nil {
		return err
	}
	return a.report(out, "Applied %s to %s.%s: %d cells changed", kind, table, column, out.Affected)
}

func runFilter(ctx context.Context, a *app, args []string) error {
	table := args[0]
	logic, err := filter.ParseLogic(filterLogic)
	if err != nil {
		return err
	}
	set := filter.Set{Logic: logic}
	for _, text := range args[1:] {
		spec, err := filter.ParseSpec(text)
		if err != nil {
			return err
		}
		set.Specs = append(set.Specs, spec)
	}
	before, err := a.sess.Table(table)
	if err != nil {
		return err
	}
	if !filterApply {
		res, err := a.sess.PreviewFilter(table, set)
		if err != nil {
			return err
		}
		if err := render.FilterSummary(a.out, before, set, res); err != nil {
			return err
		}
		if res.Removed.Len() == 0 {
			return nil
		}
		if err := a.printf("\nRows that would be removed:\n"); err != nil {
			return err
		}
		return render.Table(a.out, res.Removed, a.cfg.DisplayRows, render.TerminalWidth())
	}
	out, res, err := a.sess.RemoveRows(ctx, table, set)
	if err != nil {
		return err
	}
	if err := render.FilterSummary(a.out, before, set, res); err != nil {
		return err
	}
	if out.Affected == 0 {
		return a.printf("No rows removed.\n")
	}
	return a.report(out, "Removed %d rows from %s. Undo with: tabwise undo %s", out.Affected, table, table)
}

func runColumnsDrop(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.DropColumns(ctx, args[0], args[1:])
	if err != nil {
		return err
	}
	return a.report(out, "Dropped %s from %s", strings.Join(args[1:], ", "), args[0])
}

func runNulls(ctx context.Context, a *app, args []string) error {
	strategy, err := transform.ParseStrategy(nullStrategy)
	if err != nil {
		return err
	}
	out, err := a.sess.HandleNulls(ctx, args[0], args[1], strategy, nullValue)
	if err != nil {
		return err
	}
	return a.report(out, "Handled %d nulls in %s.%s (%s)", out.Affected, args[0], args[1], strategy)
}

func runCalc(ctx context.Context, a *app, args []string) error {
	table, name, colA, opText, colB := args[0], args[1], args[2], args[3], args[4]
	op, err := transform.ParseOp(opText)
	if err != nil {
		return err
	}
	out, err := a.sess.AddCalculatedColumn(ctx, table, name, op, colA, colB, calcSep)
	if err != nil {
		return err
	}
	return a.report(out, "Added %s to %s", name, table)
}

func runFormula(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.AddFormulaColumn(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	if out.Affected > 0 {
		logErrf("Formula failed on %d rows; those cells are empty.\n", out.Affected)
	}
	return a.report(out, "Added %s to %s", args[1], args[0])
}

func runDedupe(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.DropDuplicates(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(out, "Removed %d duplicate rows from %s", out.Affected, args[0])
}

func runDropEmpty(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.DropEmptyRows(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(out, "Removed %d empty rows from %s", out.Affected, args[0])
}

func runReclean(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.Renormalize(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(out, "Normalized %s: %d cells changed", args[0], out.Affected)
}

func runJoin(ctx context.Context, a *app, args []string) error {
	kind, err := join.ParseKind(joinHow)
	if err != nil {
		return err
	}
	out, err := a.sess.Join(ctx, args[0], args[1], args[2], args[3], kind, joinAs)
	if err != nil {
		return err
	}
	t, err := a.sess.Table(out.Table)
	if err != nil {
		return err
	}
	return a.report(out, "Joined %s and %s into %s: %d rows x %d columns", args[0], args[2], out.Table, t.Len(), t.Width())
}
