package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabwise/internal/ingest"
	"github.com/verte-zerg/tabwise/internal/render"
)

var (
	importName string
	pasteName  string
	pasteFile  string
)

func addTableCommands(root *cobra.Command) {
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV, TXT or Excel file as a table",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(true, runImport),
	}
	importCmd.Flags().StringVar(&importName, "name", "", "table name (default: file name without extension)")

	pasteCmd := &cobra.Command{
		Use:   "paste",
		Short: "Create a table from pasted text read from stdin",
		Args:  cobra.NoArgs,
		RunE:  withApp(true, runPaste),
	}
	pasteCmd.Flags().StringVar(&pasteName, "name", "pasted", "table name")
	pasteCmd.Flags().StringVar(&pasteFile, "file", "", "read the text from a file instead of stdin")

	root.AddCommand(
		importCmd,
		pasteCmd,
		&cobra.Command{
			Use:   "tables",
			Short: "List the tables in the workspace",
			Args:  cobra.NoArgs,
			RunE:  withApp(false, runTables),
		},
		&cobra.Command{
			Use:   "show <table>",
			Short: "Print the first rows of a table",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(false, runShow),
		},
		&cobra.Command{
			Use:   "info <table>",
			Short: "Show column types and null counts",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(false, runInfo),
		},
		&cobra.Command{
			Use:   "rename <table> <new-name>",
			Short: "Rename a table",
			Args:  cobra.ExactArgs(2),
			RunE:  withApp(true, runRename),
		},
		&cobra.Command{
			Use:   "drop-table <table>",
			Short: "Remove a table from the workspace",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runDropTable),
		},
		&cobra.Command{
			Use:   "backup <table>",
			Short: "Snapshot a table into its backup slot",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runBackup),
		},
		&cobra.Command{
			Use:   "undo <table>",
			Short: "Restore a table from its backup",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runUndo),
		},
		&cobra.Command{
			Use:   "export <table> <file>",
			Short: "Write a table to a CSV or Excel file",
			Args:  cobra.ExactArgs(2),
			RunE:  withApp(false, runExport),
		},
	)
}

func runImport(ctx context.Context, a *app, args []string) error {
	path := args[0]
	t, err := ingest.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	name := importName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	out, err := a.sess.AddTable(ctx, name, t)
	if err != nil {
		return err
	}
	return a.report(out, "Imported %s: %d rows x %d columns", name, t.Len(), t.Width())
}

func runPaste(ctx context.Context, a *app, _ []string) error {
	var r io.Reader = os.Stdin
	if pasteFile != "" {
		data, err := os.ReadFile(pasteFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", pasteFile, err)
		}
		r = bytes.NewReader(data)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read pasted text: %w", err)
	}
	t, err := ingest.ParsePaste(string(data))
	if err != nil {
		return err
	}
	if t.Len() == 0 {
		return fmt.Errorf("no rows found in pasted text")
	}
	out, err := a.sess.AddTable(ctx, pasteName, t)
	if err != nil {
		return err
	}
	return a.report(out, "Created %s: %d rows x %d columns", pasteName, t.Len(), t.Width())
}

func runTables(_ context.Context, a *app, _ []string) error {
	names := a.sess.Names()
	if len(names) == 0 {
		logErrln("No tables. Import one with: tabwise import <file>")
		return nil
	}
	if project := a.sess.ActiveProject(); project != "" {
		if err := a.printf("Project: %s\n", project); err != nil {
			return err
		}
	}
	for _, name := range names {
		t, err := a.sess.Table(name)
		if err != nil {
			return err
		}
		mark := ""
		if a.sess.HasBackup(name) {
			mark = "  (backup)"
		}
		if err := a.printf("%s  %d rows x %d columns%s\n", name, t.Len(), t.Width(), mark); err != nil {
			return err
		}
	}
	return nil
}

func runShow(_ context.Context, a *app, args []string) error {
	t, err := a.sess.Table(args[0])
	if err != nil {
		return err
	}
	return render.Table(a.out, t, a.cfg.DisplayRows, render.TerminalWidth())
}

func runInfo(_ context.Context, a *app, args []string) error {
	t, err := a.sess.Table(args[0])
	if err != nil {
		return err
	}
	return render.ColumnInfo(a.out, t)
}

func runRename(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.RenameTable(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return a.report(out, "Renamed %s to %s", args[0], args[1])
}

func runDropTable(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.DeleteTable(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(out, "Removed %s", args[0])
}

func runBackup(_ context.Context, a *app, args []string) error {
	if err := a.sess.Backup(args[0]); err != nil {
		return err
	}
	return a.printf("Backed up %s\n", args[0])
}

func runUndo(ctx context.Context, a *app, args []string) error {
	out, err := a.sess.Restore(ctx, args[0])
	if err != nil {
		return err
	}
	return a.report(out, "Restored %s from backup (%d rows)", args[0], out.Affected)
}

func runExport(_ context.Context, a *app, args []string) error {
	t, err := a.sess.Table(args[0])
	if err != nil {
		return err
	}
	if err := ingest.ExportFile(args[1], t); err != nil {
		return fmt.Errorf("failed to export %s: %w", args[0], err)
	}
	return a.printf("Exported %s to %s (%d rows)\n", args[0], args[1], t.Len())
}
