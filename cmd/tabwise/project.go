package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tabwise/internal/browse"
	"github.com/verte-zerg/tabwise/internal/render"
)

var projectDescription string

func newProjectCmd() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Save and load the workspace as named projects",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Save the workspace as a new project and make it active",
		Args:  cobra.ExactArgs(1),
		RunE:  withApp(true, runProjectCreate),
	}
	createCmd.Flags().StringVar(&projectDescription, "description", "", "project description")

	projectCmd.AddCommand(
		createCmd,
		&cobra.Command{
			Use:   "save",
			Short: "Save the workspace into the active project",
			Args:  cobra.NoArgs,
			RunE:  withApp(false, runProjectSave),
		},
		&cobra.Command{
			Use:   "load <name>",
			Short: "Replace the workspace with a stored project",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runProjectLoad),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List stored projects",
			Args:  cobra.NoArgs,
			RunE:  withApp(false, runProjectList),
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a stored project",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(true, runProjectDelete),
		},
		&cobra.Command{
			Use:   "close",
			Short: "Detach the workspace from the active project",
			Args:  cobra.NoArgs,
			RunE:  withApp(true, runProjectClose),
		},
		&cobra.Command{
			Use:   "autosave [on|off]",
			Short: "Show or set auto-save of the active project",
			Args:  cobra.MaximumNArgs(1),
			RunE:  withApp(true, runProjectAutoSave),
		},
	)
	return projectCmd
}

func runProjectCreate(ctx context.Context, a *app, args []string) error {
	if err := a.sess.CreateProject(ctx, args[0], projectDescription); err != nil {
		return err
	}
	return a.printf("Created project %s with %d tables\n", args[0], len(a.sess.Names()))
}

func runProjectSave(ctx context.Context, a *app, _ []string) error {
	if err := a.sess.SaveProject(ctx); err != nil {
		return err
	}
	return a.printf("Saved project %s\n", a.sess.ActiveProject())
}

func runProjectLoad(ctx context.Context, a *app, args []string) error {
	if err := a.sess.LoadProject(ctx, args[0]); err != nil {
		return err
	}
	return a.printf("Loaded project %s: %s\n", args[0], strings.Join(a.sess.Names(), ", "))
}

func runProjectList(ctx context.Context, a *app, _ []string) error {
	projects, err := a.sess.ListProjects(ctx)
	if err != nil {
		return err
	}
	return render.Projects(a.out, projects, a.sess.ActiveProject())
}

func runProjectDelete(ctx context.Context, a *app, args []string) error {
	if err := a.sess.DeleteProject(ctx, args[0]); err != nil {
		return err
	}
	return a.printf("Deleted project %s\n", args[0])
}

func runProjectClose(_ context.Context, a *app, _ []string) error {
	name := a.sess.ActiveProject()
	if name == "" {
		return a.printf("No active project.\n")
	}
	a.sess.CloseProject()
	return a.printf("Closed project %s; the tables stay in the workspace\n", name)
}

func runProjectAutoSave(_ context.Context, a *app, args []string) error {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on", "true", "yes":
			a.sess.SetAutoSave(true)
		case "off", "false", "no":
			a.sess.SetAutoSave(false)
		default:
			return fmt.Errorf("expected on or off, got %q", args[0])
		}
	}
	state := "off"
	if a.sess.AutoSave() {
		state = "on"
	}
	return a.printf("Auto-save is %s\n", state)
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [table]",
		Short: "Browse, analyse and filter tables interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  withApp(true, runBrowse),
	}
}

func runBrowse(ctx context.Context, a *app, args []string) error {
	start := ""
	if len(args) == 1 {
		start = args[0]
		if _, err := a.sess.Table(start); err != nil {
			return err
		}
	}
	m := browse.NewModel(ctx, a.sess, start, 0)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
