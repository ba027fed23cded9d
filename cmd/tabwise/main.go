// Package main provides the CLI entrypoint for tabwise.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/verte-zerg/tabwise/internal/config"
	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/quality"
	"github.com/verte-zerg/tabwise/internal/session"
	"github.com/verte-zerg/tabwise/internal/store"
)

const (
	defaultAutoSave = true
	defaultRows     = 20
	defaultLogLevel = "warn"
	stateKey        = "session"
)

var (
	settingsDB       string
	settingsAutoSave bool
	settingsIQR      float64
	settingsAbbrev   int
	settingsRows     int
	settingsLogLevel string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	def := quality.DefaultOptions()
	rootCmd := &cobra.Command{
		Use:           "tabwise",
		Short:         "Clean tabular data from CSV, Excel and pasted text",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&settingsDB, "db", config.DefaultDBPath(), "path to the SQLite workspace database")
	flags.BoolVar(&settingsAutoSave, "auto-save", defaultAutoSave, "save the active project after every change")
	flags.Float64Var(&settingsIQR, "iqr-multiplier", def.IQRMultiplier, "IQR multiplier for length outliers")
	flags.IntVar(&settingsAbbrev, "abbrev-max-len", def.AbbrevMaxLen, "longest token treated as an abbreviation")
	flags.IntVar(&settingsRows, "rows", defaultRows, "rows shown by show and filter previews (0 = all)")
	flags.StringVar(&settingsLogLevel, "log-level", defaultLogLevel, "diagnostic log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	addTableCommands(rootCmd)
	addCleaningCommands(rootCmd)
	rootCmd.AddCommand(newProjectCmd())
	rootCmd.AddCommand(newBrowseCmd())

	return rootCmd
}

// loadSettings merges the config file into the flags the user did not set.
func loadSettings(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &settingsDB, fileCfg.Project.DB)
	applyBoolConfig(cmd, "auto-save", &settingsAutoSave, fileCfg.Project.AutoSave)
	applyFloatConfig(cmd, "iqr-multiplier", &settingsIQR, fileCfg.Analysis.IQRMultiplier)
	applyIntConfig(cmd, "abbrev-max-len", &settingsAbbrev, fileCfg.Analysis.AbbrevMaxLen)
	applyIntConfig(cmd, "rows", &settingsRows, fileCfg.Display.Rows)
	applyStringConfig(cmd, "log-level", &settingsLogLevel, fileCfg.Log.Level)

	cfg := model.Config{
		DBPath:        config.ExpandHome(settingsDB),
		AutoSave:      settingsAutoSave,
		IQRMultiplier: settingsIQR,
		AbbrevMaxLen:  settingsAbbrev,
		DisplayRows:   settingsRows,
		LogLevel:      settingsLogLevel,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// app bundles what a command needs: settings, store, session and logger.
type app struct {
	cfg    model.Config
	store  *store.Store
	sess   *session.Session
	logger *zap.Logger
	out    io.Writer
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	sess := session.New(st, logger.Named("session"), session.Options{
		AutoSave: cfg.AutoSave,
		Quality: quality.Options{
			IQRMultiplier: cfg.IQRMultiplier,
			AbbrevMaxLen:  cfg.AbbrevMaxLen,
		},
	})
	a := &app{cfg: cfg, store: st, sess: sess, logger: logger, out: cmd.OutOrStdout()}

	ctx := cmd.Context()
	data, ok, err := st.GetState(ctx, stateKey)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to read workspace: %w", err)
	}
	if ok {
		if err := sess.Import(ctx, data); err != nil {
			logger.Warn("discarding unreadable workspace", zap.Error(err))
			logErrf("workspace could not be read and was reset: %v\n", err)
		}
	}
	if cmd.Flags().Changed("auto-save") {
		sess.SetAutoSave(cfg.AutoSave)
	}
	return a, nil
}

func (a *app) close() {
	if cerr := a.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	if serr := a.logger.Sync(); serr != nil {
		// stderr cannot be synced on every platform.
		_ = serr
	}
}

// persist writes the working set back so the next command sees it.
func (a *app) persist(ctx context.Context) error {
	data, err := a.sess.Export()
	if err != nil {
		return fmt.Errorf("failed to encode workspace: %w", err)
	}
	if err := a.store.PutState(ctx, stateKey, data); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	return nil
}

func (a *app) printf(format string, args ...any) error {
	if _, err := fmt.Fprintf(a.out, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// report prints the outcome line of a mutation followed by its save status.
func (a *app) report(out session.Outcome, format string, args ...any) error {
	if err := a.printf(format+"\n", args...); err != nil {
		return err
	}
	reportSave(out.Save)
	return nil
}

func reportSave(r session.SaveReport) {
	switch r.Status {
	case session.AutoSaved:
		logErrf("Project %q auto-saved.\n", r.Project)
	case session.ManualSaveNeeded:
		logErrf("Project %q has unsaved changes. Run: tabwise project save\n", r.Project)
	case session.AutoSaveFailed:
		logErrf("Auto-save of project %q failed: %v\n", r.Project, r.Err)
	}
}

type runFunc func(ctx context.Context, a *app, args []string) error

// withApp opens the workspace around run. Mutating commands write the
// workspace back when run succeeds.
func withApp(mutates bool, run runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		if err := run(ctx, a, args); err != nil {
			return err
		}
		if !mutates {
			return nil
		}
		return a.persist(ctx)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Development = false
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	def := quality.DefaultOptions()
	return fmt.Sprintf(`# tabwise configuration
# Uncomment a value to enable it. CLI flags override config values.

[project]
# auto-save = %t          # Save the active project after every change
# db = %q

[analysis]
# iqr-multiplier = %.1f    # IQR multiplier for length outliers
# abbrev-max-len = %d      # Longest token treated as an abbreviation

[display]
# rows = %d               # Rows shown by show and filter previews (0 = all)

[log]
# level = %q           # debug, info, warn or error
`,
		defaultAutoSave,
		config.DefaultDBPath(),
		def.IQRMultiplier,
		def.AbbrevMaxLen,
		defaultRows,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("--db must not be empty")
	}
	if cfg.IQRMultiplier <= 0 {
		return fmt.Errorf("--iqr-multiplier must be > 0")
	}
	if cfg.AbbrevMaxLen <= 0 {
		return fmt.Errorf("--abbrev-max-len must be > 0")
	}
	if cfg.DisplayRows < 0 {
		return fmt.Errorf("--rows must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("--log-level must be one of debug, info, warn, error")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
