package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tabwise/internal/config"
	"github.com/verte-zerg/tabwise/internal/model"
)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return &cli{t: t, db: filepath.Join(dir, "workspace.db")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--db", c.db))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("tabwise %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func expectContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in output:\n%s", want, out)
	}
}

func TestWorkspacePersistsAcrossCommands(t *testing.T) {
	c := newCLI(t)
	src := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(src, []byte("name,age\n Acme ,30\nACME,N/A\nBeta,40\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	expectContains(t, c.mustRun("import", src), "Imported people: 3 rows x 2 columns")
	expectContains(t, c.mustRun("tables"), "people  3 rows x 2 columns")
	expectContains(t, c.mustRun("info", "people"), "numeric")

	expectContains(t, c.mustRun("filter", "people", "age gt 35"), "Kept: 1  Removed: 2")
	expectContains(t, c.mustRun("tables"), "people  3 rows x 2 columns")
	expectContains(t, c.mustRun("filter", "people", "age gt 35", "--apply"), "Removed 2 rows from people")
	expectContains(t, c.mustRun("tables"), "people  1 rows x 2 columns  (backup)")
	expectContains(t, c.mustRun("undo", "people"), "Restored people from backup (3 rows)")

	expectContains(t, c.mustRun("fix", "people", "name", "--kind", "fix_capitalization", "--dry-run"), `"ACME"`)
	expectContains(t, c.mustRun("fix", "people", "name", "--all"), "fix_capitalization")

	out := filepath.Join(t.TempDir(), "people.csv")
	c.mustRun("export", "people", out)
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) != "name,age\nAcme,30\nAcme,\nBeta,40\n" {
		t.Fatalf("unexpected export %q", data)
	}
}

func TestProjectCommands(t *testing.T) {
	c := newCLI(t)
	if _, err := c.run("project", "save"); err == nil {
		t.Fatalf("expected save without active project to fail")
	}
	src := filepath.Join(t.TempDir(), "a.csv")
	if err := os.WriteFile(src, []byte("k,v\n1,x\n2,y\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	c.mustRun("import", src)
	expectContains(t, c.mustRun("project", "create", "demo", "--description", "first"), "Created project demo with 1 tables")
	expectContains(t, c.mustRun("project", "list"), "demo")
	expectContains(t, c.mustRun("tables"), "Project: demo")

	expectContains(t, c.mustRun("project", "autosave", "off"), "Auto-save is off")
	expectContains(t, c.mustRun("project", "autosave"), "Auto-save is off")

	c.mustRun("drop-table", "a")
	expectContains(t, c.mustRun("project", "load", "demo"), "Loaded project demo: a")
	expectContains(t, c.mustRun("tables"), "a  2 rows x 2 columns")

	c.mustRun("project", "delete", "demo")
	expectContains(t, c.mustRun("project", "list"), "No projects found.")
	if _, err := c.run("project", "load", "demo"); err == nil {
		t.Fatalf("expected load of deleted project to fail")
	}
}

func TestCalcFormulaAndJoinCommands(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	sales := filepath.Join(dir, "sales.csv")
	regions := filepath.Join(dir, "regions.csv")
	if err := os.WriteFile(sales, []byte("id,price,qty\n1,2,3\n2,4,5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(regions, []byte("id,region\n1,north\n3,south\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c.mustRun("import", sales)
	c.mustRun("import", regions)
	c.mustRun("calc", "sales", "total", "price", "*", "qty")
	c.mustRun("formula", "sales", "double", "total * 2")
	show := c.mustRun("show", "sales")
	expectContains(t, show, "total")
	expectContains(t, show, "40")

	expectContains(t, c.mustRun("join", "sales", "id", "regions", "id", "--how", "left"), "into sales_regions: 2 rows")
	if _, err := c.run("join", "sales", "id", "regions", "id", "--how", "sideways"); err == nil {
		t.Fatalf("expected unknown join kind to fail")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := model.Config{DBPath: "x.db", IQRMultiplier: 1.5, AbbrevMaxLen: 3, DisplayRows: 0, LogLevel: "warn"}
	if err := validateConfig(valid); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
	cases := []func(*model.Config){
		func(c *model.Config) { c.DBPath = " " },
		func(c *model.Config) { c.IQRMultiplier = 0 },
		func(c *model.Config) { c.AbbrevMaxLen = 0 },
		func(c *model.Config) { c.DisplayRows = -1 },
		func(c *model.Config) { c.LogLevel = "loud" },
	}
	for i, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	lines := strings.Split(defaultConfigTemplate(), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			lines[i] = strings.TrimPrefix(line, "# ")
		}
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("uncommented template should decode: %v", err)
	}
	if cfg.Display.Rows == nil || *cfg.Display.Rows != defaultRows {
		t.Fatalf("unexpected rows %v", cfg.Display.Rows)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != defaultLogLevel {
		t.Fatalf("unexpected level %v", cfg.Log.Level)
	}
}
