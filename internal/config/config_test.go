package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg.Project.AutoSave != nil || cfg.Log.Level != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[project]
auto-save = false
db = "/tmp/x.db"

[analysis]
iqr-multiplier = 3.0

[display]
rows = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Project.AutoSave == nil || *cfg.Project.AutoSave {
		t.Fatalf("expected auto-save=false, got %v", cfg.Project.AutoSave)
	}
	if cfg.Project.DB == nil || *cfg.Project.DB != "/tmp/x.db" {
		t.Fatalf("unexpected db: %v", cfg.Project.DB)
	}
	if cfg.Analysis.IQRMultiplier == nil || *cfg.Analysis.IQRMultiplier != 3 {
		t.Fatalf("unexpected iqr multiplier: %v", cfg.Analysis.IQRMultiplier)
	}
	if cfg.Analysis.AbbrevMaxLen != nil {
		t.Fatalf("unset key should stay nil")
	}
	if cfg.Display.Rows == nil || *cfg.Display.Rows != 5 {
		t.Fatalf("unexpected rows: %v", cfg.Display.Rows)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[project\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected decode error")
	}
	unknown := filepath.Join(dir, "unknown.toml")
	if err := os.WriteFile(unknown, []byte("[display]\ncolumns = 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(unknown)
	if err == nil || !strings.Contains(err.Error(), "display.columns") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "tabwise", "config.toml") {
		t.Fatalf("config path: %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "tabwise", "tabwise.db") {
		t.Fatalf("db path: %s", got)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/u")
	cases := map[string]string{
		"~/a/b.db": filepath.Join("/home/u", "a", "b.db"),
		"~":        "/home/u",
		"/abs":     "/abs",
		"~x/y":     "~x/y",
	}
	for in, want := range cases {
		if got := ExpandHome(in); got != want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
