package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCHEMASHIFT_CATALOG_DSN", "")
	t.Setenv("SCHEMASHIFT_LOG_LEVEL", "")
	t.Setenv("SCHEMASHIFT_STEP_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetsFile != "targets.toml" {
		t.Errorf("targets file = %q", cfg.TargetsFile)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.StepTimeout.Minutes() != 5 {
		t.Errorf("step timeout = %s", cfg.StepTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SCHEMASHIFT_LOG_LEVEL", "verbose")
	if _, err := Load(); err == nil {
		t.Error("bad log level accepted")
	}
	t.Setenv("SCHEMASHIFT_LOG_LEVEL", "info")
	t.Setenv("SCHEMASHIFT_STEP_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("bad timeout accepted")
	}
}

func writeTargets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTargets(t *testing.T) {
	path := writeTargets(t, `
[targets.staging]
driver = "postgres"
dsn = "postgres://user:pw@localhost:5432/app"

[targets.legacy]
driver = "sqlserver"
dsn = "sqlserver://sa:pw@localhost:1433?database=app"
dialect = "sqlserver"
`)
	targets, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("LoadTargets: %v", err)
	}

	staging, err := targets.Target("staging")
	if err != nil {
		t.Fatal(err)
	}
	if staging.Dialect != "postgres" {
		t.Errorf("dialect not defaulted from driver: %q", staging.Dialect)
	}
	if staging.ID == "" {
		t.Error("id not generated")
	}
	again, _ := LoadTargets(path)
	stagingAgain, _ := again.Target("staging")
	if staging.ID != stagingAgain.ID {
		t.Error("generated target id must be stable across loads")
	}

	if _, err := targets.Target("production"); err == nil || !strings.Contains(err.Error(), "unknown target") {
		t.Errorf("unknown target error = %v", err)
	}
}

func TestLoadTargetsRejectsUnknownKeys(t *testing.T) {
	path := writeTargets(t, `
[targets.staging]
driver = "postgres"
dsn = "postgres://localhost/app"
dsnn = "typo"
`)
	if _, err := LoadTargets(path); err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Fatalf("err = %v, want unknown-keys rejection", err)
	}
}

func TestLoadTargetsValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing dsn", "[targets.a]\ndriver = \"postgres\"\n"},
		{"bad driver", "[targets.a]\ndriver = \"oracle\"\ndsn = \"x\"\n"},
		{"bad dialect", "[targets.a]\ndriver = \"postgres\"\ndsn = \"x\"\ndialect = \"oracle\"\n"},
		{"sqlite without dialect", "[targets.a]\ndriver = \"sqlite\"\ndsn = \"file.db\"\n"},
		{"bad id", "[targets.a]\ndriver = \"postgres\"\ndsn = \"x\"\nid = \"not-a-uuid\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTargets(writeTargets(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
