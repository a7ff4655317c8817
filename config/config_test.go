package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.MaxIterations != 1000 || cfg.MaxMatches != 1000 {
		t.Errorf("budgets = %d/%d, want 1000/1000", cfg.MaxIterations, cfg.MaxMatches)
	}
	if cfg.Tolerance != 1e-6 {
		t.Errorf("tolerance = %g, want 1e-6", cfg.Tolerance)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	path := writeConfig(t, "package: demo.json\nmax_iterations: 50\nrequire_all: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Package != "demo.json" || cfg.MaxIterations != 50 || !cfg.RequireAll {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxMatches != 1000 || cfg.Tolerance != 1e-6 || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []string{
		"max_iterations: -1\n",
		"tolerance: -0.5\n",
		"log_level: loud\n",
		"max_iterations: [not, a, number]\n",
	}
	for _, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("config %q accepted", content)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
