package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if len(cfg.Billing.Plans) != 4 {
		t.Fatalf("expected 4 default plans, got %d", len(cfg.Billing.Plans))
	}
	if cfg.Cycle.ResetInterval != 24*time.Hour {
		t.Fatalf("expected daily reset interval, got %s", cfg.Cycle.ResetInterval)
	}
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hourstack.yaml")
	yml := `
server:
  port: "9999"
billing:
  plans:
    - code: boutique
      name: Boutique
      price_ref: price_boutique
      hours_monthly: 25
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Fatalf("expected port 9999, got %s", cfg.Server.Port)
	}
	if len(cfg.Billing.Plans) != 1 || cfg.Billing.Plans[0].Code != "boutique" {
		t.Fatalf("expected yaml plan catalog to replace defaults, got %+v", cfg.Billing.Plans)
	}
	// Untouched sections keep defaults.
	if cfg.Postgres.MaxConns != 15 {
		t.Fatalf("expected default pg max_conns, got %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hourstack.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9999\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOURSTACK_PORT", "7777")
	t.Setenv("HOURSTACK_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7777" {
		t.Fatalf("expected env port 7777, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFrom_ValidatesPlans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hourstack.yaml")
	yml := `
billing:
  plans:
    - code: ""
      price_ref: price_x
      hours_monthly: 10
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected validation error for empty plan code")
	}
}
