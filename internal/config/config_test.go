package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/bondpricer/bond"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Source.Kind != SourceWorkbook {
		t.Errorf("Source.Kind: got %q, want %q", cfg.Source.Kind, SourceWorkbook)
	}
	if cfg.Source.Path != "Bond Pricer.xlsx" {
		t.Errorf("Source.Path: got %q", cfg.Source.Path)
	}
	if cfg.Tables.Libor != "Libor 3M Curve" || cfg.Tables.RiskFree != "US Yield Curve" || cfg.Tables.Spread != "CDX_IG_Prices" {
		t.Errorf("Tables: got %+v", cfg.Tables)
	}
	if cfg.Pricing.Convention != "literal" {
		t.Errorf("Pricing.Convention: got %q, want literal", cfg.Pricing.Convention)
	}
	if cfg.Pricing.Workers != 4 {
		t.Errorf("Pricing.Workers: got %d, want 4", cfg.Pricing.Workers)
	}
	if cfg.Pricing.Precision != 6 {
		t.Errorf("Pricing.Precision: got %d, want 6", cfg.Pricing.Precision)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
source:
  kind: json
  path: /data/curves.json
tables:
  spread: "CDX_HY_Prices"
pricing:
  convention: normalized
  workers: 8
  precision: 4
logging:
  level: debug
  format: json
`
	path := filepath.Join(t.TempDir(), "bondpricer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.Source.Kind != SourceJSON || cfg.Source.Path != "/data/curves.json" {
		t.Errorf("Source: got %+v", cfg.Source)
	}
	if cfg.Tables.Spread != "CDX_HY_Prices" {
		t.Errorf("Tables.Spread: got %q", cfg.Tables.Spread)
	}
	// Unset keys keep their defaults.
	if cfg.Tables.RiskFree != "US Yield Curve" {
		t.Errorf("Tables.RiskFree: got %q", cfg.Tables.RiskFree)
	}
	if cfg.Convention() != bond.Normalized {
		t.Errorf("Convention: got %v", cfg.Convention())
	}
	if cfg.Pricing.Workers != 8 || cfg.Pricing.Precision != 4 {
		t.Errorf("Pricing: got %+v", cfg.Pricing)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bondpricer.yaml")
	if err := os.WriteFile(path, []byte("pricing:\n  workers: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BONDPRICER_PRICING_WORKERS", "16")
	t.Setenv("BONDPRICER_SOURCE_KIND", "postgres")
	t.Setenv("BONDPRICER_SOURCE_DSN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/curves")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Pricing.Workers != 16 {
		t.Errorf("Pricing.Workers: got %d, want 16", cfg.Pricing.Workers)
	}
	if cfg.Source.Kind != SourcePostgres {
		t.Errorf("Source.Kind: got %q", cfg.Source.Kind)
	}
	if cfg.Source.DSN != "postgres://localhost/curves" {
		t.Errorf("Source.DSN: got %q", cfg.Source.DSN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// ── Validate ──

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{
		Source:  SourceConfig{Kind: "ftp"},
		Pricing: PricingConfig{Convention: "act/360", Workers: -1, Precision: 40},
		Logging: LoggingConfig{Level: "loud", Format: "xml"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"source.kind", "tables.", "pricing.convention", "pricing.workers", "pricing.precision", "logging.level", "logging.format"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestValidateSourceRequirements(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromFile(writeEmpty(t))
		if err != nil {
			t.Fatalf("LoadFromFile: %v", err)
		}
		return cfg
	}
	t.Setenv("DATABASE_URL", "")

	cfg := base()
	cfg.Source.Path = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "source.path") {
		t.Errorf("workbook without path: %v", err)
	}

	cfg = base()
	cfg.Source.Kind = SourcePostgres
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "source.dsn") {
		t.Errorf("postgres without dsn: %v", err)
	}
}

func writeEmpty(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bondpricer.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// ── Logger ──

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.WithField("bond", "zero").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"bond":"zero"`) || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("unexpected json output: %s", out)
	}

	if _, err := (LoggingConfig{Level: "chatty"}).NewLogger(&buf); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
