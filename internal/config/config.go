// Package config loads bondpricer settings from bondpricer.yaml, the
// environment and built-in defaults, in increasing order of precedence:
// defaults < file < environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/meenmo/bondpricer/bond"
	"github.com/meenmo/bondpricer/marketdata"
)

const envPrefix = "BONDPRICER"

// Source kinds.
const (
	SourceWorkbook = "workbook"
	SourceJSON     = "json"
	SourcePostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Source  SourceConfig      `mapstructure:"source"  yaml:"source"`
	Tables  marketdata.Tables `mapstructure:"tables"  yaml:"tables"`
	Pricing PricingConfig     `mapstructure:"pricing" yaml:"pricing"`
	Logging LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// SourceConfig selects where curve tables come from.
type SourceConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"` // "workbook", "json" or "postgres"
	Path string `mapstructure:"path" yaml:"path"` // workbook or JSON document
	DSN  string `mapstructure:"dsn"  yaml:"dsn"`  // postgres connection string
}

type PricingConfig struct {
	Convention string `mapstructure:"convention" yaml:"convention"` // "literal" or "normalized"
	Workers    int    `mapstructure:"workers"    yaml:"workers"`
	Precision  int    `mapstructure:"precision"  yaml:"precision"` // decimal places in output; -1 keeps full precision
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load searches bondpricer.yaml in ., ./config and $HOME/.bondpricer. A
// missing file is not an error.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("bondpricer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".bondpricer"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads the given file; unlike Load it must exist.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	tables := marketdata.DefaultTables()

	v.SetDefault("source.kind", SourceWorkbook)
	v.SetDefault("source.path", "Bond Pricer.xlsx")
	v.SetDefault("source.dsn", "")

	v.SetDefault("tables.libor", tables.Libor)
	v.SetDefault("tables.risk_free", tables.RiskFree)
	v.SetDefault("tables.spread", tables.Spread)

	v.SetDefault("pricing.convention", bond.Literal.String())
	v.SetDefault("pricing.workers", 4)
	v.SetDefault("pricing.precision", 6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv applies the conventional DATABASE_URL when no DSN is set.
func overrideFromEnv(cfg *Config) {
	if cfg.Source.DSN == "" {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			cfg.Source.DSN = dsn
		}
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Source.Kind {
	case SourceWorkbook, SourceJSON:
		if c.Source.Path == "" {
			errs = append(errs, fmt.Errorf("source.path is required for a %s source", c.Source.Kind))
		}
	case SourcePostgres:
		if c.Source.DSN == "" {
			errs = append(errs, errors.New("source.dsn is required for a postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind %q is not one of workbook, json, postgres", c.Source.Kind))
	}

	if c.Tables.Libor == "" || c.Tables.RiskFree == "" || c.Tables.Spread == "" {
		errs = append(errs, errors.New("tables.libor, tables.risk_free and tables.spread must be set"))
	}

	if _, err := bond.ParseConvention(c.Pricing.Convention); err != nil {
		errs = append(errs, fmt.Errorf("pricing.convention: %w", err))
	}
	if c.Pricing.Workers < 0 {
		errs = append(errs, fmt.Errorf("pricing.workers must not be negative, got %d", c.Pricing.Workers))
	}
	if c.Pricing.Precision < -1 || c.Pricing.Precision > 15 {
		errs = append(errs, fmt.Errorf("pricing.precision must be within [-1, 15], got %d", c.Pricing.Precision))
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Convention returns the parsed pricing convention.
func (c *Config) Convention() bond.Convention {
	conv, err := bond.ParseConvention(c.Pricing.Convention)
	if err != nil {
		return bond.Literal
	}
	return conv
}

// NewLogger builds the logger described by the logging section.
func (l LoggingConfig) NewLogger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return logger, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
