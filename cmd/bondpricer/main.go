// Command bondpricer prices bonds off curve tables kept in a workbook, a
// JSON document or Postgres.
//
// Usage:
//
//	bondpricer price  [--input bonds.json]
//	bondpricer report [--input bonds.json]
//	bondpricer curve <table> [column] [--at 1,2.5,10]
//	bondpricer import --from curves.xlsx [table ...]
//
// Bonds are read as a JSON object or array from --input or stdin. The exit
// status is 1 when any bond fails to price.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meenmo/bondpricer/internal/config"
)

// errBondsFailed signals that output was written but some bonds failed.
var errBondsFailed = errors.New("one or more bonds failed to price")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errBondsFailed):
		return 1
	default:
		fmt.Fprintf(stderr, "bondpricer: %v\n", err)
		return 1
	}
}

// app carries the state shared by every subcommand.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bondpricer",
		Short:         "Price bonds off risk-free, credit spread and floating index curves",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path (default: ./bondpricer.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(a.priceCmd(), a.reportCmd(), a.curveCmd(), a.importCmd())
	return root
}

func (a *app) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.log, err = a.cfg.Logging.NewLogger(a.stderr)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"source":     a.cfg.Source.Kind,
		"convention": a.cfg.Pricing.Convention,
	}).Debug("configuration loaded")
	return nil
}
