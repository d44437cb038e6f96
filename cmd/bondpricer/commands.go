package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meenmo/bondpricer/marketdata"
	"github.com/meenmo/bondpricer/marketdata/pgstore"
	"github.com/meenmo/bondpricer/report"
	"github.com/meenmo/bondpricer/valuation"
)

// ---------------------------------------------------------------------------
// price / report
// ---------------------------------------------------------------------------

func (a *app) priceCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price bonds and print JSON results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, isArray, err := a.loadInputs(input)
			if err != nil {
				return err
			}
			results, err := a.valuate(cmd, inputs)
			if err != nil {
				return err
			}

			rows := report.Rows(results, int32(a.cfg.Pricing.Precision))
			for i := range rows {
				if rows[i].BondType == "" {
					rows[i].BondType = inputs[i].BondType
				}
			}

			enc := json.NewEncoder(a.stdout)
			if isArray {
				err = enc.Encode(rows)
			} else {
				err = enc.Encode(rows[0])
			}
			if err != nil {
				return fmt.Errorf("write results: %w", err)
			}
			return failures(rows)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input path (reads stdin if omitted)")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Price bonds and print a markdown report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, _, err := a.loadInputs(input)
			if err != nil {
				return err
			}
			results, err := a.valuate(cmd, inputs)
			if err != nil {
				return err
			}
			precision := int32(a.cfg.Pricing.Precision)
			if err := report.Markdown(a.stdout, results, precision); err != nil {
				return err
			}
			return failures(report.Rows(results, precision))
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON input path (reads stdin if omitted)")
	return cmd
}

func (a *app) loadInputs(path string) ([]bondInput, bool, error) {
	raw, err := readInput(strings.TrimSpace(path), a.stdin)
	if err != nil {
		return nil, false, fmt.Errorf("read input: %w", err)
	}
	inputs, isArray, err := parseInputs(raw)
	if err != nil {
		return nil, false, fmt.Errorf("parse JSON: %w", err)
	}
	return inputs, isArray, nil
}

// valuate prices every input in order. Inputs that do not parse into terms
// come back as failed results without reaching the engine.
func (a *app) valuate(cmd *cobra.Command, inputs []bondInput) ([]valuation.Result, error) {
	ctx := cmd.Context()

	results := make([]valuation.Result, len(inputs))
	reqs := make([]valuation.Request, 0, len(inputs))
	index := make([]int, 0, len(inputs))
	for i, in := range inputs {
		terms, err := in.terms()
		if err != nil {
			results[i] = valuation.Result{ID: in.ID, Terms: terms, Convention: a.cfg.Convention(), Err: err}
			continue
		}
		reqs = append(reqs, valuation.Request{ID: in.ID, Terms: terms})
		index = append(index, i)
	}

	if len(reqs) > 0 {
		src, closeSource, err := a.source(ctx)
		if err != nil {
			return nil, err
		}
		defer closeSource()

		engine := valuation.New(src,
			valuation.WithWorkers(a.cfg.Pricing.Workers),
			valuation.WithConvention(a.cfg.Convention()),
			valuation.WithLogger(a.log),
		)
		priced, err := engine.Run(ctx, reqs)
		if err != nil {
			return nil, err
		}
		for j, r := range priced {
			results[index[j]] = r
		}
	}
	return results, nil
}

func failures(rows []report.Row) error {
	for _, r := range rows {
		if r.Failed() {
			return errBondsFailed
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// curve
// ---------------------------------------------------------------------------

type curvePoint struct {
	Maturity float64 `json:"maturity"`
	Rate     float64 `json:"rate"`
}

type curveOutput struct {
	Table  string       `json:"table"`
	Column string       `json:"column,omitempty"`
	Points []curvePoint `json:"points"`
}

func (a *app) curveCmd() *cobra.Command {
	var at []float64
	cmd := &cobra.Command{
		Use:   "curve <table> [column]",
		Short: "Print a curve column, or interpolate it at the given maturities",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			column := ""
			if len(args) == 2 {
				column = args[1]
			}

			src, closeSource, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			defer closeSource()

			crv, err := src.Curve(cmd.Context(), args[0], column)
			if err != nil {
				return err
			}

			out := curveOutput{Table: args[0], Column: column}
			if len(at) == 0 {
				for _, p := range crv.Points() {
					out.Points = append(out.Points, curvePoint{Maturity: p.Maturity, Rate: p.Rate})
				}
			} else {
				for _, m := range at {
					out.Points = append(out.Points, curvePoint{Maturity: m, Rate: crv.Interpolate(m)})
				}
			}
			return json.NewEncoder(a.stdout).Encode(out)
		},
	}
	cmd.Flags().Float64SliceVar(&at, "at", nil, "maturities in years to interpolate at")
	return cmd
}

// ---------------------------------------------------------------------------
// import
// ---------------------------------------------------------------------------

func (a *app) importCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "import --from <file> [table ...]",
		Short: "Copy curve tables from a workbook or JSON document into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.cfg.Source.DSN == "" {
				return fmt.Errorf("source.dsn is required to import into postgres")
			}
			tables := args
			if len(tables) == 0 {
				tables = []string{a.cfg.Tables.RiskFree, a.cfg.Tables.Spread, a.cfg.Tables.Libor}
			}

			reader, closeReader, err := openReader(ctx, fileSource(from))
			if err != nil {
				return fmt.Errorf("open %s: %w", from, err)
			}
			defer closeReader()

			store, err := pgstore.Open(ctx, a.cfg.Source.DSN)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			for _, name := range tables {
				t, err := reader.ReadTable(ctx, name)
				if err != nil {
					return &marketdata.DataSourceError{Table: name, Err: err}
				}
				n, err := store.WriteTable(ctx, t)
				if err != nil {
					return err
				}
				a.log.WithFields(logrus.Fields{"table": name, "points": n}).Info("imported curve table")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "workbook (.xlsx) or JSON document to read")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
