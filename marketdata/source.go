// Package marketdata loads the curves a bond is priced against from
// tabular sources: workbooks, JSON documents, Postgres or memory.
//
// A table has a maturity column followed by one or more named rate columns.
// The risk-free and floating index tables are read from their first rate
// column; the spread table holds one column per issuer.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meenmo/bondpricer/bond"
	"github.com/meenmo/bondpricer/curve"
)

var (
	// ErrTableNotFound is returned when a named table does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrIssuerNotFound is returned when the spread table has no column for
	// the requested company.
	ErrIssuerNotFound = errors.New("issuer not found")
	// ErrColumnNotFound is returned for any other missing column.
	ErrColumnNotFound = errors.New("column not found")
)

// DataSourceError labels a market data failure with the table and column
// involved.
type DataSourceError struct {
	Table  string
	Column string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("marketdata: table %q: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("marketdata: table %q column %q: %v", e.Table, e.Column, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// TableReader reads a table by name. Implementations return an error
// wrapping ErrTableNotFound when the table is absent.
type TableReader interface {
	ReadTable(ctx context.Context, name string) (*Table, error)
}

// Tables names the three curve tables.
type Tables struct {
	Libor    string `mapstructure:"libor"`
	RiskFree string `mapstructure:"risk_free"`
	Spread   string `mapstructure:"spread"`
}

// DefaultTables returns the sheet names of the reference workbook.
func DefaultTables() Tables {
	return Tables{
		Libor:    "Libor 3M Curve",
		RiskFree: "US Yield Curve",
		Spread:   "CDX_IG_Prices",
	}
}

func (t Tables) withDefaults() Tables {
	d := DefaultTables()
	if t.Libor == "" {
		t.Libor = d.Libor
	}
	if t.RiskFree == "" {
		t.RiskFree = d.RiskFree
	}
	if t.Spread == "" {
		t.Spread = d.Spread
	}
	return t
}

// Source builds bond curves from a TableReader. Tables are read once and
// kept for the life of the Source. It is safe for concurrent use.
type Source struct {
	reader TableReader
	tables Tables
	log    *logrus.Logger

	mu    sync.Mutex
	cache map[string]*tableEntry
}

type tableEntry struct {
	once  sync.Once
	table *Table
	err   error
}

// NewSource returns a Source reading from r. Empty table names fall back to
// DefaultTables. A nil logger discards output.
func NewSource(r TableReader, tables Tables, logger *logrus.Logger) *Source {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Source{
		reader: r,
		tables: tables.withDefaults(),
		log:    logger,
		cache:  make(map[string]*tableEntry),
	}
}

// Tables returns the table names in use.
func (s *Source) Tables() Tables { return s.tables }

// Curves returns the risk-free curve, the spread curve of company and, when
// withLibor is set, the floating index curve.
func (s *Source) Curves(ctx context.Context, company string, withLibor bool) (bond.Curves, error) {
	var out bond.Curves

	rf, err := s.RiskFree(ctx)
	if err != nil {
		return out, err
	}
	spread, err := s.Spread(ctx, company)
	if err != nil {
		return out, err
	}
	out.RiskFree, out.Spread = rf, spread

	if withLibor {
		if out.Libor, err = s.Libor(ctx); err != nil {
			return out, err
		}
	}
	return out, nil
}

// RiskFree returns the first rate column of the risk-free table.
func (s *Source) RiskFree(ctx context.Context) (*curve.Curve, error) {
	return s.Curve(ctx, s.tables.RiskFree, "")
}

// Libor returns the first rate column of the floating index table.
func (s *Source) Libor(ctx context.Context) (*curve.Curve, error) {
	return s.Curve(ctx, s.tables.Libor, "")
}

// Spread returns the issuer column of the spread table, in basis points.
func (s *Source) Spread(ctx context.Context, company string) (*curve.Curve, error) {
	t, err := s.table(ctx, s.tables.Spread)
	if err != nil {
		return nil, err
	}
	if _, ok := t.Column(company); !ok || strings.TrimSpace(company) == "" {
		return nil, &DataSourceError{Table: t.Name, Column: company, Err: ErrIssuerNotFound}
	}
	return t.Curve(company)
}

// Curve returns column of the named table. An empty column selects the
// first rate column.
func (s *Source) Curve(ctx context.Context, table, column string) (*curve.Curve, error) {
	t, err := s.table(ctx, table)
	if err != nil {
		return nil, err
	}
	return t.Curve(column)
}

func (s *Source) table(ctx context.Context, name string) (*Table, error) {
	s.mu.Lock()
	e, ok := s.cache[name]
	if !ok {
		e = &tableEntry{}
		s.cache[name] = e
	}
	s.mu.Unlock()

	e.once.Do(func() {
		e.table, e.err = s.reader.ReadTable(ctx, name)
		if e.err != nil {
			var dse *DataSourceError
			if !errors.As(e.err, &dse) {
				e.err = &DataSourceError{Table: name, Err: e.err}
			}
			return
		}
		s.log.WithFields(logrus.Fields{
			"table":   name,
			"rows":    len(e.table.Maturities),
			"columns": len(e.table.Columns),
		}).Debug("loaded curve table")
	})

	// A cancelled read must not poison the cache.
	if e.err != nil && ctx.Err() != nil {
		s.mu.Lock()
		if s.cache[name] == e {
			delete(s.cache, name)
		}
		s.mu.Unlock()
	}
	return e.table, e.err
}

// Table is a maturity column followed by named rate columns. Values holds
// one slice per column, aligned with Maturities; NaN marks an empty cell.
type Table struct {
	Name       string
	Maturities []float64
	Columns    []string
	Values     [][]float64
}

// NewTable checks that every column is as long as the maturity column.
func NewTable(name string, maturities []float64, columns []string, values [][]float64) (*Table, error) {
	if len(columns) != len(values) {
		return nil, &DataSourceError{Table: name, Err: fmt.Errorf("%d column names for %d value columns", len(columns), len(values))}
	}
	for i, col := range values {
		if len(col) != len(maturities) {
			return nil, &DataSourceError{Table: name, Column: columns[i], Err: fmt.Errorf("%d values for %d maturities", len(col), len(maturities))}
		}
	}
	return &Table{Name: name, Maturities: maturities, Columns: columns, Values: values}, nil
}

// Column returns the values of the named column. Names match exactly first,
// then case-insensitively.
func (t *Table) Column(name string) ([]float64, bool) {
	i := t.columnIndex(name)
	if i < 0 {
		return nil, false
	}
	return t.Values[i], true
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	want := strings.TrimSpace(name)
	for i, c := range t.Columns {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return i
		}
	}
	return -1
}

// Curve builds a curve from column, skipping empty cells. An empty column
// selects the first rate column.
func (t *Table) Curve(column string) (*curve.Curve, error) {
	idx := 0
	if column != "" {
		idx = t.columnIndex(column)
	}
	if idx < 0 || idx >= len(t.Columns) {
		return nil, &DataSourceError{Table: t.Name, Column: column, Err: ErrColumnNotFound}
	}
	name := t.Columns[idx]

	pts := make([]curve.Point, 0, len(t.Maturities))
	for i, m := range t.Maturities {
		v := t.Values[idx][i]
		if math.IsNaN(v) || math.IsNaN(m) {
			continue
		}
		pts = append(pts, curve.Point{Maturity: m, Rate: v})
	}

	c, err := curve.FromPoints(t.Name+"/"+name, pts)
	if err != nil {
		return nil, &DataSourceError{Table: t.Name, Column: name, Err: err}
	}
	return c, nil
}

// ParseMaturity reads a maturity cell: a number of years ("2.5") or a tenor
// label ("3M", "10Y").
func ParseMaturity(s string) (float64, error) {
	return curve.ParseTenor(strings.TrimSpace(s))
}
