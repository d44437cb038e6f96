// Package pgstore keeps curve tables in Postgres, one row per point:
//
//	curve_points(table_name, column_name, column_position, maturity, rate)
package pgstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meenmo/bondpricer/marketdata"
)

const schema = `
	CREATE TABLE IF NOT EXISTS curve_points (
		table_name      TEXT             NOT NULL,
		column_name     TEXT             NOT NULL,
		column_position INTEGER          NOT NULL,
		maturity        DOUBLE PRECISION NOT NULL,
		rate            DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (table_name, column_name, maturity)
	)`

const selectPointsQuery = `
	SELECT column_name, column_position, maturity, rate
	FROM curve_points
	WHERE table_name = $1
	ORDER BY column_position, maturity`

const deleteTableQuery = `DELETE FROM curve_points WHERE table_name = $1`

// Store reads and writes curve tables. It implements marketdata.TableReader.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates curve_points when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create curve_points: %w", err)
	}
	return nil
}

func (s *Store) ReadTable(ctx context.Context, name string) (*marketdata.Table, error) {
	rows, err := s.pool.Query(ctx, selectPointsQuery, name)
	if err != nil {
		return nil, fmt.Errorf("query curve_points: %w", err)
	}
	defer rows.Close()

	var pts []point
	for rows.Next() {
		var p point
		if err := rows.Scan(&p.column, &p.position, &p.maturity, &p.rate); err != nil {
			return nil, fmt.Errorf("scan curve point: %w", err)
		}
		pts = append(pts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read curve_points: %w", err)
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: %q", marketdata.ErrTableNotFound, name)
	}
	return tableFromPoints(name, pts)
}

// WriteTable replaces every point of t in a single transaction. Empty cells
// are not stored.
func (s *Store) WriteTable(ctx context.Context, t *marketdata.Table) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteTableQuery, t.Name); err != nil {
		return 0, fmt.Errorf("clear table %q: %w", t.Name, err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"curve_points"},
		[]string{"table_name", "column_name", "column_position", "maturity", "rate"},
		pgx.CopyFromRows(pointRows(t)),
	)
	if err != nil {
		return 0, fmt.Errorf("copy table %q: %w", t.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

type point struct {
	column   string
	position int32
	maturity float64
	rate     float64
}

func pointRows(t *marketdata.Table) [][]any {
	rows := make([][]any, 0, len(t.Maturities)*len(t.Columns))
	for c, name := range t.Columns {
		for i, m := range t.Maturities {
			v := t.Values[c][i]
			if math.IsNaN(v) {
				continue
			}
			rows = append(rows, []any{t.Name, name, int32(c), m, v})
		}
	}
	return rows
}

// tableFromPoints pivots points into a table. Columns keep their stored
// position; maturities missing from a column become NaN.
func tableFromPoints(name string, pts []point) (*marketdata.Table, error) {
	type col struct {
		name     string
		position int32
		rates    map[float64]float64
	}
	byName := make(map[string]*col)
	var cols []*col
	seen := make(map[float64]bool)
	var maturities []float64

	for _, p := range pts {
		c, ok := byName[p.column]
		if !ok {
			c = &col{name: p.column, position: p.position, rates: make(map[float64]float64)}
			byName[p.column] = c
			cols = append(cols, c)
		}
		if _, dup := c.rates[p.maturity]; dup {
			return nil, &marketdata.DataSourceError{Table: name, Column: p.column, Err: fmt.Errorf("duplicate maturity %v", p.maturity)}
		}
		c.rates[p.maturity] = p.rate
		if !seen[p.maturity] {
			seen[p.maturity] = true
			maturities = append(maturities, p.maturity)
		}
	}

	sort.SliceStable(cols, func(i, j int) bool { return cols[i].position < cols[j].position })
	sort.Float64s(maturities)

	names := make([]string, len(cols))
	values := make([][]float64, len(cols))
	for i, c := range cols {
		names[i] = c.name
		values[i] = make([]float64, len(maturities))
		for j, m := range maturities {
			v, ok := c.rates[m]
			if !ok {
				v = math.NaN()
			}
			values[i][j] = v
		}
	}
	return marketdata.NewTable(name, maturities, names, values)
}
