// Package valuation prices batches of bonds concurrently against curves from
// a market data source.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/bondpricer/bond"
)

// CurveSource supplies the curves of an issuer. *marketdata.Source
// implements it.
type CurveSource interface {
	Curves(ctx context.Context, company string, withLibor bool) (bond.Curves, error)
}

// Request is one bond to price.
type Request struct {
	ID    string
	Terms bond.Terms
}

// Result is the outcome of a Request.
//
// Err is set when the bond could not be priced at all: invalid terms or
// missing market data. Failures of individual operations are recorded in
// Analysis.Errors and leave the other metrics in place.
type Result struct {
	ID         string
	Terms      bond.Terms
	Convention bond.Convention
	Analysis   bond.Analysis
	Yield      bond.YieldResult
	Err        error
}

// Failed reports whether any part of the valuation failed.
func (r Result) Failed() bool {
	return r.Err != nil || len(r.Analysis.Errors) > 0
}

// Engine prices requests against a CurveSource.
type Engine struct {
	source  CurveSource
	workers int
	conv    bond.Convention
	log     *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of bonds priced at once. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithConvention selects the cash-flow convention passed to every Pricer.
func WithConvention(c bond.Convention) Option {
	return func(e *Engine) { e.conv = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(source CurveSource, opts ...Option) *Engine {
	e := &Engine{source: source, conv: bond.Literal}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.log == nil {
		e.log = logrus.New()
		e.log.SetOutput(io.Discard)
	}
	return e
}

// Run prices every request and returns the results in request order.
// Per-bond failures are reported in the results; the error is non-nil only
// when ctx is cancelled, in which case unfinished results carry ctx.Err().
func (e *Engine) Run(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	memo := newCurveMemo(e.source)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range reqs {
		i := i
		if gctx.Err() != nil {
			results[i] = Result{ID: reqs[i].ID, Terms: reqs[i].Terms, Convention: e.conv, Err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{ID: reqs[i].ID, Terms: reqs[i].Terms, Convention: e.conv, Err: err}
				return err
			}
			results[i] = e.price(gctx, memo, reqs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	e.log.WithFields(logrus.Fields{
		"bonds":  len(reqs),
		"failed": failed,
	}).Info("valuation finished")
	return results, nil
}

func (e *Engine) price(ctx context.Context, memo *curveMemo, req Request) Result {
	res := Result{ID: req.ID, Terms: req.Terms, Convention: e.conv}
	entry := e.log.WithFields(logrus.Fields{
		"id":      req.ID,
		"type":    req.Terms.Type.String(),
		"company": req.Terms.Company,
	})

	p, err := bond.New(req.Terms, bond.WithConvention(e.conv))
	if err != nil {
		res.Err = err
		entry.WithError(err).Warn("rejected bond terms")
		return res
	}

	withLibor := req.Terms.Type == bond.Bullet && req.Terms.RateType == bond.Variable
	curves, err := memo.get(ctx, req.Terms.Company, withLibor)
	if err != nil {
		res.Err = fmt.Errorf("load curves: %w", err)
		entry.WithError(err).Warn("market data unavailable")
		return res
	}

	res.Analysis = p.Analyze(curves)
	if !res.Analysis.Failed(bond.OpPrice) {
		y, err := p.ImpliedYield(curves)
		if err != nil {
			var oe *bond.OpError
			if errors.As(err, &oe) {
				res.Analysis.Errors = append(res.Analysis.Errors, oe)
			}
		} else {
			res.Yield = y
		}
	}

	if err := res.Analysis.Err(); err != nil {
		entry.WithError(err).Warn("bond priced with errors")
	} else {
		entry.WithFields(logrus.Fields{
			"price":    res.Analysis.Price,
			"duration": res.Analysis.Duration,
		}).Debug("priced bond")
	}
	return res
}

// curveMemo loads the curves of each issuer once per run.
type curveMemo struct {
	source CurveSource

	mu      sync.Mutex
	entries map[curveKey]*curveEntry
}

type curveKey struct {
	company   string
	withLibor bool
}

type curveEntry struct {
	once   sync.Once
	curves bond.Curves
	err    error
}

func newCurveMemo(source CurveSource) *curveMemo {
	return &curveMemo{source: source, entries: make(map[curveKey]*curveEntry)}
}

func (m *curveMemo) get(ctx context.Context, company string, withLibor bool) (bond.Curves, error) {
	key := curveKey{company: company, withLibor: withLibor}

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &curveEntry{}
		m.entries[key] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.curves, e.err = m.source.Curves(ctx, company, withLibor)
	})
	return e.curves, e.err
}
