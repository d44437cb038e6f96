// Package curve holds term-structure curves quoted on fractional-year maturities.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrEmptyCurve is returned when a curve is built without any points.
	ErrEmptyCurve = errors.New("curve has no points")
	// ErrLengthMismatch is returned when maturities and rates differ in length.
	ErrLengthMismatch = errors.New("maturities and rates differ in length")
	// ErrInvalidPoint is returned for non-finite values or negative maturities.
	ErrInvalidPoint = errors.New("invalid curve point")
)

// Point is a single (maturity, rate) node. Maturity is in years.
type Point struct {
	Maturity float64
	Rate     float64
}

// Curve is an immutable term structure.
//
// Rates are stored in whatever unit the source quotes them in: decimals for
// risk-free and index curves, basis points for credit spread curves.
type Curve struct {
	name       string
	maturities []float64
	rates      []float64
}

// New builds a curve from index-aligned maturities and rates. Inputs are
// copied and stable-sorted by maturity, so duplicate maturities keep their
// input order.
func New(name string, maturities, rates []float64) (*Curve, error) {
	if len(maturities) != len(rates) {
		return nil, fmt.Errorf("curve %q: %w (%d vs %d)", name, ErrLengthMismatch, len(maturities), len(rates))
	}
	if len(maturities) == 0 {
		return nil, fmt.Errorf("curve %q: %w", name, ErrEmptyCurve)
	}

	pts := make([]Point, len(maturities))
	for i := range maturities {
		pts[i] = Point{Maturity: maturities[i], Rate: rates[i]}
	}
	return FromPoints(name, pts)
}

// FromPoints builds a curve from a slice of points.
func FromPoints(name string, pts []Point) (*Curve, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("curve %q: %w", name, ErrEmptyCurve)
	}
	for i, p := range pts {
		if !isFinite(p.Maturity) || !isFinite(p.Rate) {
			return nil, fmt.Errorf("curve %q: %w at index %d (%v, %v)", name, ErrInvalidPoint, i, p.Maturity, p.Rate)
		}
		if p.Maturity < 0 {
			return nil, fmt.Errorf("curve %q: %w at index %d: negative maturity %v", name, ErrInvalidPoint, i, p.Maturity)
		}
	}

	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Maturity < sorted[j].Maturity
	})

	crv := &Curve{
		name:       name,
		maturities: make([]float64, len(sorted)),
		rates:      make([]float64, len(sorted)),
	}
	for i, p := range sorted {
		crv.maturities[i] = p.Maturity
		crv.rates[i] = p.Rate
	}
	return crv, nil
}

// Name returns the curve label.
func (c *Curve) Name() string { return c.name }

// Len returns the number of nodes.
func (c *Curve) Len() int { return len(c.maturities) }

// Points returns a copy of the nodes in ascending maturity order.
func (c *Curve) Points() []Point {
	out := make([]Point, len(c.maturities))
	for i := range c.maturities {
		out[i] = Point{Maturity: c.maturities[i], Rate: c.rates[i]}
	}
	return out
}

// Interpolate returns the rate at the given maturity.
//
// Inside the quoted range the rate is linearly interpolated between the
// bracketing nodes. Outside it the nearest end node is used (flat
// extrapolation).
func (c *Curve) Interpolate(maturity float64) float64 {
	last := len(c.maturities) - 1
	if maturity <= c.maturities[0] {
		return c.rates[0]
	}
	if maturity >= c.maturities[last] {
		return c.rates[last]
	}

	lo, hi := bracket(c.maturities, maturity)
	if c.maturities[lo] == c.maturities[hi] {
		return c.rates[lo]
	}

	mLo, mHi := c.maturities[lo], c.maturities[hi]
	rLo, rHi := c.rates[lo], c.rates[hi]
	return rLo + (maturity-mLo)*(rHi-rLo)/(mHi-mLo)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
