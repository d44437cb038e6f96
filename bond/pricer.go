// Package bond prices fixed-income instruments off risk-free and credit
// spread curves and derives duration, rate sensitivity and the cash-flow
// schedule.
//
// Periods are simple fractional years from the valuation date. A cash flow
// at period t is discounted by
//
//	(1 + rf(t) + spread(t)/10000) ^ t
//
// where rf is the risk-free curve (decimal) and spread the issuer curve
// (basis points). The floating index curve only sets variable coupons and
// never enters the discount rate.
package bond

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/meenmo/bondpricer/curve"
)

// Curves is the market data a bond is priced against.
type Curves struct {
	RiskFree *curve.Curve
	// Spread is quoted in basis points.
	Spread *curve.Curve
	// Libor is the floating index curve; only variable bullets need it.
	Libor *curve.Curve
}

// Pricer values a single bond. It is immutable and safe for concurrent use.
type Pricer struct {
	terms Terms
	conv  Convention
	sched scheduler

	// Curve-independent schedules are built once.
	once   sync.Once
	static Schedule
}

// Option configures a Pricer.
type Option func(*Pricer)

// WithConvention selects the cash-flow formulas. The default is Literal.
func WithConvention(c Convention) Option {
	return func(p *Pricer) { p.conv = c }
}

// New validates the terms and returns a Pricer.
func New(t Terms, opts ...Option) (*Pricer, error) {
	sched, err := schedulerFor(t.Type)
	if err != nil {
		return nil, err
	}

	p := &Pricer{terms: t, sched: sched}
	for _, opt := range opts {
		opt(p)
	}
	if p.conv != Literal && p.conv != Normalized {
		return nil, fmt.Errorf("%w: unknown convention %s", ErrInvalidTerms, p.conv)
	}
	if err := validateTerms(t, p.conv); err != nil {
		return nil, err
	}
	return p, nil
}

func validateTerms(t Terms, conv Convention) error {
	if !isFinite(t.Maturity) || t.Maturity <= 0 {
		return fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidTerms, t.Maturity)
	}
	if !isFinite(t.Frequency) || t.Frequency <= 0 {
		return fmt.Errorf("%w: coupon frequency must be positive, got %v", ErrInvalidTerms, t.Frequency)
	}
	if !isFinite(t.CouponRate) {
		return fmt.Errorf("%w: coupon rate must be finite, got %v", ErrInvalidTerms, t.CouponRate)
	}

	switch t.Type {
	case ZeroCoupon:
		return nil
	case Bullet:
		if t.RateType != Fixed && t.RateType != Variable {
			return fmt.Errorf("%w: bullet requires a Fixed or Variable coupon rate type", ErrInvalidTerms)
		}
	case FixedAnnuity:
		if 1+t.CouponRate/t.Frequency <= 0 {
			return fmt.Errorf("%w: annuity rate per period must exceed -100%%, got %v", ErrInvalidTerms, t.CouponRate/t.Frequency)
		}
	}

	if conv == Literal {
		first := literalFirstCoupon(t.Maturity, 1/t.Frequency)
		if first > t.Maturity+gridEps {
			return fmt.Errorf("%w: first coupon at %v falls after maturity %v", ErrInvalidTerms, first, t.Maturity)
		}
		if (t.Type == ConstantAmortization || t.Type == EqualSeriesRepayment) && int(t.Maturity*t.Frequency) < 1 {
			return fmt.Errorf("%w: %s needs at least one repayment, got maturity*frequency=%v", ErrInvalidTerms, t.Type, t.Maturity*t.Frequency)
		}
	}
	return nil
}

// Terms returns the bond terms.
func (p *Pricer) Terms() Terms { return p.terms }

// Convention returns the cash-flow convention in use.
func (p *Pricer) Convention() Convention { return p.conv }

// Price returns the present value of the schedule.
//
// Literal bullets are priced per 1 of notional; everything else per 100.
func (p *Pricer) Price(c Curves) (float64, error) {
	s, err := p.cashflows(c)
	if err != nil {
		return 0, p.opError(OpPrice, err)
	}
	v, err := presentValue(s, c)
	if err != nil {
		return 0, p.opError(OpPrice, err)
	}
	return v, nil
}

// Duration returns the Macaulay duration in years.
func (p *Pricer) Duration(c Curves) (float64, error) {
	s, err := p.cashflows(c)
	if err != nil {
		return 0, p.opError(OpDuration, err)
	}
	d, err := macaulay(s, c)
	if err != nil {
		return 0, p.opError(OpDuration, err)
	}
	return d, nil
}

// Sensitivity returns -duration / (1 + rf(maturity)), the first-order price
// change per unit parallel shift of the risk-free curve.
func (p *Pricer) Sensitivity(c Curves) (float64, error) {
	s, err := p.cashflows(c)
	if err != nil {
		return 0, p.opError(OpSensitivity, err)
	}
	d, err := macaulay(s, c)
	if err != nil {
		return 0, p.opError(OpSensitivity, err)
	}
	v, err := p.sensitivity(d, c)
	if err != nil {
		return 0, p.opError(OpSensitivity, err)
	}
	return v, nil
}

// Schedule returns the cash flows in period order. The last period is the
// maturity.
func (p *Pricer) Schedule(c Curves) (Schedule, error) {
	s, err := p.cashflows(c)
	if err != nil {
		return nil, p.opError(OpSchedule, err)
	}
	return slices.Clone(s), nil
}

// Analysis collects every metric of a bond. A failed operation leaves its
// field zero and records an OpError; the other fields are still filled.
type Analysis struct {
	Price       float64
	Duration    float64
	Sensitivity float64
	Schedule    Schedule
	Errors      []*OpError
}

// Failed reports whether the named operation failed.
func (a Analysis) Failed(op string) bool {
	for _, e := range a.Errors {
		if e.Op == op {
			return true
		}
	}
	return false
}

// Err joins the operation errors, or returns nil.
func (a Analysis) Err() error {
	if len(a.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(a.Errors))
	for i, e := range a.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Analyze runs price, duration, sensitivity and schedule in one pass.
func (p *Pricer) Analyze(c Curves) Analysis {
	var a Analysis
	fail := func(op string, err error) {
		a.Errors = append(a.Errors, p.opError(op, err))
	}

	s, err := p.cashflows(c)
	if err != nil {
		for _, op := range []string{OpPrice, OpDuration, OpSensitivity, OpSchedule} {
			fail(op, err)
		}
		return a
	}
	a.Schedule = slices.Clone(s)

	if v, err := presentValue(s, c); err != nil {
		fail(OpPrice, err)
	} else {
		a.Price = v
	}

	d, err := macaulay(s, c)
	if err != nil {
		fail(OpDuration, err)
		fail(OpSensitivity, err)
		return a
	}
	a.Duration = d

	if v, err := p.sensitivity(d, c); err != nil {
		fail(OpSensitivity, err)
	} else {
		a.Sensitivity = v
	}
	return a
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

func (p *Pricer) opError(op string, err error) *OpError {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe
	}
	return &OpError{Op: op, Type: p.terms.Type, Err: err}
}

// cashflows checks the curves and returns the schedule. Callers must not
// modify the result.
func (p *Pricer) cashflows(c Curves) (Schedule, error) {
	if c.RiskFree == nil {
		return nil, fmt.Errorf("%w: risk-free curve is nil", ErrMissingCurveInput)
	}
	if c.Spread == nil {
		return nil, fmt.Errorf("%w: spread curve is nil", ErrMissingCurveInput)
	}

	if p.sched.floating(p.terms) {
		if c.Libor == nil {
			return nil, fmt.Errorf("%w: variable-rate bullet needs an index curve", ErrMissingCurveInput)
		}
		return p.sched.build(p.terms, p.conv, c.Libor), nil
	}

	p.once.Do(func() {
		p.static = p.sched.build(p.terms, p.conv, nil)
	})
	return p.static, nil
}

func (p *Pricer) sensitivity(duration float64, c Curves) (float64, error) {
	denom := 1 + c.RiskFree.Interpolate(p.terms.Maturity)
	if denom == 0 {
		return 0, fmt.Errorf("%w: 1 + rf(%v) is zero", ErrNonFinite, p.terms.Maturity)
	}
	return -duration / denom, nil
}

// discountFactor returns (1 + rf(t) + spread(t)/10000)^t.
func discountFactor(c Curves, t float64) (float64, error) {
	base := 1 + c.RiskFree.Interpolate(t) + c.Spread.Interpolate(t)/10000
	df := math.Pow(base, t)
	if !isFinite(df) || df <= 0 {
		return 0, fmt.Errorf("%w: discount base %v at period %v", ErrNonFinite, base, t)
	}
	return df, nil
}

func presentValue(s Schedule, c Curves) (float64, error) {
	pv := 0.0
	for _, cf := range s {
		df, err := discountFactor(c, cf.Period)
		if err != nil {
			return 0, err
		}
		pv += cf.Amount() / df
	}
	return pv, nil
}

// macaulay returns sum(t * cf / df) / sum(cf / df).
func macaulay(s Schedule, c Curves) (float64, error) {
	pv, weighted := 0.0, 0.0
	for _, cf := range s {
		df, err := discountFactor(c, cf.Period)
		if err != nil {
			return 0, err
		}
		pv += cf.Amount() / df
		weighted += cf.Period * cf.Amount() / df
	}
	if pv == 0 {
		return 0, fmt.Errorf("%w: price is zero", ErrNonFinite)
	}
	return weighted / pv, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
