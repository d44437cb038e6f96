package bond

import (
	"fmt"
	"math"

	"github.com/meenmo/bondpricer/curve"
)

// scheduler generates the cash-flow schedule of one bond type.
//
// index is the floating-rate curve; only variable bullets read it.
type scheduler interface {
	build(t Terms, conv Convention, index *curve.Curve) Schedule
	// floating reports whether the schedule depends on the index curve.
	floating(t Terms) bool
}

func schedulerFor(typ Type) (scheduler, error) {
	switch typ {
	case ZeroCoupon:
		return zeroCoupon{}, nil
	case Bullet:
		return bullet{}, nil
	case FixedAnnuity:
		return annuity{}, nil
	case ConstantAmortization:
		return constantAmortization{}, nil
	case EqualSeriesRepayment:
		return equalSeries{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBondType, typ)
	}
}

// notional returns the face value the convention prices a bond type on.
func notional(typ Type, conv Convention) float64 {
	if typ == Bullet && conv == Literal {
		return 1
	}
	return 100
}

// ---------------------------------------------------------------------------
// zero coupon
// ---------------------------------------------------------------------------

type zeroCoupon struct{}

func (zeroCoupon) floating(Terms) bool { return false }

func (zeroCoupon) build(t Terms, conv Convention, _ *curve.Curve) Schedule {
	return Schedule{{Period: t.Maturity, Principal: notional(ZeroCoupon, conv)}}
}

// ---------------------------------------------------------------------------
// bullet
// ---------------------------------------------------------------------------

type bullet struct{}

func (bullet) floating(t Terms) bool { return t.RateType == Variable }

func (b bullet) build(t Terms, conv Convention, index *curve.Curve) Schedule {
	face := notional(Bullet, conv)

	var periods []float64
	if conv == Literal {
		periods = literalGrid(t.Maturity, t.Frequency)
	} else {
		periods = backwardGrid(t.Maturity, t.Frequency)
	}

	out := make(Schedule, 0, len(periods)+1)
	for _, p := range periods {
		out = append(out, Cashflow{Period: p, Coupon: face * b.couponRate(t, index, p) / t.Frequency})
	}

	last := len(out) - 1
	if last >= 0 && math.Abs(out[last].Period-t.Maturity) < gridEps {
		out[last].Principal = face
		return out
	}
	// The literal grid can stop short of maturity; redemption is then a
	// separate flow.
	return append(out, Cashflow{Period: t.Maturity, Principal: face})
}

// couponRate is the annual coupon rate paid at period p.
func (bullet) couponRate(t Terms, index *curve.Curve, p float64) float64 {
	if t.RateType == Variable {
		return t.CouponRate/10000 + index.Interpolate(p)
	}
	return t.CouponRate
}

// ---------------------------------------------------------------------------
// fixed annuity
// ---------------------------------------------------------------------------

type annuity struct{}

func (annuity) floating(Terms) bool { return false }

func (annuity) build(t Terms, conv Convention, _ *curve.Curve) Schedule {
	rate := t.CouponRate / t.Frequency

	var periods []float64
	var payment float64
	if conv == Literal {
		periods = literalGrid(t.Maturity, t.Frequency)
		payment = annuityPayment(100, rate, t.Maturity*t.Frequency)
	} else {
		periods = backwardGrid(t.Maturity, t.Frequency)
		payment = annuityPayment(100, rate, float64(len(periods)))
	}

	out := make(Schedule, 0, len(periods))
	outstanding := 100.0
	for i, p := range periods {
		interest := outstanding * rate
		principal := payment - interest
		if conv == Normalized && i == len(periods)-1 {
			principal = outstanding
		}
		outstanding -= principal
		out = append(out, Cashflow{Period: p, Coupon: interest, Principal: principal})
	}
	return out
}

// annuityPayment is the level payment amortizing face over n periods at the
// per-period rate.
func annuityPayment(face, rate, n float64) float64 {
	if rate == 0 {
		return face / n
	}
	return face * rate / (1 - math.Pow(1+rate, -n))
}

// ---------------------------------------------------------------------------
// constant amortization
// ---------------------------------------------------------------------------

type constantAmortization struct{}

func (constantAmortization) floating(Terms) bool { return false }

func (c constantAmortization) build(t Terms, conv Convention, _ *curve.Curve) Schedule {
	if conv == Normalized {
		return c.normalized(t)
	}

	m, f := t.Maturity, t.Frequency
	periods := literalGrid(m, f)
	principal := 100 / (m - literalFirstCoupon(m, 1/f) + 1)
	n := float64(int(m * f))

	out := make(Schedule, 0, len(periods))
	for _, p := range periods {
		// Straight-line proxy of the outstanding notional, indexed by the
		// period in years.
		interest := 100 * (n - (p - 1)) / n * (t.CouponRate / f)
		out = append(out, Cashflow{Period: p, Coupon: interest, Principal: principal})
	}
	return out
}

func (constantAmortization) normalized(t Terms) Schedule {
	periods := backwardGrid(t.Maturity, t.Frequency)
	slice := 100 / float64(len(periods))
	rate := t.CouponRate / t.Frequency

	out := make(Schedule, 0, len(periods))
	outstanding := 100.0
	for i, p := range periods {
		principal := slice
		if i == len(periods)-1 {
			principal = outstanding
		}
		out = append(out, Cashflow{Period: p, Coupon: outstanding * rate, Principal: principal})
		outstanding -= principal
	}
	return out
}

// ---------------------------------------------------------------------------
// equal series repayment
// ---------------------------------------------------------------------------

type equalSeries struct{}

func (equalSeries) floating(Terms) bool { return false }

// amortizationState is the value folded across equal-series periods.
type amortizationState struct {
	outstanding float64
	schedule    Schedule
}

// step pays a year of interest on the outstanding principal plus the given
// principal slice.
func (s amortizationState) step(period, rate, principal float64) amortizationState {
	interest := s.outstanding * rate
	return amortizationState{
		outstanding: s.outstanding - principal,
		schedule:    append(s.schedule, Cashflow{Period: period, Coupon: interest, Principal: principal}),
	}
}

func (e equalSeries) build(t Terms, conv Convention, _ *curve.Curve) Schedule {
	if conv == Normalized {
		return e.normalized(t)
	}

	m, f := t.Maturity, t.Frequency
	periods := literalAnnualGrid(m)
	total := int(m * f)
	slice := 100 / float64(total)

	state := amortizationState{outstanding: 100, schedule: make(Schedule, 0, len(periods))}
	for _, p := range periods {
		principal := 0.0
		if onLiteralGrid(p, m, f, total) {
			principal = slice
		}
		state = state.step(p, t.CouponRate, principal)
	}
	return state.schedule
}

// normalized pays annual interest on a grid rolled back from maturity and
// repays equal slices on the years that also fall on the 1/f repayment grid.
// Maturity is always a repayment date.
func (equalSeries) normalized(t Terms) Schedule {
	periods := backwardGrid(t.Maturity, 1)
	n := len(periods)

	repay := make([]bool, n)
	count := 0
	for k := range periods {
		years := float64(n - 1 - k)
		x := years * t.Frequency
		if math.Abs(x-math.Round(x)) < gridEps {
			repay[k] = true
			count++
		}
	}
	slice := 100 / float64(count)

	state := amortizationState{outstanding: 100, schedule: make(Schedule, 0, n)}
	for k, p := range periods {
		principal := 0.0
		switch {
		case k == n-1:
			principal = state.outstanding
		case repay[k]:
			principal = slice
		}
		state = state.step(p, t.CouponRate, principal)
	}
	return state.schedule
}
