package bond

import (
	"fmt"
	"math"
)

// YieldResult is the output of ImpliedYield.
type YieldResult struct {
	// Yield is the flat annual rate (decimal) that reprices the schedule.
	Yield float64
	// Price is the curve price the yield was solved against.
	Price float64
	// Iterations is the number of Newton-Raphson steps taken.
	Iterations int
}

// ImpliedYield solves for the flat yield y such that
//
//	sum(cf_k / (1+y)^t_k) == Price(c)
//
// The solver uses Newton-Raphson with analytic first derivative, starting
// from the curve rate at maturity.
func (p *Pricer) ImpliedYield(c Curves) (YieldResult, error) {
	s, err := p.cashflows(c)
	if err != nil {
		return YieldResult{}, p.opError(OpYield, err)
	}
	target, err := presentValue(s, c)
	if err != nil {
		return YieldResult{}, p.opError(OpYield, err)
	}

	m := p.terms.Maturity
	guess := c.RiskFree.Interpolate(m) + c.Spread.Interpolate(m)/10000
	y, iterations, err := solveYield(target, guess, s)
	if err != nil {
		return YieldResult{}, p.opError(OpYield, err)
	}

	return YieldResult{Yield: y, Price: target, Iterations: iterations}, nil
}

// ---------------------------------------------------------------------------
// Newton-Raphson solver (unexported)
// ---------------------------------------------------------------------------

const (
	yieldTolerance = 1e-12
	yieldMaxIter   = 100
	yieldFloor     = -0.05
	yieldCeiling   = 0.50
)

// solveYield finds y such that flatPrice(y) == target via Newton-Raphson.
func solveYield(target, guess float64, s Schedule) (float64, int, error) {
	y := clamp(guess, yieldFloor, yieldCeiling)

	for iter := 0; iter < yieldMaxIter; iter++ {
		price, dPdy := flatPriceAndDeriv(y, s)
		f := price - target

		if math.Abs(f) < yieldTolerance*math.Max(1, math.Abs(target)) {
			return y, iter + 1, nil
		}
		if math.Abs(dPdy) < 1e-15 {
			return y, iter + 1, fmt.Errorf("%w: derivative too small at iter %d", ErrNoConvergence, iter)
		}

		y = clamp(y-f/dPdy, yieldFloor, yieldCeiling)
	}

	return y, yieldMaxIter, fmt.Errorf("%w after %d iterations", ErrNoConvergence, yieldMaxIter)
}

// flatPriceAndDeriv returns (price, dPrice/dy) at a flat annual yield.
//
//	price = sum CF_k / (1+y)^t_k
//	dP/dy = sum -t_k * CF_k / (1+y)^(t_k+1)
func flatPriceAndDeriv(y float64, s Schedule) (float64, float64) {
	var price, deriv float64
	for _, cf := range s {
		amt := cf.Amount()
		price += amt / math.Pow(1.0+y, cf.Period)
		deriv += -cf.Period * amt / math.Pow(1.0+y, cf.Period+1)
	}
	return price, deriv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
