package bond

import "math"

// gridEps is the tolerance used when matching periods across grids.
const gridEps = 1e-9

// ---------------------------------------------------------------------------
// literal grids
// ---------------------------------------------------------------------------

// literalFirstCoupon is the first period of the reference grid: the
// fractional part of the maturity plus one coupon period.
func literalFirstCoupon(maturity, step float64) float64 {
	return maturity - math.Trunc(maturity) + step
}

// literalGrid reproduces the reference coupon grid:
//
//	first = m - trunc(m) + 1/f
//	count = trunc((m - first) * f) + 1
//	t_j   = first + j*(1/f)
//
// The product is converted explicitly so the compiler cannot fuse it into
// the addition; the periods must round exactly like the reference.
func literalGrid(maturity, freq float64) []float64 {
	step := 1 / freq
	first := literalFirstCoupon(maturity, step)
	n := int((maturity-first)*freq) + 1
	if n <= 0 {
		return nil
	}

	periods := make([]float64, 0, n)
	for j := 0; j < n; j++ {
		periods = append(periods, first+float64(float64(j)*step))
	}
	return periods
}

// literalAnnualGrid is the whole-year outer grid used by equal-series bonds.
func literalAnnualGrid(maturity float64) []float64 {
	first := literalFirstCoupon(maturity, 1)
	n := int(maturity-first) + 1
	if n <= 0 {
		return nil
	}

	periods := make([]float64, 0, n)
	for j := 0; j < n; j++ {
		periods = append(periods, first+float64(j))
	}
	return periods
}

// onLiteralGrid reports whether period coincides with one of the first
// count points of the reference coupon grid.
func onLiteralGrid(period, maturity, freq float64, count int) bool {
	step := 1 / freq
	first := literalFirstCoupon(maturity, step)
	for k := 0; k < count; k++ {
		if math.Abs(period-(first+float64(float64(k)*step))) < gridEps {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// normalized grid
// ---------------------------------------------------------------------------

// periodCount is the number of coupon periods of length 1/f that fit in
// maturity, counting a leading short stub as a full period.
func periodCount(maturity, freq float64) int {
	n := int(math.Ceil(maturity*freq - gridEps))
	if n < 1 {
		n = 1
	}
	return n
}

// backwardGrid rolls back from maturity in steps of 1/f and keeps every
// strictly positive period. The last period is exactly maturity.
func backwardGrid(maturity, freq float64) []float64 {
	n := periodCount(maturity, freq)
	periods := make([]float64, n)
	for k := 1; k <= n; k++ {
		periods[k-1] = maturity - float64(n-k)/freq
	}
	return periods
}
