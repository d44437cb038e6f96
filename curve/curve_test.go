package curve_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meenmo/bondpricer/curve"
)

func mustCurve(t *testing.T, maturities, rates []float64) *curve.Curve {
	t.Helper()
	crv, err := curve.New("test", maturities, rates)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return crv
}

func TestInterpolate_Midpoint(t *testing.T) {
	t.Parallel()

	crv := mustCurve(t, []float64{1, 2}, []float64{0.01, 0.03})
	if got := crv.Interpolate(1.5); math.Abs(got-0.02) > 1e-15 {
		t.Fatalf("Interpolate(1.5) = %.17f, want 0.02", got)
	}
}

func TestInterpolate_FlatExtrapolation(t *testing.T) {
	t.Parallel()

	crv := mustCurve(t, []float64{0.5, 1, 5, 10}, []float64{0.041, 0.042, 0.039, 0.044})

	cases := []struct {
		name     string
		maturity float64
		want     float64
	}{
		{"zero", 0, 0.041},
		{"below min", 0.1, 0.041},
		{"at min", 0.5, 0.041},
		{"at max", 10, 0.044},
		{"above max", 30, 0.044},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := crv.Interpolate(tc.maturity); got != tc.want {
				t.Fatalf("Interpolate(%v) = %v, want %v", tc.maturity, got, tc.want)
			}
		})
	}
}

func TestInterpolate_ExactNodes(t *testing.T) {
	t.Parallel()

	mats := []float64{0.25, 0.5, 1, 2, 3, 5, 7, 10, 20, 30}
	rates := []float64{0.0430, 0.0425, 0.0410, 0.0395, 0.0390, 0.0392, 0.0400, 0.0415, 0.0445, 0.0440}
	crv := mustCurve(t, mats, rates)

	for i, m := range mats {
		if got := crv.Interpolate(m); got != rates[i] {
			t.Fatalf("Interpolate(%v) = %v, want exact node rate %v", m, got, rates[i])
		}
	}
}

func TestInterpolate_Linear(t *testing.T) {
	t.Parallel()

	crv := mustCurve(t, []float64{1, 2, 3, 5}, []float64{0.0410, 0.0395, 0.0390, 0.0392})
	want := 0.0390 + (4-3)*(0.0392-0.0390)/(5-3)
	if got := crv.Interpolate(4); math.Abs(got-want) > 1e-15 {
		t.Fatalf("Interpolate(4) = %.17f, want %.17f", got, want)
	}
}

func TestNew_SortsUnorderedInput(t *testing.T) {
	t.Parallel()

	crv := mustCurve(t, []float64{5, 1, 3}, []float64{0.05, 0.01, 0.03})
	pts := crv.Points()
	for i := 1; i < len(pts); i++ {
		if pts[i-1].Maturity > pts[i].Maturity {
			t.Fatalf("points not sorted: %+v", pts)
		}
	}
	if got := crv.Interpolate(2); math.Abs(got-0.02) > 1e-15 {
		t.Fatalf("Interpolate(2) = %v, want 0.02", got)
	}
}

func TestInterpolate_DuplicateMaturities(t *testing.T) {
	t.Parallel()

	// Duplicated nodes resolve to their first occurrence.
	crv := mustCurve(t, []float64{1, 2, 2, 3}, []float64{0.01, 0.02, 0.05, 0.03})
	if got := crv.Interpolate(2); got != 0.02 {
		t.Fatalf("Interpolate(2) = %v, want 0.02", got)
	}
	want := 0.01 + 0.5*(0.02-0.01)
	if got := crv.Interpolate(1.5); math.Abs(got-want) > 1e-15 {
		t.Fatalf("Interpolate(1.5) = %v, want %v", got, want)
	}
}

func TestInterpolate_SinglePoint(t *testing.T) {
	t.Parallel()

	crv := mustCurve(t, []float64{2}, []float64{0.03})
	for _, m := range []float64{0, 2, 40} {
		if got := crv.Interpolate(m); got != 0.03 {
			t.Fatalf("Interpolate(%v) = %v, want 0.03", m, got)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		mats  []float64
		rates []float64
		want  error
	}{
		{"empty", nil, nil, curve.ErrEmptyCurve},
		{"length mismatch", []float64{1, 2}, []float64{0.01}, curve.ErrLengthMismatch},
		{"nan rate", []float64{1}, []float64{math.NaN()}, curve.ErrInvalidPoint},
		{"inf maturity", []float64{math.Inf(1)}, []float64{0.01}, curve.ErrInvalidPoint},
		{"negative maturity", []float64{-1, 1}, []float64{0.01, 0.02}, curve.ErrInvalidPoint},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := curve.New("bad", tc.mats, tc.rates)
			if !errors.Is(err, tc.want) {
				t.Fatalf("New error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	t.Parallel()

	mats := []float64{1, 2}
	rates := []float64{0.01, 0.02}
	crv := mustCurve(t, mats, rates)
	rates[0] = 0.99

	if got := crv.Interpolate(1); got != 0.01 {
		t.Fatalf("curve mutated through caller slice: got %v", got)
	}
	if crv.Name() != "test" || crv.Len() != 2 {
		t.Fatalf("unexpected accessors: name=%q len=%d", crv.Name(), crv.Len())
	}
}
