package bond

import (
	"fmt"
	"strings"
)

// Type is the amortization profile of a bond.
type Type int

const (
	// Bullet pays periodic coupons and repays the full principal at maturity.
	Bullet Type = iota + 1
	// ZeroCoupon pays a single redemption at maturity.
	ZeroCoupon
	// FixedAnnuity pays a level installment combining principal and interest.
	FixedAnnuity
	// ConstantAmortization repays equal principal slices with declining interest.
	ConstantAmortization
	// EqualSeriesRepayment repays principal in equal slices on a grid coarser
	// than the interest grid.
	EqualSeriesRepayment
)

var typeNames = map[Type]string{
	Bullet:               "bullet",
	ZeroCoupon:           "zero coupon",
	FixedAnnuity:         "fixed annuities",
	ConstantAmortization: "constant amortizations",
	EqualSeriesRepayment: "equal series repayment",
}

var typeAliases = map[string]Type{
	"bullet":                Bullet,
	"zerocoupon":            ZeroCoupon,
	"zero":                  ZeroCoupon,
	"fixedannuities":        FixedAnnuity,
	"fixedannuity":          FixedAnnuity,
	"annuity":               FixedAnnuity,
	"constantamortizations": ConstantAmortization,
	"constantamortization":  ConstantAmortization,
	"equalseriesrepayment":  EqualSeriesRepayment,
	"equalseries":           EqualSeriesRepayment,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is one of the known bond types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType maps a bond type label ("bullet", "zero coupon", "Fixed Annuities",
// "equal_series_repayment", ...) to a Type.
func ParseType(s string) (Type, error) {
	if t, ok := typeAliases[squash(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidBondType, s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBondType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// RateType tells how a bullet coupon is set. Other bond types ignore it.
type RateType int

const (
	RateUnset RateType = iota
	Fixed
	Variable
)

func (r RateType) String() string {
	switch r {
	case Fixed:
		return "Fixed"
	case Variable:
		return "Variable"
	default:
		return ""
	}
}

// ParseRateType accepts "Fixed", "Variable" (or "floating") and the empty string.
func ParseRateType(s string) (RateType, error) {
	switch squash(s) {
	case "":
		return RateUnset, nil
	case "fixed":
		return Fixed, nil
	case "variable", "floating", "float":
		return Variable, nil
	default:
		return RateUnset, fmt.Errorf("unknown coupon rate type %q", s)
	}
}

func (r RateType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RateType) UnmarshalText(b []byte) error {
	v, err := ParseRateType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Convention selects the cash-flow formulas.
//
// Literal reproduces the reference desk formulas, including their quirks:
// bullets use a notional of 1 while every other type uses 100, the coupon grid
// is anchored on the fractional part of the maturity and may stop short of it,
// and equal-series interest applies the full annual rate.
//
// Normalized uses a notional of 100 for every type, a coupon grid generated
// backward from maturity, and interest on the outstanding principal.
type Convention int

const (
	Literal Convention = iota
	Normalized
)

func (c Convention) String() string {
	switch c {
	case Literal:
		return "literal"
	case Normalized:
		return "normalized"
	default:
		return fmt.Sprintf("Convention(%d)", int(c))
	}
}

// ParseConvention accepts "literal" (or "") and "normalized".
func ParseConvention(s string) (Convention, error) {
	switch squash(s) {
	case "", "literal", "legacy":
		return Literal, nil
	case "normalized", "normalised":
		return Normalized, nil
	default:
		return Literal, fmt.Errorf("unknown convention %q", s)
	}
}

func (c Convention) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Convention) UnmarshalText(b []byte) error {
	v, err := ParseConvention(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Terms are the static economic terms of a bond.
type Terms struct {
	Type    Type
	Company string
	// Maturity is in years from the valuation date.
	Maturity float64
	// RateType only matters for bullets.
	RateType RateType
	// CouponRate is the annual coupon (decimal) for fixed bullets and the
	// amortization/annuity rate for the other types. For variable bullets it
	// is the margin over the index, in basis points.
	CouponRate float64
	// Frequency is the number of coupon periods per year. It may be
	// fractional: 0.5 means one coupon every two years.
	Frequency float64
}

// Cashflow is a single payment at a fractional-year period.
//
// Amounts are per the convention's notional (100, or 1 for literal bullets).
type Cashflow struct {
	Period    float64
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// Schedule is a chronologically ordered list of cash flows.
type Schedule []Cashflow

// Periods returns the payment periods in order.
func (s Schedule) Periods() []float64 {
	out := make([]float64, len(s))
	for i, cf := range s {
		out[i] = cf.Period
	}
	return out
}

// Amounts returns the total payment of each cash flow.
func (s Schedule) Amounts() []float64 {
	out := make([]float64, len(s))
	for i, cf := range s {
		out[i] = cf.Amount()
	}
	return out
}

// TotalPrincipal sums the principal components.
func (s Schedule) TotalPrincipal() float64 {
	total := 0.0
	for _, cf := range s {
		total += cf.Principal
	}
	return total
}

// squash lowercases s and drops separators so "Zero Coupon", "zero_coupon"
// and "zerocoupon" compare equal.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}
