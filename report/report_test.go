package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/bondpricer/bond"
	"github.com/meenmo/bondpricer/report"
	"github.com/meenmo/bondpricer/valuation"
)

func sampleResults() []valuation.Result {
	return []valuation.Result{
		{
			ID:         "zero-5y",
			Terms:      bond.Terms{Type: bond.ZeroCoupon, Company: "Apple", Maturity: 5, Frequency: 1},
			Convention: bond.Literal,
			Analysis: bond.Analysis{
				Price:       79.21643255896977,
				Duration:    5,
				Sensitivity: -4.81139337952271,
				Schedule:    bond.Schedule{{Period: 5, Principal: 100}},
			},
			Yield: bond.YieldResult{Yield: 0.04768123456, Price: 79.21643255896977, Iterations: 3},
		},
		{
			ID:         "floater",
			Terms:      bond.Terms{Type: bond.Bullet, Company: "Boeing", Maturity: 3, Frequency: 4, RateType: bond.Variable, CouponRate: 120},
			Convention: bond.Literal,
			Analysis: bond.Analysis{
				Errors: []*bond.OpError{
					{Op: bond.OpPrice, Type: bond.Bullet, Err: bond.ErrMissingCurveInput},
					{Op: bond.OpDuration, Type: bond.Bullet, Err: bond.ErrMissingCurveInput},
				},
			},
		},
		{
			ID:    "tesla",
			Terms: bond.Terms{Type: bond.FixedAnnuity, Company: "Tesla", Maturity: 10, Frequency: 1, CouponRate: 0.05},
			Err:   errors.New("issuer not found"),
		},
	}
}

func TestRows(t *testing.T) {
	t.Parallel()

	rows := report.Rows(sampleResults(), 4)
	require.Len(t, rows, 3)

	zero := rows[0]
	require.False(t, zero.Failed())
	require.Equal(t, "zero coupon", zero.BondType)
	require.Equal(t, "literal", zero.Convention)
	require.Equal(t, 79.2164, *zero.Price)
	require.Equal(t, 5.0, *zero.Duration)
	require.Equal(t, -4.8114, *zero.Sensitivity)
	require.Equal(t, 0.0477, *zero.Yield)
	if diff := cmp.Diff([]report.CashflowRow{{Period: 5, Principal: 100, Amount: 100}}, zero.Schedule); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}

	floater := rows[1]
	require.True(t, floater.Failed())
	require.Equal(t, "Variable", floater.CouponRateType)
	require.Nil(t, floater.Price)
	require.Nil(t, floater.Duration)
	require.Nil(t, floater.Yield)
	require.NotNil(t, floater.Sensitivity)
	require.Equal(t, map[string]string{"price": "missing curve input", "duration": "missing curve input"}, floater.Errors)

	require.Equal(t, "issuer not found", rows[2].Error)
	require.Nil(t, rows[2].Price)
}

func TestRows_NoRounding(t *testing.T) {
	t.Parallel()

	rows := report.Rows(sampleResults()[:1], -1)
	require.Equal(t, 79.21643255896977, *rows[0].Price)
}

func TestRows_JSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(report.Rows(sampleResults(), 2))
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, 79.22, decoded[0]["price"])
	require.Equal(t, "zero coupon", decoded[0]["bond_type"])
	require.NotContains(t, decoded[1], "price")
	require.Equal(t, "issuer not found", decoded[2]["error"])
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.Markdown(&buf, sampleResults(), 4))
	out := buf.String()

	for _, want := range []string{
		"# Bond valuation",
		"3 bonds, 2 with errors.",
		"| zero-5y | zero coupon | Apple | 5.0000 | 79.2164 | 5.0000 | -4.8114 | 4.7700% |",
		"| floater | bullet | Boeing | 3.0000 | n/a | n/a |",
		"## zero-5y",
		"| 5.0000 | 0.0000 | 100.0000 | 100.0000 |",
		"- Type: bullet (Variable)",
		"- duration: missing curve input",
		"- price: missing curve input",
		"**Error:** issuer not found",
	} {
		require.Contains(t, out, want)
	}
	require.Less(t, strings.Index(out, "- duration:"), strings.Index(out, "- price:"))
	require.NotContains(t, out, "<no value>")
}
