// Package report turns valuation results into JSON rows and markdown.
package report

import (
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/meenmo/bondpricer/bond"
	"github.com/meenmo/bondpricer/valuation"
)

//go:embed templates/*.md
var templates embed.FS

// Row is the serialized form of a valuation result. Metrics of failed
// operations are omitted.
type Row struct {
	ID             string        `json:"id,omitempty"`
	BondType       string        `json:"bond_type"`
	Company        string        `json:"company"`
	Maturity       float64       `json:"maturity"`
	CouponRateType string        `json:"coupon_rate_type,omitempty"`
	CouponRate     float64       `json:"coupon_rate_or_margin"`
	Frequency      float64       `json:"coupon_frequency"`
	Convention     string        `json:"convention"`
	Price          *float64      `json:"price,omitempty"`
	Duration       *float64      `json:"duration,omitempty"`
	Sensitivity    *float64      `json:"sensitivity,omitempty"`
	Yield          *float64      `json:"yield,omitempty"`
	Schedule       []CashflowRow `json:"schedule,omitempty"`
	// Error is set when the bond could not be priced at all.
	Error string `json:"error,omitempty"`
	// Errors maps a failed operation to its message.
	Errors map[string]string `json:"errors,omitempty"`
}

type CashflowRow struct {
	Period    float64 `json:"period"`
	Coupon    float64 `json:"coupon"`
	Principal float64 `json:"principal"`
	Amount    float64 `json:"amount"`
}

// Failed reports whether the row carries any error.
func (r Row) Failed() bool { return r.Error != "" || len(r.Errors) > 0 }

// Rows converts results, rounding every figure half away from zero to
// precision decimal places. A negative precision disables rounding.
func Rows(results []valuation.Result, precision int32) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = newRow(r, precision)
	}
	return rows
}

func newRow(r valuation.Result, precision int32) Row {
	round := func(v float64) float64 { return roundTo(v, precision) }
	t := r.Terms

	row := Row{
		ID:             r.ID,
		Company:        t.Company,
		Maturity:       t.Maturity,
		CouponRateType: t.RateType.String(),
		CouponRate:     t.CouponRate,
		Frequency:      t.Frequency,
		Convention:     r.Convention.String(),
	}
	if t.Type.Valid() {
		row.BondType = t.Type.String()
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
		return row
	}

	a := r.Analysis
	failed := make(map[string]bool)
	for _, e := range a.Errors {
		if row.Errors == nil {
			row.Errors = make(map[string]string)
		}
		row.Errors[e.Op] = e.Err.Error()
		failed[e.Op] = true
	}

	metric := func(op string, v float64) *float64 {
		if failed[op] {
			return nil
		}
		x := round(v)
		return &x
	}
	row.Price = metric(bond.OpPrice, a.Price)
	row.Duration = metric(bond.OpDuration, a.Duration)
	row.Sensitivity = metric(bond.OpSensitivity, a.Sensitivity)
	if !failed[bond.OpPrice] {
		row.Yield = metric(bond.OpYield, r.Yield.Yield)
	}

	for _, cf := range a.Schedule {
		row.Schedule = append(row.Schedule, CashflowRow{
			Period:    round(cf.Period),
			Coupon:    round(cf.Coupon),
			Principal: round(cf.Principal),
			Amount:    round(cf.Amount()),
		})
	}
	return row
}

func roundTo(v float64, precision int32) float64 {
	if precision < 0 {
		return v
	}
	return decimal.NewFromFloat(v).Round(precision).InexactFloat64()
}

// Markdown writes a report with a summary table and one section per bond.
func Markdown(w io.Writer, results []valuation.Result, precision int32) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"num": func(v float64) string { return formatFixed(v, precision) },
		"opt": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return formatFixed(*v, precision)
		},
		"pct": func(v *float64) string {
			if v == nil {
				return "n/a"
			}
			return formatFixed(*v*100, precision) + "%"
		},
	}).ParseFS(templates, "templates/*.md")
	if err != nil {
		return fmt.Errorf("parse report templates: %w", err)
	}

	data := struct {
		Rows   []Row
		Failed int
	}{Rows: Rows(results, precision)}
	for _, r := range data.Rows {
		if r.Failed() {
			data.Failed++
		}
	}

	if err := tmpl.ExecuteTemplate(w, "report.md", data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func formatFixed(v float64, precision int32) string {
	d := decimal.NewFromFloat(v)
	if precision < 0 {
		return d.String()
	}
	return d.StringFixed(precision)
}
