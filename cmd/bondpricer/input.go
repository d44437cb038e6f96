package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meenmo/bondpricer/bond"
)

// bondInput is one bond as read from JSON.
type bondInput struct {
	ID                 string  `json:"id,omitempty"`
	BondType           string  `json:"bond_type"`
	Company            string  `json:"company"`
	Maturity           float64 `json:"maturity"`
	CouponRateType     string  `json:"coupon_rate_type,omitempty"`
	CouponRateOrMargin float64 `json:"coupon_rate_or_margin"`
	CouponFrequency    float64 `json:"coupon_frequency"`
}

func (in bondInput) terms() (bond.Terms, error) {
	t := bond.Terms{
		Company:    strings.TrimSpace(in.Company),
		Maturity:   in.Maturity,
		CouponRate: in.CouponRateOrMargin,
		Frequency:  in.CouponFrequency,
	}

	typ, err := bond.ParseType(in.BondType)
	if err != nil {
		return t, err
	}
	t.Type = typ

	rt, err := bond.ParseRateType(in.CouponRateType)
	if err != nil {
		return t, fmt.Errorf("%w: %v", bond.ErrInvalidTerms, err)
	}
	t.RateType = rt
	return t, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

// parseInputs accepts a single object or an array and reports which one it
// got so the output can mirror it.
func parseInputs(raw []byte) ([]bondInput, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var inputs []bondInput
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input bondInput
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []bondInput{input}, false, nil
}
