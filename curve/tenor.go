package curve

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTenor converts tenor labels like "1W", "3M", "10Y" or "30D" to years.
// A bare number is taken as years already.
func ParseTenor(tenor string) (float64, error) {
	t := strings.ToUpper(strings.TrimSpace(tenor))
	if t == "" {
		return 0, fmt.Errorf("empty tenor")
	}

	unit := t[len(t)-1]
	var scale float64
	switch unit {
	case 'D':
		scale = 1.0 / 365.0
	case 'W':
		scale = 7.0 / 365.0
	case 'M':
		scale = 1.0 / 12.0
	case 'Y':
		scale = 1.0
	default:
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("parse tenor %q: %w", tenor, err)
		}
		return v, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(t[:len(t)-1]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse tenor %q: %w", tenor, err)
	}
	return v * scale, nil
}
