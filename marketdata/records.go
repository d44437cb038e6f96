package marketdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TableFromRecords builds a table from string cells. header[0] labels the
// maturity column and the remaining entries name the rate columns. Rows
// with an empty maturity cell are skipped; empty rate cells become NaN.
func TableFromRecords(name string, header []string, rows [][]string) (*Table, error) {
	if len(header) < 2 {
		return nil, &DataSourceError{Table: name, Err: fmt.Errorf("need a maturity column and at least one rate column, got %d columns", len(header))}
	}

	columns := make([]string, len(header)-1)
	for i, h := range header[1:] {
		columns[i] = strings.TrimSpace(h)
	}
	values := make([][]float64, len(columns))
	var maturities []float64

	for r, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		m, err := ParseMaturity(row[0])
		if err != nil {
			return nil, &DataSourceError{Table: name, Column: header[0], Err: fmt.Errorf("row %d: %w", r+1, err)}
		}
		maturities = append(maturities, m)

		for c := range columns {
			v := math.NaN()
			if c+1 < len(row) {
				if cell := strings.TrimSpace(row[c+1]); cell != "" {
					if v, err = strconv.ParseFloat(cell, 64); err != nil {
						return nil, &DataSourceError{Table: name, Column: columns[c], Err: fmt.Errorf("row %d: %w", r+1, err)}
					}
				}
			}
			values[c] = append(values[c], v)
		}
	}

	if len(maturities) == 0 {
		return nil, &DataSourceError{Table: name, Err: fmt.Errorf("no data rows")}
	}
	return NewTable(name, maturities, columns, values)
}
