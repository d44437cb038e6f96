package workbook_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meenmo/bondpricer/marketdata"
	"github.com/meenmo/bondpricer/marketdata/workbook"
)

// writeWorkbook saves a workbook laid out like the desk file: one sheet per
// curve, header on row 1.
func writeWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{
		"US Yield Curve": {
			{"Maturity", "Rate"},
			{0.25, 0.043},
			{"1Y", 0.041},
			{5, 0.0392},
		},
		"Libor 3M Curve": {
			{"Maturity", "Rate"},
			{0.25, 0.053},
			{1, 0.0505},
		},
		"CDX_IG_Prices": {
			{"Maturity", "Apple", "Boeing"},
			{1, 45, 80},
			{3, 68, nil},
			{5, 85, 140},
		},
	}
	order := []string{"US Yield Curve", "Libor 3M Curve", "CDX_IG_Prices"}

	require.NoError(t, f.SetSheetName("Sheet1", order[0]))
	for _, name := range order[1:] {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	for _, name := range order {
		for i, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "curves.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReader_ReadTable(t *testing.T) {
	t.Parallel()

	r, err := workbook.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, []string{"US Yield Curve", "Libor 3M Curve", "CDX_IG_Prices"}, r.Sheets())

	tbl, err := r.ReadTable(context.Background(), "US Yield Curve")
	require.NoError(t, err)
	require.Equal(t, []float64{0.25, 1, 5}, tbl.Maturities)
	require.Equal(t, []string{"Rate"}, tbl.Columns)
	rates, _ := tbl.Column("Rate")
	require.InDeltaSlice(t, []float64{0.043, 0.041, 0.0392}, rates, 1e-15)

	_, err = r.ReadTable(context.Background(), "EUR Curve")
	require.ErrorIs(t, err, marketdata.ErrTableNotFound)
}

func TestReader_ThroughSource(t *testing.T) {
	t.Parallel()

	r, err := workbook.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer r.Close()

	src := marketdata.NewSource(r, marketdata.DefaultTables(), nil)
	c, err := src.Curves(context.Background(), "Boeing", true)
	require.NoError(t, err)
	require.InDelta(t, 110, c.Spread.Interpolate(3), 1e-12)
	require.InDelta(t, 0.0505, c.Libor.Interpolate(2), 1e-12)

	_, err = src.Curves(context.Background(), "Tesla", false)
	require.ErrorIs(t, err, marketdata.ErrIssuerNotFound)
}

func TestOpen_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := workbook.Open(filepath.Join(t.TempDir(), "none.xlsx"))
	require.Error(t, err)
}
