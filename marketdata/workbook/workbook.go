// Package workbook reads curve tables from .xlsx workbooks. Each sheet is a
// table: row 1 is the header, column A holds maturities.
package workbook

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/meenmo/bondpricer/marketdata"
)

// Reader is a marketdata.TableReader over an open workbook.
type Reader struct {
	path string

	mu   sync.Mutex
	file *excelize.File
}

// Open opens the workbook at path. Callers must Close it.
func Open(path string) (*Reader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Reader{path: path, file: f}, nil
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// Sheets lists the sheet names in workbook order.
func (r *Reader) Sheets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.GetSheetList()
}

func (r *Reader) ReadTable(ctx context.Context, name string) (*marketdata.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.file.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", r.path, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q in %s", marketdata.ErrTableNotFound, name, r.path)
	}

	// Raw values keep percentage-formatted cells numeric.
	rows, err := r.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, &marketdata.DataSourceError{Table: name, Err: fmt.Errorf("sheet is empty")}
	}
	return marketdata.TableFromRecords(name, rows[0], rows[1:])
}
