// Package jsonfile reads curve tables from a JSON document:
//
//	{"tables": [{"name": "US Yield Curve", "columns": ["Maturity", "Rate"],
//	             "rows": [["1", 0.041], ["2Y", 0.0395]]}]}
//
// Cells may be numbers, strings or null.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meenmo/bondpricer/marketdata"
)

type document struct {
	Tables []tableJSON `json:"tables"`
}

type tableJSON struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// Load reads and parses the document at path.
func Load(path string) (*marketdata.MemoryReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curve document: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a curve document into a MemoryReader.
func Decode(r io.Reader) (*marketdata.MemoryReader, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode curve document: %w", err)
	}

	out := marketdata.NewMemoryReader()
	for _, tj := range doc.Tables {
		t, err := tj.table()
		if err != nil {
			return nil, err
		}
		out.Add(t)
	}
	return out, nil
}

// Reader is a marketdata.TableReader that re-reads the file on every call.
// Wrap it in a marketdata.Source to read each table once.
type Reader struct {
	Path string
}

func (r Reader) ReadTable(ctx context.Context, name string) (*marketdata.Table, error) {
	m, err := Load(r.Path)
	if err != nil {
		return nil, err
	}
	return m.ReadTable(ctx, name)
}

func (tj tableJSON) table() (*marketdata.Table, error) {
	if tj.Name == "" {
		return nil, fmt.Errorf("curve document: table without a name")
	}
	rows := make([][]string, len(tj.Rows))
	for i, row := range tj.Rows {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			s, err := cellString(cell)
			if err != nil {
				return nil, &marketdata.DataSourceError{Table: tj.Name, Err: fmt.Errorf("row %d cell %d: %w", i+1, j+1, err)}
			}
			rows[i][j] = s
		}
	}
	return marketdata.TableFromRecords(tj.Name, tj.Columns, rows)
}

func cellString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("cell %s is neither a number nor a string", raw)
	}
	return s, nil
}

