package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/meenmo/bondpricer/internal/config"
	"github.com/meenmo/bondpricer/marketdata"
	"github.com/meenmo/bondpricer/marketdata/jsonfile"
	"github.com/meenmo/bondpricer/marketdata/pgstore"
	"github.com/meenmo/bondpricer/marketdata/workbook"
)

// openReader opens the configured table reader. The returned func releases
// it.
func openReader(ctx context.Context, src config.SourceConfig) (marketdata.TableReader, func(), error) {
	switch src.Kind {
	case config.SourceWorkbook:
		r, err := workbook.Open(src.Path)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case config.SourceJSON:
		r, err := jsonfile.Load(src.Path)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	case config.SourcePostgres:
		s, err := pgstore.Open(ctx, src.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// fileSource picks the file reader kind from the extension.
func fileSource(path string) config.SourceConfig {
	kind := config.SourceJSON
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".xlsx" || ext == ".xlsm" {
		kind = config.SourceWorkbook
	}
	return config.SourceConfig{Kind: kind, Path: path}
}

func (a *app) source(ctx context.Context) (*marketdata.Source, func(), error) {
	r, closer, err := openReader(ctx, a.cfg.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s source: %w", a.cfg.Source.Kind, err)
	}
	return marketdata.NewSource(r, a.cfg.Tables, a.log), closer, nil
}
