package marketdata

import (
	"context"
	"fmt"
	"sync"
)

// MemoryReader is a map-backed TableReader for tests and embedding.
type MemoryReader struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewMemoryReader(tables ...*Table) *MemoryReader {
	m := &MemoryReader{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		m.Add(t)
	}
	return m
}

// Add stores t under its name, replacing any table of the same name.
func (m *MemoryReader) Add(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Name] = t
}

func (m *MemoryReader) ReadTable(ctx context.Context, name string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}
