package tablestore

import (
	"context"
	"sync"
)

// MemStore is an in-memory Store. It backs tests and throwaway sessions,
// and is the reference implementation of the lazy-creation semantics every
// backend must follow: a table read before it exists materializes with its
// declared schema and seed rows.
type MemStore struct {
	mu     sync.Mutex
	tables map[string][]Row
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][]Row)}
}

// ensure materializes a table on first touch. Caller holds the lock.
func (m *MemStore) ensure(name string) ([]Row, error) {
	if rows, ok := m.tables[name]; ok {
		return rows, nil
	}
	schema, err := SchemaFor(name)
	if err != nil {
		return nil, err
	}
	m.tables[name] = CloneRows(schema.Seed)
	return m.tables[name], nil
}

// ReadTable returns the table's rows, creating it with seed rows if absent.
func (m *MemStore) ReadTable(ctx context.Context, name string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.ensure(name)
	if err != nil {
		return nil, err
	}
	return CloneRows(rows), nil
}

// WriteTable replaces the table wholesale.
func (m *MemStore) WriteTable(ctx context.Context, name string, rows []Row) error {
	if _, err := SchemaFor(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = CloneRows(rows)
	return nil
}

// AppendRow adds one row at the end of the table.
func (m *MemStore) AppendRow(ctx context.Context, name string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.ensure(name)
	if err != nil {
		return err
	}
	m.tables[name] = append(rows, row.Clone())
	return nil
}
