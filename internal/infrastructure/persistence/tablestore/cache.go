package tablestore

import (
	"context"
	"sync"
)

// Cache memoizes table reads on top of any Store. It is an explicit object
// with injected lifetime: constructed once per process and passed to the
// engines, so tests can run isolated caches per case.
//
// Consistency rule: every mutating call invalidates the table's cache
// entry before returning, and the next read re-fetches from the backend.
// Stale data is never served across a write performed via this process.
// A second process writing to the same backend is invisible to this cache;
// that is the accepted staleness hazard of the design.
type Cache struct {
	inner Store

	mu     sync.Mutex
	tables map[string][]Row
}

// NewCache wraps a backend store with per-table memoization.
func NewCache(inner Store) *Cache {
	return &Cache{
		inner:  inner,
		tables: make(map[string][]Row),
	}
}

// ReadTable serves the memoized table, filling from the backend on miss.
// Returned rows are clones; callers cannot mutate the cache in place.
func (c *Cache) ReadTable(ctx context.Context, name string) ([]Row, error) {
	c.mu.Lock()
	if rows, ok := c.tables[name]; ok {
		out := CloneRows(rows)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	rows, err := c.inner.ReadTable(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tables[name] = CloneRows(rows)
	c.mu.Unlock()
	return rows, nil
}

// WriteTable invalidates the entry, then replaces the table in the
// backend. Invalidation happens first so a failed write can never leave a
// stale entry behind.
func (c *Cache) WriteTable(ctx context.Context, name string, rows []Row) error {
	c.Invalidate(name)
	return c.inner.WriteTable(ctx, name, rows)
}

// AppendRow invalidates the entry, then appends in the backend.
func (c *Cache) AppendRow(ctx context.Context, name string, row Row) error {
	c.Invalidate(name)
	return c.inner.AppendRow(ctx, name, row)
}

// Invalidate drops one table's memoized rows.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.tables, name)
	c.mu.Unlock()
}

// Reset drops every memoized table.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.tables = make(map[string][]Row)
	c.mu.Unlock()
}
