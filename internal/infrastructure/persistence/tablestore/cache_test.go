package tablestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a Store and counts backend reads per table.
type countingStore struct {
	Store
	reads map[string]int
}

func newCountingStore(inner Store) *countingStore {
	return &countingStore{Store: inner, reads: make(map[string]int)}
}

func (c *countingStore) ReadTable(ctx context.Context, name string) ([]Row, error) {
	c.reads[name]++
	return c.Store.ReadTable(ctx, name)
}

func TestCacheMemoizesReads(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore(NewMemStore())
	cache := NewCache(backend)

	_, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	_, err = cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	_, err = cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.reads[TableStudents])
}

func TestCacheWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore(NewMemStore())
	cache := NewCache(backend)

	_, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)

	row := Row{"id": "1", "name": "Ana", "xp": "10"}
	require.NoError(t, cache.WriteTable(ctx, TableStudents, []Row{row}))

	rows, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ana", rows[0]["name"])
	assert.Equal(t, 2, backend.reads[TableStudents])
}

func TestCacheAppendInvalidates(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore(NewMemStore())
	cache := NewCache(backend)

	_, err := cache.ReadTable(ctx, TableLogs)
	require.NoError(t, err)

	row := Row{"timestamp": "2026-03-01T10:00:00", "id": "1", "name": "Ana", "delta_xp": "5", "reason": "quiz"}
	require.NoError(t, cache.AppendRow(ctx, TableLogs, row))

	rows, err := cache.ReadTable(ctx, TableLogs)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", rows[0]["delta_xp"])
}

func TestCacheInvalidationIsPerTable(t *testing.T) {
	ctx := context.Background()
	backend := newCountingStore(NewMemStore())
	cache := NewCache(backend)

	_, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	_, err = cache.ReadTable(ctx, TableLogs)
	require.NoError(t, err)

	require.NoError(t, cache.WriteTable(ctx, TableStudents, nil))

	_, err = cache.ReadTable(ctx, TableLogs)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.reads[TableLogs])
}

func TestCacheReturnsClones(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemStore())

	require.NoError(t, cache.WriteTable(ctx, TableStudents, []Row{{"id": "1", "name": "Ana"}}))

	rows, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	rows[0]["name"] = "mutated"

	again, err := cache.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	assert.Equal(t, "Ana", again[0]["name"])
}

func TestMemStoreSeedsOnFirstRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	insts, err := store.ReadTable(ctx, TableInstitutions)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, "1", insts[0]["id"])

	milestones, err := store.ReadTable(ctx, TableMilestones)
	require.NoError(t, err)
	assert.Len(t, milestones, 6)

	students, err := store.ReadTable(ctx, TableStudents)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestStoreRejectsUnknownTable(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.ReadTable(ctx, "nope")
	assert.Error(t, err)
	assert.Error(t, store.WriteTable(ctx, "nope", nil))
	assert.Error(t, store.AppendRow(ctx, "nope", Row{}))
}
