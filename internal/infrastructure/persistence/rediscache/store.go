// Package rediscache decorates any table store with a Redis cache layer:
// whole serialized tables under TTL'd keys, deleted on every write. Unlike
// the in-process cache this one is shared between replicas, so a write in
// one process invalidates reads in another. It narrows the cross-process
// staleness window but does not close it: between a backend write and the
// key deletion another replica may still serve the old table.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

// keyPrefix namespaces cache keys away from other users of the same Redis.
const keyPrefix = "classquest:table:"

// DefaultTTL bounds staleness from writers outside this deployment, such
// as someone editing the sheet directly.
const DefaultTTL = time.Minute

// Store wraps an inner table store with Redis caching.
type Store struct {
	inner  tablestore.Store
	client *redis.Client
	ttl    time.Duration
}

// New creates the decorator. A zero ttl selects DefaultTTL.
func New(inner tablestore.Store, client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{inner: inner, client: client, ttl: ttl}
}

func key(name string) string {
	return keyPrefix + name
}

// ReadTable serves from Redis when possible. Any cache failure degrades to
// a backend read; availability wins over cache hygiene on the read path.
func (s *Store) ReadTable(ctx context.Context, name string) ([]tablestore.Row, error) {
	data, err := s.client.Get(ctx, key(name)).Bytes()
	if err == nil {
		var rows []tablestore.Row
		if jsonErr := json.Unmarshal(data, &rows); jsonErr == nil {
			return rows, nil
		}
		// Corrupt cache entry: drop it and fall through.
		s.client.Del(ctx, key(name))
	}
	// Cache miss or Redis down: read from the backend.

	rows, err := s.inner.ReadTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		// Best effort; a failed fill only costs the next read a fetch.
		s.client.Set(ctx, key(name), data, s.ttl)
	}
	return rows, nil
}

// WriteTable writes through, then deletes the cache key. A failed delete
// is an error: silently leaving a stale table visible to every replica is
// worse than failing the write.
func (s *Store) WriteTable(ctx context.Context, name string, rows []tablestore.Row) error {
	if err := s.inner.WriteTable(ctx, name, rows); err != nil {
		return err
	}
	return s.invalidate(ctx, name, "WriteTable")
}

// AppendRow writes through, then deletes the cache key.
func (s *Store) AppendRow(ctx context.Context, name string, row tablestore.Row) error {
	if err := s.inner.AppendRow(ctx, name, row); err != nil {
		return err
	}
	return s.invalidate(ctx, name, "AppendRow")
}

func (s *Store) invalidate(ctx context.Context, name, op string) error {
	if err := s.client.Del(ctx, key(name)).Err(); err != nil {
		return shared.WrapError("rediscache", op, shared.ErrBackendIO, "invalidate "+name, err)
	}
	return nil
}
