// Package postgres implements a relational table store on pgx. Every
// logical table lives as ordered jsonb rows in one relation, so the
// read/replace/append contract stays identical to the file backends while
// gaining the one thing they cannot offer: WriteTable as a real
// transaction. The two-table applyDelta gap remains (separate WriteTable
// calls are separate transactions); only the single-table replace is atomic.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEMA
// ══════════════════════════════════════════════════════════════════════════════

const ddl = `
CREATE TABLE IF NOT EXISTS table_meta (
    table_name text PRIMARY KEY,
    created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS table_rows (
    table_name text NOT NULL,
    position   integer NOT NULL,
    row        jsonb NOT NULL,
    PRIMARY KEY (table_name, position)
);
`

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the pgx-backed table store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, verifies the connection, and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, shared.ErrDatabaseNotConfigured
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, shared.WrapError("postgres", "New", shared.ErrConfiguration, "parse database URL", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, shared.WrapError("postgres", "New", shared.ErrBackendIO, "create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, shared.WrapError("postgres", "New", shared.ErrBackendIO, "ping", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, shared.WrapError("postgres", "New", shared.ErrBackendIO, "ensure schema", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ReadTable returns the table's rows in position order, materializing the
// table with seed rows on first read.
func (s *Store) ReadTable(ctx context.Context, name string) ([]tablestore.Row, error) {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return nil, err
	}

	created, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := s.WriteTable(ctx, name, schema.Seed); err != nil {
			return nil, err
		}
		return tablestore.CloneRows(schema.Seed), nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT row FROM table_rows WHERE table_name = $1 ORDER BY position`, name)
	if err != nil {
		return nil, shared.WrapError("postgres", "ReadTable", shared.ErrBackendIO, name, err)
	}
	defer rows.Close()

	var out []tablestore.Row
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, shared.WrapError("postgres", "ReadTable", shared.ErrBackendIO, name, err)
		}
		var row tablestore.Row
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, shared.WrapError("postgres", "ReadTable", shared.ErrBackendIO, name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("postgres", "ReadTable", shared.ErrBackendIO, name, err)
	}
	return out, nil
}

// WriteTable replaces the table inside one transaction: delete, reinsert,
// mark created.
func (s *Store) WriteTable(ctx context.Context, name string, rows []tablestore.Row) error {
	if _, err := tablestore.SchemaFor(name); err != nil {
		return err
	}

	return s.withTx(ctx, "WriteTable", name, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM table_rows WHERE table_name = $1`, name); err != nil {
			return err
		}
		for i, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO table_rows (table_name, position, row) VALUES ($1, $2, $3)`,
				name, i, data); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO table_meta (table_name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
		return err
	})
}

// AppendRow inserts one row after the current last position.
func (s *Store) AppendRow(ctx context.Context, name string, row tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}

	created, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !created {
		if err := s.WriteTable(ctx, name, schema.Seed); err != nil {
			return err
		}
	}

	data, err := json.Marshal(row)
	if err != nil {
		return shared.WrapError("postgres", "AppendRow", shared.ErrBackendIO, name, err)
	}
	return s.withTx(ctx, "AppendRow", name, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO table_rows (table_name, position, row)
			SELECT $1, COALESCE(MAX(position), -1) + 1, $2
			FROM table_rows WHERE table_name = $1`,
			name, data)
		return err
	})
}

func (s *Store) exists(ctx context.Context, name string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM table_meta WHERE table_name = $1)`, name).Scan(&found)
	if err != nil {
		return false, shared.WrapError("postgres", "ReadTable", shared.ErrBackendIO, name, err)
	}
	return found, nil
}

func (s *Store) withTx(ctx context.Context, op, name string, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return shared.WrapError("postgres", op, shared.ErrBackendIO, name, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return shared.WrapError("postgres", op, shared.ErrBackendIO, name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return shared.WrapError("postgres", op, shared.ErrBackendIO, name, err)
	}
	return nil
}
