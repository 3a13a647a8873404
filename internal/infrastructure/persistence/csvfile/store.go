// Package csvfile implements the local flat-file storage backend: one CSV
// file per table in a data directory. This is the default backend and the
// fallback whenever remote storage is not configured.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

// Store persists each table as <dir>/<table>.csv with a header row in the
// schema's column order. Files are lazily created with seed rows on first
// read. Replacement writes go through a temp file and rename, so a crashed
// write never truncates live data; concurrent processes still race at
// whole-file granularity, which is the accepted model.
type Store struct {
	dir string
}

// New creates a CSV store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, shared.WrapError("csvfile", "New", shared.ErrBackendIO, "create data dir", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(table string) string {
	return filepath.Join(s.dir, table+".csv")
}

// ReadTable reads the table's rows, creating the file with header and seed
// rows if it does not exist yet.
func (s *Store) ReadTable(ctx context.Context, name string) ([]tablestore.Row, error) {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return nil, err
	}
	if err := s.ensure(schema); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, shared.WrapError("csvfile", "ReadTable", shared.ErrBackendIO, name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, shared.WrapError("csvfile", "ReadTable", shared.ErrBackendIO, name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Map by the file's own header so column order in the file is free.
	header := records[0]
	rows := make([]tablestore.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(tablestore.Row, len(schema.Columns))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, schema.RowFromValues(schema.Values(row)))
	}
	return rows, nil
}

// WriteTable replaces the table wholesale via temp file + rename.
func (s *Store) WriteTable(ctx context.Context, name string, rows []tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+"-*.csv")
	if err != nil {
		return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(schema.Columns); err != nil {
		tmp.Close()
		return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	for _, row := range rows {
		if err := w.Write(schema.Values(row)); err != nil {
			tmp.Close()
			return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	if err := tmp.Close(); err != nil {
		return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return shared.WrapError("csvfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	return nil
}

// AppendRow appends one record to the file, creating it first if needed.
func (s *Store) AppendRow(ctx context.Context, name string, row tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}
	if err := s.ensure(schema); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path(name), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return shared.WrapError("csvfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema.Values(row)); err != nil {
		return shared.WrapError("csvfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return shared.WrapError("csvfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	return nil
}

// ensure lazily creates the file with header and seed rows.
func (s *Store) ensure(schema tablestore.Schema) error {
	_, err := os.Stat(s.path(schema.Name))
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return shared.WrapError("csvfile", "ReadTable", shared.ErrBackendIO, schema.Name, err)
	}
	if err := s.WriteTable(context.Background(), schema.Name, schema.Seed); err != nil {
		return fmt.Errorf("lazy-create %s: %w", schema.Name, err)
	}
	return nil
}
