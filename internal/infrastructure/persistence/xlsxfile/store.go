// Package xlsxfile implements the local spreadsheet backend: every table
// is one sheet inside a single .xlsx workbook. Useful when the roster is
// maintained by hand in a desktop spreadsheet instead of per-table CSVs.
package xlsxfile

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

// Store persists all tables in one workbook file. The whole workbook is
// opened and saved per operation; the single-request execution model makes
// that acceptable, and it keeps the file valid for external editors
// between any two operations.
type Store struct {
	path string
}

// New creates an xlsx store backed by the workbook at path. The workbook
// is created with every declared sheet, header, and seed rows on first use.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, shared.NewDomainError("xlsxfile", "New", shared.ErrConfiguration, "workbook path missing")
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, shared.WrapError("xlsxfile", "New", shared.ErrBackendIO, path, err)
		}
		if err := s.create(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// create writes a fresh workbook with all declared tables.
func (s *Store) create() error {
	wb := excelize.NewFile()
	defer wb.Close()

	for i, schema := range tablestore.Schemas() {
		sheet := schema.Name
		if i == 0 {
			// excelize starts with one default sheet; rename it.
			if err := wb.SetSheetName(wb.GetSheetName(0), sheet); err != nil {
				return shared.WrapError("xlsxfile", "Create", shared.ErrBackendIO, sheet, err)
			}
		} else if _, err := wb.NewSheet(sheet); err != nil {
			return shared.WrapError("xlsxfile", "Create", shared.ErrBackendIO, sheet, err)
		}
		if err := writeSheet(wb, schema, schema.Seed); err != nil {
			return err
		}
	}
	if err := wb.SaveAs(s.path); err != nil {
		return shared.WrapError("xlsxfile", "Create", shared.ErrBackendIO, s.path, err)
	}
	return nil
}

func (s *Store) open() (*excelize.File, error) {
	wb, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, shared.WrapError("xlsxfile", "Open", shared.ErrBackendIO, s.path, err)
	}
	return wb, nil
}

// ReadTable reads one sheet, mapping by its header row.
func (s *Store) ReadTable(ctx context.Context, name string) ([]tablestore.Row, error) {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return nil, err
	}
	wb, err := s.open()
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	records, err := wb.GetRows(name)
	if err != nil {
		// A missing sheet in an externally edited workbook counts as a
		// first read: materialize it with seed rows.
		if err := s.WriteTable(ctx, name, schema.Seed); err != nil {
			return nil, err
		}
		return tablestore.CloneRows(schema.Seed), nil
	}
	if len(records) == 0 {
		return nil, nil
	}

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

// WriteTable replaces one sheet wholesale.
func (s *Store) WriteTable(ctx context.Context, name string, rows []tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}
	wb, err := s.open()
	if err != nil {
		return err
	}
	defer wb.Close()

	// Drop and recreate the sheet so no stale tail rows survive.
	if idx, err := wb.GetSheetIndex(name); err == nil && idx >= 0 {
		if err := wb.DeleteSheet(name); err != nil {
			return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, name, err)
		}
	}
	if _, err := wb.NewSheet(name); err != nil {
		return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	if err := writeSheet(wb, schema, rows); err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, name, err)
	}
	return nil
}

// AppendRow writes one row after the sheet's current last row.
func (s *Store) AppendRow(ctx context.Context, name string, row tablestore.Row) error {
	schema, err := tablestore.SchemaFor(name)
	if err != nil {
		return err
	}
	wb, err := s.open()
	if err != nil {
		return err
	}
	defer wb.Close()

	records, err := wb.GetRows(name)
	if err != nil {
		// Sheet missing: materialize, then retry the append on disk state.
		if err := s.WriteTable(ctx, name, schema.Seed); err != nil {
			return err
		}
		return s.AppendRow(ctx, name, row)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(records)+1)
	if err != nil {
		return shared.WrapError("xlsxfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	if err := wb.SetSheetRow(name, cell, toAnySlice(schema.Values(row))); err != nil {
		return shared.WrapError("xlsxfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	if err := wb.Save(); err != nil {
		return shared.WrapError("xlsxfile", "AppendRow", shared.ErrBackendIO, name, err)
	}
	return nil
}

func writeSheet(wb *excelize.File, schema tablestore.Schema, rows []tablestore.Row) error {
	if err := wb.SetSheetRow(schema.Name, "A1", toAnySlice(schema.Columns)); err != nil {
		return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, schema.Name, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, schema.Name, err)
		}
		if err := wb.SetSheetRow(schema.Name, cell, toAnySlice(schema.Values(row))); err != nil {
			return shared.WrapError("xlsxfile", "WriteTable", shared.ErrBackendIO, schema.Name, err)
		}
	}
	return nil
}

func toAnySlice(values []string) *[]any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return &out
}
