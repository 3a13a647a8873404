// Package tablestore defines the storage contract every backend satisfies:
// read a named table as ordered rows, replace it wholesale, or append one
// row. The core only ever touches storage through this interface plus the
// typed codecs in this package; raw rows never leak past the boundary.
//
// Key components:
//   - Store: the three-operation backend contract
//   - Cache: process-wide memoization with synchronous invalidation
//   - MemStore: in-memory backend for tests and throwaway sessions
//   - Codecs: raw row <-> typed record mapping per table
package tablestore

import (
	"context"

	"github.com/classquest/classquest/internal/domain/milestone"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROWS AND SCHEMAS
// ══════════════════════════════════════════════════════════════════════════════

// Row is one stored record: field name to string value. Column order is
// carried by the table schema, not the row.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows deep-copies a slice of rows. Cached tables hand out clones so
// callers can never mutate the cache in place.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// Schema declares a table: its name, column order, and the seed rows a
// backend materializes when the table is read before it first exists.
type Schema struct {
	Name    string
	Columns []string
	Seed    []Row
}

// Values projects a row onto the schema's column order. Missing fields
// become empty strings; unknown fields are dropped, mirroring the
// expected-columns reindex the loaders always performed.
func (s Schema) Values(r Row) []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = r[c]
	}
	return out
}

// RowFromValues builds a row from values in the schema's column order.
func (s Schema) RowFromValues(values []string) Row {
	r := make(Row, len(s.Columns))
	for i, c := range s.Columns {
		if i < len(values) {
			r[c] = values[i]
		} else {
			r[c] = ""
		}
	}
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// TABLE DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Persisted table names. The Spanish names are part of the stored schema
// and shared with external editors; renaming them would orphan live data.
const (
	TableStudents     = "students"
	TableLogs         = "logs"
	TableObservations = "observaciones"
	TableAttendance   = "asistencia"
	TableInstitutions = "colegios"
	TableMilestones   = "milestones"
)

// Schemas returns the declared schema for every table, seed rows included.
func Schemas() []Schema {
	inst := student.DefaultInstitution()
	seedInstitutions := []Row{InstitutionToRow(inst)}

	seedMilestones := make([]Row, 0, 6)
	for _, m := range milestone.DefaultTable() {
		seedMilestones = append(seedMilestones, MilestoneToRow(m))
	}

	return []Schema{
		{
			Name: TableStudents,
			Columns: []string{
				"id", "name", "grupo", "xp", "colegio_id", "phone", "teacher",
				"xp_delta", "xp_reason", "avatar", "trinket", "trinket_desc",
			},
		},
		{
			Name:    TableLogs,
			Columns: []string{"timestamp", "id", "name", "delta_xp", "reason"},
		},
		{
			Name:    TableObservations,
			Columns: []string{"timestamp", "id", "name", "observacion"},
		},
		{
			Name:    TableAttendance,
			Columns: []string{"id", "date", "status"},
		},
		{
			Name:    TableInstitutions,
			Columns: []string{"id", "nombre", "x", "y", "icono"},
			Seed:    seedInstitutions,
		},
		{
			Name:    TableMilestones,
			Columns: []string{"label", "threshold", "color", "icon"},
			Seed:    seedMilestones,
		},
	}
}

// SchemaFor looks up a table schema by name.
func SchemaFor(name string) (Schema, error) {
	for _, s := range Schemas() {
		if s.Name == name {
			return s, nil
		}
	}
	return Schema{}, shared.WrapError("tablestore", "Schema", shared.ErrValidation, name, shared.ErrUnknownTable)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACT
// ══════════════════════════════════════════════════════════════════════════════

// Store is the backend contract. Implementations: csvfile (local flat
// files), xlsxfile (local workbook), gsheet (remote spreadsheet), postgres
// (relational), plus MemStore for tests. Backends that cannot append
// natively fall back to read-modify-write internally.
//
// A table read before it first exists is lazily created with its declared
// schema and seed rows. There are no transactions across tables and no
// protection against a second process writing concurrently; last writer
// wins at table-replace granularity.
type Store interface {
	// ReadTable returns the table's rows in storage order.
	ReadTable(ctx context.Context, name string) ([]Row, error)

	// WriteTable replaces the table wholesale.
	WriteTable(ctx context.Context, name string, rows []Row) error

	// AppendRow adds one row at the end of the table.
	AppendRow(ctx context.Context, name string, row Row) error
}
