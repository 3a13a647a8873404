package xlsxfile

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "tables.xlsx"))
	require.NoError(t, err)
	return s
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNewCreatesWorkbookWithSeeds(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	insts, err := store.ReadTable(ctx, tablestore.TableInstitutions)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, "COLEGIO", insts[0]["nombre"])

	milestones, err := store.ReadTable(ctx, tablestore.TableMilestones)
	require.NoError(t, err)
	assert.Len(t, milestones, 6)

	students, err := store.ReadTable(ctx, tablestore.TableStudents)
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	in := []tablestore.Row{
		{"id": "1", "name": "Ana", "grupo": "3A", "xp": "40", "colegio_id": "1"},
		{"id": "2", "name": "Luis", "grupo": "3B", "xp": "-5", "colegio_id": "2"},
	}
	require.NoError(t, store.WriteTable(ctx, tablestore.TableStudents, in))

	out, err := store.ReadTable(ctx, tablestore.TableStudents)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Ana", out[0]["name"])
	assert.Equal(t, "-5", out[1]["xp"])
}

func TestAppendRowExtendsSheet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := tablestore.Row{"timestamp": "2026-03-01T10:00:00", "id": "1", "name": "Ana", "delta_xp": "15", "reason": "quiz"}
	second := tablestore.Row{"timestamp": "2026-03-01T10:05:00", "id": "1", "name": "Ana", "delta_xp": "-10", "reason": "late"}
	require.NoError(t, store.AppendRow(ctx, tablestore.TableLogs, first))
	require.NoError(t, store.AppendRow(ctx, tablestore.TableLogs, second))

	rows, err := store.ReadTable(ctx, tablestore.TableLogs)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "15", rows[0]["delta_xp"])
	assert.Equal(t, "-10", rows[1]["delta_xp"])
}

func TestWriteTableReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteTable(ctx, tablestore.TableAttendance, []tablestore.Row{
		{"id": "1", "date": "2026-03-01", "status": "P"},
		{"id": "2", "date": "2026-03-01", "status": "A"},
	}))
	require.NoError(t, store.WriteTable(ctx, tablestore.TableAttendance, []tablestore.Row{
		{"id": "1", "date": "2026-03-01", "status": "T"},
	}))

	rows, err := store.ReadTable(ctx, tablestore.TableAttendance)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "T", rows[0]["status"])
}

func TestReopenSeesSavedData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tables.xlsx")

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.WriteTable(ctx, tablestore.TableStudents, []tablestore.Row{
		{"id": "9", "name": "Sol", "xp": "5"},
	}))

	reopened, err := New(path)
	require.NoError(t, err)
	rows, err := reopened.ReadTable(ctx, tablestore.TableStudents)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sol", rows[0]["name"])
}
