package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classquest/classquest/internal/domain/ledger"
	"github.com/classquest/classquest/internal/domain/shared"
	"github.com/classquest/classquest/internal/domain/student"
)

func TestApplyDeltaUpdatesBalanceAndLog(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:05:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 40})

	entry, err := env.ledger.ApplyDelta(ctx, 7, 15, "quiz")
	require.NoError(t, err)
	assert.Equal(t, 15, entry.Delta)
	assert.Equal(t, "Ana", entry.Name)

	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 55, s.XP)

	_, err = env.ledger.ApplyDelta(ctx, 7, -10, "late")
	require.NoError(t, err)

	s, err = env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 45, s.XP)

	entries, err := env.ledger.Entries(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, -10, entries[0].Delta)
	assert.Equal(t, 15, entries[1].Delta)
}

func TestApplyDeltaUnknownStudent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.ApplyDelta(context.Background(), 99, 10, "quiz")

	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestDeleteEntriesSubtractsDeletedDeltas(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:05:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 40})

	_, err := env.ledger.ApplyDelta(ctx, 7, 15, "quiz")
	require.NoError(t, err)
	_, err = env.ledger.ApplyDelta(ctx, 7, -10, "late")
	require.NoError(t, err)

	removed, err := env.ledger.DeleteEntries(ctx, 7, []string{"2026-03-01T10:05:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 55, s.XP)

	entries, err := env.ledger.Entries(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 15, entries[0].Delta)
}

func TestDeleteEntriesNoMatchLeavesBalanceUntouched(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2026-03-01T10:00:00")
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 40})

	_, err := env.ledger.ApplyDelta(ctx, 7, 15, "quiz")
	require.NoError(t, err)

	removed, err := env.ledger.DeleteEntries(ctx, 7, []string{"2025-01-01T00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 55, s.XP)
}

func TestDeleteEntriesSameTimestampRemovedTogether(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:00:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 0})

	_, err := env.ledger.ApplyDelta(ctx, 7, 5, "a")
	require.NoError(t, err)
	_, err = env.ledger.ApplyDelta(ctx, 7, 3, "b")
	require.NoError(t, err)

	removed, err := env.ledger.DeleteEntries(ctx, 7, []string{"2026-03-01T10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, s.XP)
}

func TestDeleteEntriesLeavesOtherStudentsAlone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:00:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 0})
	env.addStudent(t, student.Student{ID: 8, Name: "Luis", XP: 0})

	_, err := env.ledger.ApplyDelta(ctx, 7, 5, "a")
	require.NoError(t, err)
	_, err = env.ledger.ApplyDelta(ctx, 8, 9, "b")
	require.NoError(t, err)

	removed, err := env.ledger.DeleteEntries(ctx, 7, []string{"2026-03-01T10:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	other, err := env.ledger.Entries(ctx, 8, 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestBalanceEqualsInitialPlusSumOfEntries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:01:00",
		"2026-03-01T10:02:00",
		"2026-03-01T10:03:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 100})

	for _, delta := range []int{12, -7, 0, 30} {
		_, err := env.ledger.ApplyDelta(ctx, 7, delta, "x")
		require.NoError(t, err)
	}

	entries, err := env.ledger.Entries(ctx, 7, 0)
	require.NoError(t, err)

	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 100+ledger.SumDeltas(entries), s.XP)
}

func TestEntriesLimit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:01:00",
		"2026-03-01T10:02:00",
	)
	env.addStudent(t, student.Student{ID: 7, Name: "Ana"})

	for i := 0; i < 3; i++ {
		_, err := env.ledger.ApplyDelta(ctx, 7, i+1, "x")
		require.NoError(t, err)
	}

	entries, err := env.ledger.Entries(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Delta)
	assert.Equal(t, 2, entries[1].Delta)
}

func TestReconcileRepairsDriftedBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "2026-03-01T10:00:00")
	env.addStudent(t, student.Student{ID: 7, Name: "Ana", XP: 0})

	_, err := env.ledger.ApplyDelta(ctx, 7, 25, "quiz")
	require.NoError(t, err)

	// Simulate drift: an external editor rewrote the balance.
	s, err := env.registry.Student(ctx, 7)
	require.NoError(t, err)
	s.XP = 999
	require.NoError(t, env.registry.Save(ctx, s))

	balance, err := env.ledger.Reconcile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	s, err = env.registry.Student(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 25, s.XP)
}

func TestApplyPending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t,
		"2026-03-01T10:00:00",
		"2026-03-01T10:00:01",
	)
	env.addStudent(t, student.Student{ID: 1, Name: "Ana", XP: 10, PendingDelta: 5, PendingReason: "homework"})
	env.addStudent(t, student.Student{ID: 2, Name: "Luis", XP: 20, PendingDelta: 0, PendingReason: "stale"})
	env.addStudent(t, student.Student{ID: 3, Name: "Mia", XP: 0, PendingDelta: -3, PendingReason: "conduct"})

	applied, err := env.ledger.ApplyPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	ana, err := env.registry.Student(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 15, ana.XP)
	assert.Equal(t, 0, ana.PendingDelta)
	// The reason text stays on the row for the next batch.
	assert.Equal(t, "homework", ana.PendingReason)

	luis, err := env.registry.Student(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, luis.XP)

	mia, err := env.registry.Student(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, -3, mia.XP)

	entries, err := env.ledger.Entries(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "homework", entries[0].Reason)
}
