package application

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/classquest/classquest/internal/domain/student"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

// testEnv wires every engine over one in-memory store behind the
// invalidating cache, the same stack the server runs.
type testEnv struct {
	store        tablestore.Store
	registry     *Registry
	ledger       *LedgerEngine
	attendance   *AttendanceTracker
	observations *ObservationLog
	levels       *LevelService

	stamps []string
}

// newTestEnv builds the engine stack with a scripted clock: each write
// consumes the next stamp, falling back to a counter once exhausted.
func newTestEnv(t *testing.T, stamps ...string) *testEnv {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError)
	store := tablestore.NewCache(tablestore.NewMemStore())

	env := &testEnv{store: store, stamps: stamps}
	next := func() string {
		if len(env.stamps) == 0 {
			return "2026-03-01T00:00:00"
		}
		s := env.stamps[0]
		env.stamps = env.stamps[1:]
		return s
	}

	env.registry = NewRegistry(store, log)
	env.ledger = NewLedgerEngine(store, env.registry, log, next)
	env.attendance = NewAttendanceTracker(store, env.registry, log)
	env.observations = NewObservationLog(store, env.registry, log, next)
	env.levels = NewLevelService(store, env.registry, log)
	return env
}

func (e *testEnv) addStudent(t *testing.T, s student.Student) {
	t.Helper()
	require.NoError(t, e.registry.Save(context.Background(), s))
}
