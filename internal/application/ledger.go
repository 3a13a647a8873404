package application

import (
	"context"
	"sort"
	"time"

	"github.com/classquest/classquest/internal/domain/ledger"
	"github.com/classquest/classquest/internal/infrastructure/persistence/tablestore"
	"github.com/classquest/classquest/pkg/logger"
)

// LedgerEngine records XP awards and deductions and keeps the cached
// balance on the student row in step with the log.
//
// ApplyDelta is two writes (append the entry, then rewrite the roster) and
// is not atomic across them; a crash between the two leaves the balance one
// entry behind the log. Reconcile repairs that by recomputing the balance
// from the log, which is the source of truth.
type LedgerEngine struct {
	store    tablestore.Store
	registry *Registry
	log      *logger.Logger
	now      func() string
}

// NewLedgerEngine creates the ledger engine. nowStamp supplies entry
// timestamps; pass nil for the wall clock.
func NewLedgerEngine(store tablestore.Store, registry *Registry, log *logger.Logger, nowStamp func() string) *LedgerEngine {
	if nowStamp == nil {
		nowStamp = func() string { return ledger.Stamp(time.Now()) }
	}
	return &LedgerEngine{
		store:    store,
		registry: registry,
		log:      log.With(logger.Component("ledger")),
		now:      nowStamp,
	}
}

// ApplyDelta appends a signed XP entry for the student and adjusts the
// cached balance. Zero deltas are recorded like any other entry. The
// student's name is copied onto the entry as a point-in-time snapshot.
func (e *LedgerEngine) ApplyDelta(ctx context.Context, studentID, delta int, reason string) (ledger.Entry, error) {
	s, err := e.registry.Student(ctx, studentID)
	if err != nil {
		return ledger.Entry{}, err
	}

	entry := ledger.Entry{
		Timestamp: e.now(),
		StudentID: s.ID,
		Name:      s.Name,
		Delta:     delta,
		Reason:    reason,
	}
	if err := e.store.AppendRow(ctx, tablestore.TableLogs, tablestore.EntryToRow(entry)); err != nil {
		return ledger.Entry{}, err
	}

	s.XP += delta
	if err := e.registry.Save(ctx, s); err != nil {
		return ledger.Entry{}, err
	}
	e.log.Info("delta applied",
		logger.StudentID(s.ID),
		logger.DeltaXP(delta),
		logger.Balance(s.XP),
	)
	return entry, nil
}

// Entries returns the student's log entries sorted newest first. A limit of
// zero or less means no limit. The canonical timestamp format sorts
// chronologically as a plain string.
func (e *LedgerEngine) Entries(ctx context.Context, studentID, limit int) ([]ledger.Entry, error) {
	all, err := e.allEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, 0)
	for _, entry := range all {
		if entry.StudentID == studentID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteEntries removes the student's entries whose timestamps appear in
// the given set and subtracts their summed delta from the balance. Entries
// that share a timestamp are all removed. Timestamps that match nothing are
// ignored; when nothing matches, the balance is untouched. Returns the
// number of entries removed.
func (e *LedgerEngine) DeleteEntries(ctx context.Context, studentID int, timestamps []string) (int, error) {
	s, err := e.registry.Student(ctx, studentID)
	if err != nil {
		return 0, err
	}
	if len(timestamps) == 0 {
		return 0, nil
	}
	drop := make(map[string]struct{}, len(timestamps))
	for _, ts := range timestamps {
		drop[ts] = struct{}{}
	}

	all, err := e.allEntries(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]ledger.Entry, 0, len(all))
	removedSum, removed := 0, 0
	for _, entry := range all {
		if entry.StudentID == studentID {
			if _, ok := drop[entry.Timestamp]; ok {
				removedSum += entry.Delta
				removed++
				continue
			}
		}
		kept = append(kept, entry)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := e.writeEntries(ctx, kept); err != nil {
		return 0, err
	}
	s.XP -= removedSum
	if err := e.registry.Save(ctx, s); err != nil {
		return removed, err
	}
	e.log.Info("entries deleted",
		logger.StudentID(studentID),
		logger.Count(removed),
		logger.Balance(s.XP),
	)
	return removed, nil
}

// Reconcile recomputes the student's balance from the log and persists it.
// Returns the reconciled balance.
func (e *LedgerEngine) Reconcile(ctx context.Context, studentID int) (int, error) {
	s, err := e.registry.Student(ctx, studentID)
	if err != nil {
		return 0, err
	}
	entries, err := e.Entries(ctx, studentID, 0)
	if err != nil {
		return 0, err
	}
	total := ledger.SumDeltas(entries)
	if total != s.XP {
		e.log.Warn("balance drift repaired",
			logger.StudentID(studentID),
			logger.Balance(s.XP),
			logger.F("recomputed", total),
		)
		s.XP = total
		if err := e.registry.Save(ctx, s); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// ApplyPending walks the roster and turns every non-zero pending delta into
// a regular log entry using the pending reason, then zeroes the pending
// delta. The pending reason text is left on the row for the next batch.
// Returns the number of students whose pending delta was applied.
func (e *LedgerEngine) ApplyPending(ctx context.Context) (int, error) {
	students, err := e.registry.Students(ctx)
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, s := range students {
		if s.PendingDelta == 0 {
			continue
		}
		delta, reason := s.PendingDelta, s.PendingReason
		if _, err := e.ApplyDelta(ctx, s.ID, delta, reason); err != nil {
			return applied, err
		}
		// Re-read: ApplyDelta rewrote the roster under us.
		fresh, err := e.registry.Student(ctx, s.ID)
		if err != nil {
			return applied, err
		}
		fresh.PendingDelta = 0
		if err := e.registry.Save(ctx, fresh); err != nil {
			return applied, err
		}
		applied++
	}
	if applied > 0 {
		e.log.Info("pending deltas applied", logger.Count(applied))
	}
	return applied, nil
}

func (e *LedgerEngine) allEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := e.store.ReadTable(ctx, tablestore.TableLogs)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := tablestore.EntryFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (e *LedgerEngine) writeEntries(ctx context.Context, entries []ledger.Entry) error {
	rows := make([]tablestore.Row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, tablestore.EntryToRow(entry))
	}
	return e.store.WriteTable(ctx, tablestore.TableLogs, rows)
}
