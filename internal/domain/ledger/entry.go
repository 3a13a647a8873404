// Package ledger defines the append-only point-delta history. Entries have
// no surrogate ID: the write timestamp is the natural key, at second
// resolution. Two entries for the same student written within the same
// second are indistinguishable, and a deletion naming that timestamp
// removes all of them. Deliberate simplification, not a defect; callers
// needing finer granularity must increase timestamp resolution.
package ledger

import (
	"time"

	"github.com/classquest/classquest/pkg/timeutil"
)

// Entry is one signed point-delta event. Immutable once written except via
// full deletion, which must also reverse its effect on the owner's balance.
type Entry struct {
	// Timestamp is the ISO-8601 second-precision write time and the
	// entry's identity. Kept in its stored string form because identity
	// comparisons happen on the persisted value, never on a parsed time.
	Timestamp string

	// StudentID is the owning student.
	StudentID int

	// Name is the student's display name snapshotted at write time. Goes
	// stale if the student is later renamed; that is accepted history.
	Name string

	// Delta is the signed XP change.
	Delta int

	// Reason is free text, possibly empty.
	Reason string
}

// Stamp formats a write time as an entry timestamp.
func Stamp(t time.Time) string {
	return timeutil.Stamp(t)
}

// Time parses the entry's timestamp. Only needed for display; identity and
// ordering work on the string form, which sorts chronologically.
func (e Entry) Time() (time.Time, error) {
	return timeutil.ParseStamp(e.Timestamp)
}

// SumDeltas returns the sum of deltas over a batch of entries. Deleting a
// batch must decrease the owner's balance by exactly this amount.
func SumDeltas(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Delta
	}
	return total
}
