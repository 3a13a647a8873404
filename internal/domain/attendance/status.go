// Package attendance implements the per-student, per-day attendance state
// machine: a fixed 4-state cycle over {unset, present, tardy, absent},
// stored sparsely (no row means unset).
package attendance

// Status is the attendance state for one (student, calendar day) pair.
// The persisted encoding matches the stored table: "P", "T", "A", with the
// empty string standing for unset. Unset rows are deleted, never stored.
type Status string

const (
	Unset   Status = ""
	Present Status = "P"
	Tardy   Status = "T"
	Absent  Status = "A"
)

// cycle is the fixed toggle order. Total over its 4-element domain: no
// state is ever invalid, and four applications return to the start.
var cycle = [...]Status{Unset, Present, Tardy, Absent}

// Next returns the state after one toggle. Anything unknown is treated as
// unset, so the cycle stays total even over garbage input.
func (s Status) Next() Status {
	for i, st := range cycle {
		if st == s {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return Present
}

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	for _, st := range cycle {
		if st == s {
			return true
		}
	}
	return false
}

// Record is one persisted attendance fact. At most one record exists per
// (student, date); Status here is never Unset.
type Record struct {
	StudentID int
	Date      string // ISO YYYY-MM-DD
	Status    Status
}

// MonthSummary counts recorded states in one calendar month. Days with no
// record do not count toward any bucket.
type MonthSummary struct {
	Present int
	Tardy   int
	Absent  int
}

// Add counts one status into the summary. Unset and unknown values are
// ignored, matching the sparse storage model.
func (m *MonthSummary) Add(s Status) {
	switch s {
	case Present:
		m.Present++
	case Tardy:
		m.Tardy++
	case Absent:
		m.Absent++
	}
}
