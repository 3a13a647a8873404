// Package milestone implements the rank/level computation: a pure function
// from an XP balance and an ordered threshold table to the current tier,
// interpolated progress, and the next tier to chase.
package milestone

import (
	"sort"

	"github.com/classquest/classquest/internal/domain/shared"
)

// MaxLabel is the sentinel next-tier label reported once the last tier's
// threshold is met; there is no further tier.
const MaxLabel = "MAX"

// Milestone is one tier definition. The table is externally edited
// configuration, loaded once per session and treated as read-mostly.
type Milestone struct {
	Label     string
	Threshold int
	Color     string
	Icon      string
}

// Table is an ordered list of tiers. All computations assume ascending
// thresholds; Sort establishes that order.
type Table []Milestone

// Sort orders the table by ascending threshold. Stable so equal thresholds
// keep their configured order.
func (t Table) Sort() {
	sort.SliceStable(t, func(i, j int) bool { return t[i].Threshold < t[j].Threshold })
}

// Validate checks the persistable invariant: thresholds non-negative and
// strictly increasing once sorted. ComputeLevel itself stays tolerant of
// equal thresholds; this gate only applies when saving configuration.
func (t Table) Validate() error {
	if len(t) == 0 {
		return shared.NewDomainError("milestone", "Validate", shared.ErrEmptyValue, "milestone table is empty")
	}
	sorted := make(Table, len(t))
	copy(sorted, t)
	sorted.Sort()
	for i, m := range sorted {
		if m.Threshold < 0 {
			return shared.ErrBadThresholds
		}
		if i > 0 && m.Threshold <= sorted[i-1].Threshold {
			return shared.ErrBadThresholds
		}
	}
	return nil
}

// Index returns the position of a tier label in the table, or -1.
// Level numbers shown to users are 1 + Index.
func (t Table) Index(label string) int {
	for i, m := range t {
		if m.Label == label {
			return i
		}
	}
	return -1
}

// Level is the derived rank state for one balance.
type Level struct {
	// Current is the last tier whose threshold the balance meets.
	// Balances below the first threshold clamp to the floor tier.
	Current Milestone

	// Progress is the fraction of the way from the current threshold to
	// the next, in [0,1]. 1.0 in the terminal state.
	Progress float64

	// Remaining is the XP still needed to reach the next tier. 0 in the
	// terminal state.
	Remaining int

	// NextLabel is the next tier's label, or MaxLabel in the terminal state.
	NextLabel string

	// NextThreshold is the next tier's threshold. In the terminal state it
	// reports the max tier's own threshold rather than a forward value.
	NextThreshold int
}

// Terminal reports whether the balance has met or passed the last tier.
func (l Level) Terminal() bool {
	return l.NextLabel == MaxLabel
}

// ComputeLevel walks the ascending table and derives the rank state for a
// balance. It never errors: an empty table is the caller's bug, any balance
// gets a tier. The walk mirrors the configuration semantics exactly,
// including the division-by-zero floor when two thresholds are equal.
func ComputeLevel(balance int, table Table) Level {
	current := table[0]
	var next *Milestone
	for i := range table {
		if balance >= table[i].Threshold {
			current = table[i]
		} else {
			next = &table[i]
			break
		}
	}

	if next == nil {
		return Level{
			Current:       current,
			Progress:      1.0,
			Remaining:     0,
			NextLabel:     MaxLabel,
			NextThreshold: current.Threshold,
		}
	}

	span := next.Threshold - current.Threshold
	if span < 1 {
		span = 1
	}
	remaining := next.Threshold - balance
	if remaining < 0 {
		remaining = 0
	}
	return Level{
		Current:       current,
		Progress:      float64(balance-current.Threshold) / float64(span),
		Remaining:     remaining,
		NextLabel:     next.Label,
		NextThreshold: next.Threshold,
	}
}

// DefaultTable is the 6-tier ladder seeded into a fresh milestones table.
func DefaultTable() Table {
	return Table{
		{Label: "Madera", Threshold: 0, Color: "#8b5a2b", Icon: "assets/madera.png"},
		{Label: "Bronce", Threshold: 100, Color: "#b05c28", Icon: "assets/bronce.png"},
		{Label: "Plata", Threshold: 250, Color: "#a0a7b8", Icon: "assets/plata.png"},
		{Label: "Oro", Threshold: 500, Color: "#e0b63d", Icon: "assets/oro.png"},
		{Label: "Platino", Threshold: 750, Color: "#79b8ff", Icon: "assets/platino.png"},
		{Label: "Diamante", Threshold: 1000, Color: "#b07cff", Icon: "assets/diamante.png"},
	}
}
