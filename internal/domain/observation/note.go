// Package observation defines the free-text note log. Same shape and
// lifecycle as the ledger minus the numeric delta and its balance
// side-effect: timestamp-keyed, append-only, deletable by timestamp set.
package observation

import (
	"time"

	"github.com/classquest/classquest/pkg/timeutil"
)

// Note is one observation about a student.
type Note struct {
	// Timestamp is the ISO-8601 second-precision write time and natural key.
	Timestamp string

	// StudentID is the subject student.
	StudentID int

	// Name is the student's name snapshotted at write time.
	Name string

	// Text is the observation body. Never empty once persisted.
	Text string
}

// Stamp formats a write time as a note timestamp.
func Stamp(t time.Time) string {
	return timeutil.Stamp(t)
}
