// Package student defines the roster entities: students and the
// institutions that group them. The XP balance lives here; the ledger owns
// the history that keeps it honest.
package student

import (
	"strings"

	"github.com/classquest/classquest/internal/domain/shared"
)

// Student is one row of the roster. The XP balance is mutable state with a
// documented invariant: balance equals the initial balance plus the sum of
// every undeleted ledger entry for this student.
type Student struct {
	// ID is the unique integer identity. Never reused.
	ID int

	// Name is the display name. Ledger and observation rows snapshot it at
	// write time; renames do not propagate into history.
	Name string

	// Group is a free-form grouping label within the institution.
	Group string

	// XP is the current balance. May go negative.
	XP int

	// InstitutionID references the institutions table.
	InstitutionID int

	// Phone and Teacher are free-text contact metadata.
	Phone   string
	Teacher string

	// PendingDelta and PendingReason are the bulk-adjustment staging
	// columns: a nonzero PendingDelta is applied and zeroed by the ledger
	// engine's ApplyPending pass.
	PendingDelta  int
	PendingReason string

	// Avatar, Trinket and TrinketDesc are opaque asset references resolved
	// by external collaborators.
	Avatar      string
	Trinket     string
	TrinketDesc string
}

// Validate checks the invariants a student row must satisfy before it is
// persisted.
func (s Student) Validate() error {
	if s.ID <= 0 {
		return shared.ErrInvalidStudentID
	}
	if strings.TrimSpace(s.Name) == "" {
		return shared.NewDomainError("roster", "Validate", shared.ErrEmptyValue, "student name is empty")
	}
	return nil
}

// Normalize applies the loader defaults: an unset institution belongs to
// the default institution. Numeric coercion of malformed stored values is
// the codec's job; this only fills in intentional defaults.
func (s Student) Normalize() Student {
	if s.InstitutionID == 0 {
		s.InstitutionID = DefaultInstitutionID
	}
	return s
}

// DefaultInstitutionID is the seed institution every unassigned student
// falls back to.
const DefaultInstitutionID = 1

// Institution is one named group of students, placed on the campaign map
// by external renderers.
type Institution struct {
	ID   int
	Name string
	X    int
	Y    int
	Icon string
}

// Validate checks the invariants an institution row must satisfy.
func (i Institution) Validate() error {
	if i.ID <= 0 {
		return shared.NewDomainError("roster", "Validate", shared.ErrInvalidID, "invalid institution ID")
	}
	if strings.TrimSpace(i.Name) == "" {
		return shared.NewDomainError("roster", "Validate", shared.ErrEmptyValue, "institution name is empty")
	}
	return nil
}

// DefaultInstitution is the seed row created on first read of an empty
// institutions table.
func DefaultInstitution() Institution {
	return Institution{ID: DefaultInstitutionID, Name: "COLEGIO", X: 100, Y: 100, Icon: "assets/castle1.png"}
}
