// Package shared contains the common error taxonomy used across all domain
// and application packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base errors for checking with errors.Is(). Callers map these to
// user-visible outcomes: "student not found" and "storage unavailable"
// must stay distinguishable.
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation = errors.New("validation error")
	ErrInvalidID  = errors.New("invalid ID")
	ErrEmptyValue = errors.New("value cannot be empty")

	// Configuration errors: a required backend setting is absent while the
	// backend was explicitly selected.
	ErrConfiguration = errors.New("configuration error")

	// Backend I/O errors: transient failure talking to the storage backend.
	// Propagated, never retried internally; table-level replace writes are
	// idempotent so callers may retry.
	ErrBackendIO = errors.New("backend I/O error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "roster", "ledger", "attendance"
	Op      string // operation that failed, e.g., "ApplyDelta"
	Kind    error  // base error type for errors.Is() checking
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Roster domain errors
var (
	ErrStudentNotFound     = NewDomainError("roster", "Find", ErrNotFound, "student not found")
	ErrInstitutionNotFound = NewDomainError("roster", "FindInstitution", ErrNotFound, "institution not found")
	ErrInvalidStudentID    = NewDomainError("roster", "Validate", ErrInvalidID, "invalid student ID")
)

// Ledger and observation domain errors
var (
	ErrEmptyObservation = NewDomainError("observation", "Append", ErrEmptyValue, "observation text is empty")
)

// Attendance domain errors
var (
	ErrInvalidStatus = NewDomainError("attendance", "Validate", ErrValidation, "invalid attendance status")
	ErrInvalidDate   = NewDomainError("attendance", "Validate", ErrValidation, "invalid calendar date")
)

// Milestone domain errors
var (
	ErrBadThresholds = NewDomainError("milestone", "Validate", ErrValidation, "thresholds must be non-negative and strictly increasing")
)

// Storage errors
var (
	ErrUnknownTable          = NewDomainError("tablestore", "Schema", ErrValidation, "unknown table")
	ErrSheetNotConfigured    = NewDomainError("gsheet", "New", ErrConfiguration, "spreadsheet ID or access token missing")
	ErrDatabaseNotConfigured = NewDomainError("postgres", "New", ErrConfiguration, "database URL missing")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrEmptyValue)
}

// IsConfiguration checks if the error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsBackendIO checks if the error came from the storage backend.
func IsBackendIO(err error) bool {
	return errors.Is(err, ErrBackendIO)
}
