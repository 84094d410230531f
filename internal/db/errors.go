package db

import "errors"

// Sentinel errors surfaced by store methods so handlers can map them to HTTP
// status codes with errors.Is.
var (
	// ErrNotFound indicates a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a domain validation rule was violated; the
	// enclosing transaction has been rolled back.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition indicates an assessment step was attempted while
	// the assessment is not in the required predecessor state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrVersionConflict indicates an optimistic concurrency check failed:
	// the row was modified since the caller read it.
	ErrVersionConflict = errors.New("version conflict")
)
