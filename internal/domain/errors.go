package domain

import "errors"

var (
	// ErrValidation marks input that failed domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup that matched no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition rejected by the current status.
	ErrConflict = errors.New("conflict")
)
