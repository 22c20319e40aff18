package domain

import "errors"

// Common domain errors
var (
	// ErrNotFound is returned when a requested transaction does not exist.
	ErrNotFound = errors.New("transaction not found")
	// ErrValidation is returned when command input fails validation before
	// touching storage.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState is returned when a command is not valid for the
	// aggregate's current status. It is a business-rule violation and is
	// never retried.
	ErrInvalidState = errors.New("invalid transaction state")
)
