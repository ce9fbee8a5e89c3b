package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrItemNotFound is returned when a learning item cannot be located
	// in the in-memory collection.
	ErrItemNotFound = errors.New("learning item not found")

	// ErrInvariantViolation is returned when an item's counters are in a
	// state the state machine can never legally produce. This indicates a
	// programming defect, not a user-facing condition.
	ErrInvariantViolation = errors.New("invariant violation")
)

// ValidationError describes a validation failure on a specific field.
// It wraps ErrValidation so callers can match with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
