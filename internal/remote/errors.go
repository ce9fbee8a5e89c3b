package remote

import (
	"errors"
	"fmt"
)

// Common errors returned by the remote layer.
var (
	// ErrNotAuthenticated is returned when no credential is available
	// for a request. This is a precondition failure and is never
	// retried.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when the remote document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a create hits an existing document.
	// Submission paths treat it as success so repeats are safe.
	ErrConflict = errors.New("document already exists")
)

// StoreError describes a non-2xx response from the document store that
// does not map to a sentinel error.
type StoreError struct {
	Operation  string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("document store %s failed: HTTP %d: %s",
		e.Operation, e.StatusCode, e.Message)
}

// SyncError is a submission failure for a single pending write.
type SyncError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sync %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("sync %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *SyncError) Unwrap() error {
	return e.Err
}
