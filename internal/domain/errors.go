// Package domain contains the domain model and errors shared by every layer.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions.
var (
	ErrSelectionCancelled = errors.New("repository selection cancelled")
	ErrInvalidRepository  = errors.New("folder is not a git repository")
	ErrNoRepository       = errors.New("no repository selected")
	ErrStaleRegistry      = errors.New("path is already locked according to the lock registry")
	ErrMalformedLockLine  = errors.New("malformed lock listing line")
	ErrMalformedLockJSON  = errors.New("malformed lock payload")
	ErrEmptyPath          = errors.New("path cannot be empty")
	ErrHubNotRunning      = errors.New("event hub is not running")
	ErrSubscriberClosed   = errors.New("subscriber is closed")
	ErrHistoryDisabled    = errors.New("lock history is disabled")
)

// AdapterError represents a failed git lfs invocation.
type AdapterError struct {
	Op     string // Operation that failed (ls-files, locks, lock, unlock)
	Err    error  // Underlying error
	Stderr string // Trimmed stderr of the tool, if any
}

func (e *AdapterError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git lfs %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("git lfs %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError.
func NewAdapterError(op string, err error, stderr string) *AdapterError {
	return &AdapterError{
		Op:     op,
		Err:    err,
		Stderr: strings.TrimSpace(stderr),
	}
}

// StaleRegistryError reports a lock request for a path the registry already holds.
type StaleRegistryError struct {
	Path  string
	Owner string
	ID    uint64
}

func (e *StaleRegistryError) Error() string {
	return fmt.Sprintf("%s: %s (owner %s, id %d)", ErrStaleRegistry, e.Path, e.Owner, e.ID)
}

func (e *StaleRegistryError) Unwrap() error {
	return ErrStaleRegistry
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsAdapterError reports whether err came from a git lfs invocation.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
