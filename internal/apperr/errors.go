// Package apperr defines the error taxonomy shared by all Veridian core
// operations. Callers classify failures with errors.Is against the
// sentinel values; the API layer maps them to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown organization, evidence, comment,
	// process, asset, or other entity ID.
	ErrNotFound = errors.New("not found")

	// ErrControlNotFound indicates a control code absent from the catalog.
	ErrControlNotFound = errors.New("control not found")

	// ErrValidation indicates a rejected input: invalid status enum,
	// invalid tier, missing required field.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a concurrent-update conflict.
	ErrConflict = errors.New("conflict")

	// ErrStorage indicates a blob or persistence I/O failure.
	ErrStorage = errors.New("storage failure")

	// ErrPathSecurity indicates a resolved evidence path outside the
	// caller's organization namespace.
	ErrPathSecurity = errors.New("path outside organization namespace")

	// ErrTimeout indicates a storage or blob operation exceeded its
	// bounded deadline.
	ErrTimeout = errors.New("operation timed out")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storagef wraps ErrStorage with a formatted message and cause.
func Storagef(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, fmt.Sprintf(format, args...), cause)
}
