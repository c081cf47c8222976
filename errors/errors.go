// Package errors provides error handling for market-intel.
//
// This package re-exports github.com/cockroachdb/errors, providing stack
// traces, error wrapping, and safe formatting, plus the sentinel errors the
// HTTP layer maps onto status codes.
//
// Usage:
//
//	// Wrap with context
//	if err := store.Pause(id); err != nil {
//	    return errors.Wrap(err, "failed to pause schedule")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithMessage = crdb.WithMessage
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is     = crdb.Is
	IsAny  = crdb.IsAny
	As     = crdb.As
	Unwrap = crdb.Unwrap
)

// Sentinel errors for use across market-intel.
// Use these with errors.Is() for type-safe error checking; wrap them with
// errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrUnauthorized indicates the request lacks a valid session
	ErrUnauthorized = New("unauthorized")

	// ErrForbidden indicates the authenticated caller may not act on this resource
	ErrForbidden = New("forbidden")

	// ErrValidation indicates the request payload was malformed or incomplete
	ErrValidation = New("validation failed")

	// ErrInvalidFrequency indicates an unrecognized recurrence tag.
	// Callers must not silently default when they see this.
	ErrInvalidFrequency = New("invalid frequency")

	// ErrConflict indicates a resource conflict (e.g., duplicate key)
	ErrConflict = New("resource conflict")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
// Also matches string-based "not found" errors from store layers.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNotFound) {
		return true
	}
	errMsg := err.Error()
	return len(errMsg) >= 9 && (errMsg == "not found" ||
		errMsg[len(errMsg)-9:] == "not found" ||
		len(errMsg) > 10 && errMsg[:10] == "not found:")
}

// IsForbiddenError checks if an error is or wraps ErrForbidden
func IsForbiddenError(err error) bool {
	return err != nil && Is(err, ErrForbidden)
}

// IsValidationError checks if an error is or wraps ErrValidation
func IsValidationError(err error) bool {
	return err != nil && Is(err, ErrValidation)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewValidationError creates a validation error with a formatted message
func NewValidationError(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}
