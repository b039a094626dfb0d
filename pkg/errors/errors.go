// Package errors provides structured error types for prunepack.
//
// Every failure that crosses a component boundary carries a machine-readable
// [Code] so the pipeline can decide how far it propagates:
//
//   - CONFIG_LOAD_FAILURE aborts the whole run before any unit is processed
//   - EXTRACTION_FAILED is recovered per unit by packaging the full shared tree
//   - CLOSURE_DID_NOT_CONVERGE and STAGING_IO_FAILURE fail a single unit
//   - REGISTRY_INCONSISTENCY is only produced by the validator
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown unit: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStagingIO, origErr, "copy %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Run-scoped failures
	ErrCodeConfigLoad Code = "CONFIG_LOAD_FAILURE"

	// Unit-scoped failures
	ErrCodeExtraction            Code = "EXTRACTION_FAILED"
	ErrCodeClosureDidNotConverge Code = "CLOSURE_DID_NOT_CONVERGE"
	ErrCodeStagingIO             Code = "STAGING_IO_FAILURE"

	// Validation-only
	ErrCodeRegistryInconsistency Code = "REGISTRY_INCONSISTENCY"

	// Input errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeUnknownUnit  Code = "UNKNOWN_UNIT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsUnitScoped reports whether err should fail only the unit that produced it.
// Config load failures and uncoded errors are treated as run-scoped.
func IsUnitScoped(err error) bool {
	switch GetCode(err) {
	case ErrCodeExtraction, ErrCodeClosureDidNotConverge, ErrCodeStagingIO:
		return true
	}
	return false
}
