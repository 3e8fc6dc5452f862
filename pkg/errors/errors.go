// Package errors provides structured error types for castgraph.
//
// Every failure that reaches the user carries a machine-readable [Code] so
// the CLI, the explorer and the reference service can decide how to surface
// it: a dismissible notice, a fatal initialization error or a 4xx payload.
//
// # Error Codes
//
// The core error kinds are:
//   - NETWORK_FAILURE: fetch rejected or non-success status
//   - EMPTY_DATASET: the data service returned zero nodes
//   - INVALID_PATH_QUERY: identical start and end, rejected before any call
//   - PATH_NOT_FOUND: the service reported that no path exists
//
// None of them is retried automatically; a new user action is required.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPathQuery, "start and end are both %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidPathQuery) {
//	    // surface immediately
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetworkFailure, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Core error kinds
	ErrCodeNetworkFailure   Code = "NETWORK_FAILURE"
	ErrCodeEmptyDataset     Code = "EMPTY_DATASET"
	ErrCodeInvalidPathQuery Code = "INVALID_PATH_QUERY"
	ErrCodePathNotFound     Code = "PATH_NOT_FOUND"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
		return e.Message
	}
	return err.Error()
}

// Dismissible reports whether err should be shown as a notice that leaves
// the current graph state untouched. Network failures are dismissible;
// an empty dataset is fatal for initialization.
func Dismissible(err error) bool {
	switch GetCode(err) {
	case ErrCodeNetworkFailure, ErrCodePathNotFound, ErrCodeInvalidPathQuery:
		return true
	}
	return false
}
