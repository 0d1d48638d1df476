// Package domainerrors provides coded errors for expected failures. Services
// return these so transports can translate them without string matching, and
// tests can assert on codes instead of messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an expected failure.
type Code string

const (
	// Guard rejections. These are business outcomes, not faults: the engine
	// returns them without mutating anything.
	CodeIllegalTransition   Code = "illegal_transition"
	CodeUnauthorizedRole    Code = "unauthorized_role"
	CodeMissingRequiredData Code = "missing_required_data"

	// General request/validation failures.
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeTimeout      Code = "timeout"

	// Faults. Anything carrying these indicates a broken invariant or an
	// infrastructure failure, not a caller mistake.
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors so unexpected failures never masquerade as client mistakes.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
