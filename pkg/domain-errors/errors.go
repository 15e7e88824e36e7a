// Package domainerrors defines the code-carrying error type used across all
// services and handlers. Services attach a Code describing the failure class;
// the transport layer translates codes to HTTP statuses without leaking
// internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeValidation marks rejected input that never reached a write,
	// including age-blocked profile creation.
	CodeValidation Code = "validation"
	// CodeBadRequest marks malformed requests (unparseable body, bad ids).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks values failing boundary parsing.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks absent resources, including resources the caller
	// does not own. Ownership failures deliberately read as not-found.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks authenticated but disallowed operations.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks state conflicts.
	CodeConflict Code = "conflict"
	// CodeTimeout marks cancelled or deadline-exceeded work.
	CodeTimeout Code = "timeout"
	// CodeInvariantViolation marks states that should be unreachable.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks unexpected failures; surfaced generically.
	CodeInternal Code = "internal"
)

// Error is the canonical domain error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// Is is a convenience alias for HasCode used at call sites that read better
// as a predicate.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the outermost code, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the outermost message safe for client display.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
