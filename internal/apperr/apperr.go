// Package apperr defines the error taxonomy shared by every service in the
// core. Each error carries a stable code that the API boundary maps to a
// response; internal messages never leak past that boundary unless the code
// is one of the user-facing ones.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error class with a stable, user-facing string.
type Code string

const (
	// CodeValidation marks malformed input: bad permission strings, missing
	// required fields, invalid email addresses.
	CodeValidation Code = "validation_error"
	// CodeConflict marks uniqueness violations: duplicate role slug,
	// provider identity already linked to another user.
	CodeConflict Code = "conflict"
	// CodeNotFound marks lookups for roles, sessions or provider links that
	// do not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidOperation marks operations forbidden by an invariant:
	// mutating a protected role, removing the last authentication method.
	CodeInvalidOperation Code = "invalid_operation"
	// CodeUnauthenticated marks requests without a usable session or with
	// credentials that do not verify.
	CodeUnauthenticated Code = "unauthenticated"
	// CodeForbidden marks authenticated requests that fail a permission
	// check. The response never names the missing permission.
	CodeForbidden Code = "forbidden"
	// CodeOAuth marks upstream exchange failures: invalid or expired
	// authorization code, state mismatch.
	CodeOAuth Code = "oauth_error"
	// CodeUnavailable marks timeouts talking to external collaborators.
	// These surface as a generic "try again" and are never retried here.
	CodeUnavailable Code = "unavailable"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an underlying error and returns the receiver.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// New creates an error with the given code.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a CodeValidation error.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// Conflict creates a CodeConflict error.
func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, format, args...)
}

// NotFound creates a CodeNotFound error.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// InvalidOperation creates a CodeInvalidOperation error.
func InvalidOperation(format string, args ...any) *Error {
	return New(CodeInvalidOperation, format, args...)
}

// Unauthenticated creates a CodeUnauthenticated error. The message is the
// same for unknown users and wrong passwords so callers cannot probe which
// accounts exist.
func Unauthenticated(format string, args ...any) *Error {
	return New(CodeUnauthenticated, format, args...)
}

// Forbidden creates a CodeForbidden error with a fixed generic message.
func Forbidden() *Error {
	return New(CodeForbidden, "insufficient permissions")
}

// OAuth creates a CodeOAuth error.
func OAuth(format string, args ...any) *Error {
	return New(CodeOAuth, format, args...)
}

// Unavailable creates a CodeUnavailable error.
func Unavailable(format string, args ...any) *Error {
	return New(CodeUnavailable, format, args...)
}

// CodeOf returns the code of err, or an empty Code for unclassified errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
