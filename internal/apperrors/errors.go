// Package apperrors defines the error kinds returned by account and session
// operations. Every kind maps to a stable numeric code that the HTTP layer
// reuses as the response status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind sentinels. Match them with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// Error is a classified error with a client-facing message.
// Err keeps the underlying cause for logs; it is never sent to clients.
type Error struct {
	Kind    error
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match both the kind sentinel and the wrapped cause.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports missing or malformed input. fields names the offending
// inputs, if known.
func Validation(msg string, fields ...string) error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

func TooManyRequests(msg string) error {
	return &Error{Kind: ErrTooManyRequests, Message: msg}
}

// Internal wraps an unexpected persistence, signing or collaborator failure.
func Internal(err error, msg string) error {
	return &Error{Kind: ErrInternal, Message: msg, Err: err}
}

// Code returns the stable numeric code for err. Unclassified errors are
// reported as internal.
func Code(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message of err. Internal and
// unclassified errors get a generic text so causes do not leak.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != ErrInternal {
		return appErr.Message
	}
	return "Internal server error"
}

// Fields returns the offending input names attached to a validation error.
func Fields(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
