// Package apperr defines the error kinds shared by all route handlers.
// Every failure that crosses a handler boundary is classified as one of
// these kinds so the HTTP status mapping is a pure function of the kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping
type Kind int

const (
	// Upstream means the ERP or SMS provider failed or was unreachable
	Upstream Kind = iota
	// Validation means required input was missing or malformed
	Validation
	// Auth means there is no valid session
	Auth
	// NotFound means no matching remote record exists
	NotFound
	// Conflict means the operation collides with existing remote state
	Conflict
	// RateLimited means the caller exceeded an intake quota
	RateLimited
)

// Error is an error with a Kind and a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// StatusCode maps an error to its HTTP status. Unclassified errors are
// treated as upstream failures.
func StatusCode(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message safe to show to the caller
func UserMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
