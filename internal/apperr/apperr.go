// Package apperr defines the error kinds shared across the service layer.
// Handlers map kinds to HTTP statuses; services never return bare strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	// Validation means the input was missing or malformed; user-correctable.
	Validation Kind = iota
	// PermissionDenied means the actor is not authorized for the action.
	PermissionDenied
	// NotFound means a referenced entity does not exist.
	NotFound
	// Conflict means a uniqueness constraint (prn, email) was violated.
	Conflict
	// Unauthenticated means credentials or token were rejected.
	Unauthenticated
	// Store means the underlying persistence layer failed.
	Store
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error. Used mainly for Store failures so
// the driver error survives for logs while the caller sees a stable kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of err, defaulting to Store for untyped errors so
// persistence faults are never silently reclassified as user mistakes.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Store
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
