/*
errors.go - Centralized error taxonomy for the attendance engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Every failure that crosses a package boundary is classified into exactly
  one kind, and the transport layer maps kinds to status codes.

ERROR KINDS:
  ErrNotFound    - entity absent, or not visible to the caller
  ErrBadRequest  - validation failure (message says which rule)
  ErrForbidden   - actor lacks the required role or the day is blocked
  ErrConflict    - state precondition failed (request not pending, stale data)
  ErrInternal    - storage failure or corrupted stored document

USAGE:
  Domain packages build errors with the helpers and classify with errors.Is:

    if att == nil {
        return nil, generic.NotFound("attendance record not found")
    }

    if errors.Is(err, generic.ErrConflict) { ... }

  Stores return the bare sentinels ErrNotFound and ErrDuplicate; services
  translate them into a message for the caller.

SEE ALSO:
  - api/handlers.go: writeServiceError maps kinds to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity doesn't exist or is
	// owned by someone else.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned when input violates a validation rule.
	ErrBadRequest = errors.New("bad request")

	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the current state does not allow the operation.
	ErrConflict = errors.New("conflict")

	// ErrInternal is returned for storage failures and unreadable stored data.
	ErrInternal = errors.New("internal error")

	// ErrDuplicate is returned by stores when a uniqueness constraint fails.
	ErrDuplicate = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERROR - Kind + client message + optional cause
// =============================================================================

// Error carries a kind, a message safe to show to clients and the
// underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) error {
	return &Error{Kind: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an infrastructure failure. Errors that are already
// classified pass through unchanged.
func Internal(cause error, format string, args ...any) error {
	var classified *Error
	if errors.As(cause, &classified) {
		return cause
	}
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the sentinel kind of err. Unclassified errors are internal.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrBadRequest, ErrForbidden, ErrConflict, ErrInternal} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// MessageOf returns the client-facing message of err. Internal errors
// never leak their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to caller input or state.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrNotFound, ErrBadRequest, ErrForbidden, ErrConflict:
		return true
	}
	return false
}
