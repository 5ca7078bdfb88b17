package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so callers and HTTP handlers can
// branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuthorization
	KindQuotaExceeded
	KindUpstream
)

// Error is the application error type. Message is safe to show to the
// caller; Cause carries the internal detail and is only surfaced in dev.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an application error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an application error wrapping an internal cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error     { return New(KindValidation, message) }
func Conflict(message string) *Error       { return New(KindConflict, message) }
func NotFound(message string) *Error       { return New(KindNotFound, message) }
func Authorization(message string) *Error  { return New(KindAuthorization, message) }
func QuotaExceeded(message string) *Error  { return New(KindQuotaExceeded, message) }
func Upstream(message string, cause error) *Error {
	return Wrap(KindUpstream, message, cause)
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
