// Package errkind provides the closed error taxonomy shared by every
// component of the analysis service. Client-facing failures are always
// surfaced as an *Error carrying one of the Kind values below; panics are
// reserved for programmer errors. The facade does not recover panics into
// KindInternal; only the HTTP transport's Recoverer middleware catches
// them, answering with a plain 500.
package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a client-visible failure.
type Kind int

const (
	// KindInvalidArgument covers malformed identifiers, missing required
	// fields, and traversal-containing paths.
	KindInvalidArgument Kind = iota
	// KindUnauthorized covers owner mismatches.
	KindUnauthorized
	// KindNotFound covers missing sessions, dumps, watches, or modules.
	KindNotFound
	// KindPrecondition covers "no dump open", "extension not loaded", and
	// similar state-machine violations.
	KindPrecondition
	// KindQuota covers per-owner or global session-limit exhaustion.
	KindQuota
	// KindTimeout covers command-deadline breaches.
	KindTimeout
	// KindBackendUnavailable covers a debugger subprocess that exited or
	// could not start.
	KindBackendUnavailable
	// KindUnsupportedOperation covers a command the backend does not
	// implement; treated as a soft failure inside the pipeline.
	KindUnsupportedOperation
	// KindInternal covers programmer errors; should be rare.
	KindInternal
)

// String renders a Kind as its wire-visible name.
func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindUnauthorized:
		return "Unauthorized"
	case KindNotFound:
		return "NotFound"
	case KindPrecondition:
		return "Precondition"
	case KindQuota:
		return "Quota"
	case KindTimeout:
		return "Timeout"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindUnsupportedOperation:
		return "UnsupportedOperation"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every component in this
// service. It wraps an optional underlying cause without losing the Kind.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error carrying cause, or returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that did not originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Invalidf builds a KindInvalidArgument error with a formatted message.
func Invalidf(format string, args ...any) *Error {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFoundf builds a KindNotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Preconditionf builds a KindPrecondition error with a formatted message.
func Preconditionf(format string, args ...any) *Error {
	return New(KindPrecondition, fmt.Sprintf(format, args...))
}
