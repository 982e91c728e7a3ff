// Package proxyerr defines the error taxonomy shared across the proxy.
//
//nolint:revive // "proxyerr" is an intentional package name for cross-cutting errors.
package proxyerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to recover.
type Kind string

const (
	// KindInvalidRequest indicates a caller error; not retryable without correction.
	KindInvalidRequest Kind = "invalid_request"
	// KindSessionNotFound indicates an unknown or expired session; recoverable by re-discovering.
	KindSessionNotFound Kind = "session_not_found"
	// KindUpstreamUnavailable indicates a transient network or backend failure; the caller may retry the whole call.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindCatalog indicates the upstream catalog responded with malformed or incomplete data.
	KindCatalog Kind = "catalog_error"
	// KindNotConnected indicates the target application requires an out-of-band authorization step.
	KindNotConnected Kind = "not_connected"
	// KindTimeout indicates a per-call budget was exceeded; retryable.
	KindTimeout Kind = "timeout"
	// KindUnknownApplication indicates the caller referenced an application the upstream does not know.
	KindUnknownApplication Kind = "unknown_application"
	// KindUpstreamRejected indicates an upstream-reported business failure; not retryable without changing the request.
	KindUpstreamRejected Kind = "upstream_rejected"
	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = "internal"
)

// Error carries a Kind alongside a message and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns an Error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error wrapping err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain,
// or KindInternal when none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err's chain carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a failure of this kind may succeed on retry
// without the caller changing the request.
func Retryable(kind Kind) bool {
	switch kind {
	case KindUpstreamUnavailable, KindTimeout:
		return true
	default:
		return false
	}
}
