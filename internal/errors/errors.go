// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so session faults can be told apart without matching
// on message text.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to decide whether a fault is surfaced to the caller or recovered locally.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// CorruptedPersistedData indicates malformed data under a well-known storage key.
	CorruptedPersistedData Kind = "corrupted_persisted_data"
	// NoActiveToken indicates an operation needed an access token and none was stored.
	NoActiveToken Kind = "no_active_token"
	// PersistenceUnavailable indicates the credential store could not be opened or read.
	PersistenceUnavailable Kind = "persistence_unavailable"
	// UpstreamAuthFailure indicates the identity provider rejected or failed a request.
	UpstreamAuthFailure Kind = "upstream_auth_failure"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *E
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
