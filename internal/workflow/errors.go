package workflow

import (
	"context"
	"errors"
	"fmt"

	"ideaforge/internal/perception"
)

// ErrorKind enumerates the failure classes the pipeline distinguishes.
type ErrorKind string

const (
	KindTransientProvider  ErrorKind = "TransientProviderError"
	KindPermanentProvider  ErrorKind = "PermanentProviderError"
	KindParse              ErrorKind = "ParseError"
	KindTimeout            ErrorKind = "TimeoutError"
	KindCancellation       ErrorKind = "CancellationError"
	KindInvariantViolation ErrorKind = "InvariantViolation"
	KindConfiguration      ErrorKind = "ConfigurationError"
)

// Error is the typed error surfaced by Run. Stage-local failures are
// recovered into FailureNotes instead; only aborting conditions reach the
// caller as *Error.
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so callers can test errors.Is(err, &Error{Kind: ...}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// FailureNote records one recovered stage failure on a candidate (or at the
// run level when no candidate context exists yet).
type FailureNote struct {
	Stage   string    `json:"stage"` // advocacy | skepticism | improvement | re-evaluation | evaluation
	Kind    ErrorKind `json:"error_kind"`
	Message string    `json:"message"`
}

// classifyErr maps an underlying error to its kind. The phase context is
// consulted to tell a per-phase timeout apart from provider trouble.
func classifyErr(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancellation
	default:
		var perm *perception.PermanentError
		if errors.As(err, &perm) {
			return KindPermanentProvider
		}
		return KindTransientProvider
	}
}
