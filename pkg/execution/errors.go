package execution

import (
	"errors"
	"fmt"
)

// Kind classifies failures from the manual entry points so HTTP handlers can
// pick a status code without matching on message text.
type Kind int

const (
	// KindNotFound means the referenced job does not exist.
	KindNotFound Kind = iota
	// KindPrecondition means the job exists but is not in a state that
	// allows the operation (email disabled, no successful run, artifact
	// missing from disk).
	KindPrecondition
	// KindUnavailable means an upstream provider rejected or refused the
	// operation, e.g. SMTP authentication failure.
	KindUnavailable
	// KindInternal covers everything else.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a failure with a Kind discriminant.
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

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
