package probe

import (
	"errors"
	"fmt"
)

// Kind classifies why a probe failed.
type Kind string

const (
	// KindInvalidAddress means a TCP target could not be parsed or resolved.
	KindInvalidAddress Kind = "invalid_address"

	// KindConnectionFailed means the TCP connect did not complete in time or was refused.
	KindConnectionFailed Kind = "connection_failed"

	// KindRequestFailed means the HTTP request failed or returned a non-2xx status.
	KindRequestFailed Kind = "request_failed"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// label is the human-readable prefix used in error messages.
func (k Kind) label() string {
	switch k {
	case KindInvalidAddress:
		return "Invalid address"
	case KindConnectionFailed:
		return "Connection failed"
	case KindRequestFailed:
		return "Request failed"
	default:
		return "Check failed"
	}
}

// Error is a classified probe failure.
//
// Message identifies the endpoint and describes the cause; Err holds the
// underlying error when there is one.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error formats the failure as "<Kind label>: <message>".
func (e *Error) Error() string {
	return e.Kind.label() + ": " + e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds an Error whose message is "<target>: <cause>".
func newError(kind Kind, target string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v", target, cause),
		Err:     cause,
	}
}

// KindOf returns the kind of a probe error, or "" if err is not one.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
