package readygate

import (
	"errors"
	"time"

	"github.com/jpalmerr/readygate/internal/probe"
)

// FailureKind classifies why a check failed.
//
// Every kind is retried on the next iteration; none is fatal to the run.
type FailureKind string

const (
	// FailureInvalidAddress means a TCP target could not be parsed or resolved.
	FailureInvalidAddress FailureKind = "invalid_address"

	// FailureConnectionFailed means a TCP connection was refused or timed out.
	FailureConnectionFailed FailureKind = "connection_failed"

	// FailureRequestFailed means an HTTP request failed or returned a non-2xx status.
	FailureRequestFailed FailureKind = "request_failed"

	// FailureUnknown is used for errors that carry no classification.
	FailureUnknown FailureKind = "unknown"
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	return string(k)
}

// CheckError is the error reported for a failed check.
//
// Its message has the form "Invalid address: <detail>",
// "Connection failed: <detail>" or "Request failed: <detail>", where the
// detail names the target and the underlying cause.
type CheckError struct {
	// Kind classifies the failure.
	Kind FailureKind

	err error
}

func (e *CheckError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying cause.
func (e *CheckError) Unwrap() error {
	return e.err
}

// newCheckError classifies err, which is usually a probe error.
func newCheckError(err error) *CheckError {
	if err == nil {
		return nil
	}

	kind := FailureUnknown
	switch probe.KindOf(err) {
	case probe.KindInvalidAddress:
		kind = FailureInvalidAddress
	case probe.KindConnectionFailed:
		kind = FailureConnectionFailed
	case probe.KindRequestFailed:
		kind = FailureRequestFailed
	}
	return &CheckError{Kind: kind, err: err}
}

// KindOf returns the [FailureKind] of err, or [FailureUnknown] if err is not
// a [*CheckError].
func KindOf(err error) FailureKind {
	var ce *CheckError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return FailureUnknown
}

// Outcome holds the result of checking a single endpoint once.
//
// Outcomes are delivered to callbacks registered with [WithOutcomeCallback]
// in the order endpoints were checked: every remaining TCP endpoint first,
// then every remaining HTTP endpoint.
type Outcome struct {
	// Endpoint is the endpoint that was checked.
	Endpoint Endpoint

	// Err is nil on success, otherwise a [*CheckError].
	Err error

	// Latency is the time taken by the check.
	Latency time.Duration

	// CheckedAt is when the check finished.
	CheckedAt time.Time

	// Iteration is the 1-based pass that produced this outcome.
	Iteration int
}

// OK reports whether the check passed.
func (o Outcome) OK() bool {
	return o.Err == nil
}
