// Package workset tracks the endpoints that have not yet passed a readiness
// check.
//
// The [Tracker] holds two ordered sequences, TCP addresses and HTTP URLs.
// It only ever shrinks: entries are removed when their probe succeeds and are
// never re-added. Duplicate entries are independent; each is removed on its
// own success.
//
// A Tracker is not safe for concurrent mutation. It is owned by a single
// goroutine (the check loop); probe workers hand their outcomes back to that
// goroutine instead of touching the tracker.
package workset

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/readygate/internal/probe"
)

// Outcome is the result of probing one work-set entry.
//
// Err is nil on success. A non-nil Err is usually a [*probe.Error]; its kind
// is included in the failure log line.
type Outcome struct {
	Target string
	Err    error
}

// Tracker holds the not-yet-succeeded TCP and HTTP endpoints.
type Tracker struct {
	tcp    []string
	http   []string
	logger *slog.Logger
}

// New creates a [Tracker] from the initial TCP and HTTP lists.
//
// The input slices are copied. If logger is nil, [slog.Default] is used.
func New(tcp, http []string, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		tcp:    append([]string(nil), tcp...),
		http:   append([]string(nil), http...),
		logger: logger,
	}
}

// TCP returns a copy of the remaining TCP addresses in input order.
func (t *Tracker) TCP() []string {
	return append([]string(nil), t.tcp...)
}

// HTTP returns a copy of the remaining HTTP URLs in input order.
func (t *Tracker) HTTP() []string {
	return append([]string(nil), t.http...)
}

// RemainingCounts returns how many TCP and HTTP entries are still pending.
func (t *Tracker) RemainingCounts() (tcp, http int) {
	return len(t.tcp), len(t.http)
}

// Remaining returns the total number of pending entries.
func (t *Tracker) Remaining() int {
	return len(t.tcp) + len(t.http)
}

// IsEmpty reports whether both sequences are empty.
func (t *Tracker) IsEmpty() bool {
	return len(t.tcp) == 0 && len(t.http) == 0
}

// ApplyTCP removes every TCP entry whose outcome succeeded.
//
// outcomes must be aligned by position with [Tracker.TCP]: outcomes[i] is the
// result for the i-th remaining entry. Survivors keep their relative order.
// One line is logged per outcome: info on success, error on failure.
//
// Returns an error, and leaves the tracker unchanged, if outcomes do not line
// up with the current entries.
func (t *Tracker) ApplyTCP(outcomes []Outcome) error {
	kept, err := t.apply("TCP", t.tcp, outcomes)
	if err != nil {
		return err
	}
	t.tcp = kept
	return nil
}

// ApplyHTTP is the HTTP counterpart of [Tracker.ApplyTCP].
func (t *Tracker) ApplyHTTP(outcomes []Outcome) error {
	kept, err := t.apply("HTTP", t.http, outcomes)
	if err != nil {
		return err
	}
	t.http = kept
	return nil
}

// apply validates alignment, logs each outcome, and returns the survivors.
func (t *Tracker) apply(protocol string, entries []string, outcomes []Outcome) ([]string, error) {
	if len(outcomes) != len(entries) {
		return nil, fmt.Errorf("%s outcomes: got %d, want %d", protocol, len(outcomes), len(entries))
	}
	for i, o := range outcomes {
		if o.Target != entries[i] {
			return nil, fmt.Errorf("%s outcomes[%d]: target %q does not match pending entry %q",
				protocol, i, o.Target, entries[i])
		}
	}

	kept := make([]string, 0, len(entries))
	for _, o := range outcomes {
		if o.Err == nil {
			t.logger.Info(protocol+" check succeeded", "target", o.Target)
			continue
		}

		t.logger.Error(protocol+" check failed",
			"target", o.Target,
			"kind", kindOf(o.Err),
			"error", o.Err.Error(),
		)
		kept = append(kept, o.Target)
	}
	return kept, nil
}

// kindOf names the failure kind for logging, falling back to "unknown".
func kindOf(err error) string {
	if k := probe.KindOf(err); k != "" {
		return k.String()
	}
	return "unknown"
}
