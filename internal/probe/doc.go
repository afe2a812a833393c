// Package probe performs single, bounded readiness checks against TCP and
// HTTP endpoints.
//
// This package is internal to readygate. Each call makes exactly one attempt
// and reports either nil or a classified [*Error]. Probes hold no state
// between calls, so calling one twice against a reachable endpoint succeeds
// both times.
//
// The main components are:
//
//   - [Prober]: TCP connect and HTTP GET checks bounded by a timeout
//   - [Error]: failure carrying a [Kind] and the underlying cause
//
// Users of the readygate library should not need to interact with this
// package directly.
package probe
