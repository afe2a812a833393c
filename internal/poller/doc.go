// Package poller runs the readiness check loop for readygate.
//
// This package is internal to readygate. It owns the work set for the whole
// run and repeatedly probes what is left of it until everything has passed
// or shutdown is requested.
//
// The main components are:
//
//   - [Scheduler]: the probe-and-retry loop with a bounded worker pool per pass
//   - [Result]: outcome of probing a single [Target] once
//   - [Report]: how a run ended ([StateDraining] or [StateTerminated])
//   - [Prober] and [ShutdownFlag]: the collaborators the loop depends on
//
// Users of the readygate library should not need to interact with this
// package directly. Configuration is done through the main readygate package.
package poller
