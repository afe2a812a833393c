// Package readygate blocks until a set of TCP and HTTP(S) endpoints is
// reachable, then gets out of the way.
//
// readygate is meant to gate the start of a workload on its dependencies,
// for example as an init container or in a container entrypoint. It checks
// every endpoint, drops the ones that pass, waits, and checks what is left
// until nothing is left or it is interrupted. It is usable both as the
// readygate command and as a library.
//
// # Quick Start
//
// Create a gate and run it with graceful shutdown:
//
//	gate, _ := readygate.New(
//	    readygate.WithTCP("postgres:5432", "redis:6379"),
//	    readygate.WithURLs("http://api:8080/healthz"),
//	)
//
//	// Stop waiting on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	result, _ := gate.Run(ctx) // blocks until ready or interrupted
//	os.Exit(result.ExitCode())
//
// # Checks
//
// A TCP endpoint passes when a connection to its first resolved address can
// be opened within the timeout; no data is exchanged. An HTTP endpoint passes
// when a GET request returns a 2xx status within the timeout; redirects are
// followed and the body is ignored. Every failure is reported as a
// [*CheckError] with a [FailureKind] and is retried on the next iteration.
// There is no retry limit.
//
// # Configuration
//
// Gate uses the functional options pattern for configuration:
//
//	gate, err := readygate.New(
//	    readygate.WithEndpoints(endpoints...),
//	    readygate.WithInterval(2 * time.Second),
//	    readygate.WithTimeout(5 * time.Second),
//	    readygate.WithMaxConcurrency(4),
//	    readygate.WithOutcomeCallback(func(o readygate.Outcome) { ... }),
//	)
//
// Many similar endpoints can be generated with [NewEndpointGrid].
//
// # Architecture
//
// readygate consists of several internal packages (under internal/):
//
//   - internal/probe: single TCP and HTTP checks with typed failures
//   - internal/workset: the shrinking set of endpoints still to pass
//   - internal/shutdown: the one-shot flag set from OS signal handlers
//   - internal/poller: the check loop with a bounded worker pool per pass
//
// The internal packages are not part of the public API and may change
// without notice.
package readygate
