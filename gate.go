package readygate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/readygate/internal/poller"
)

const (
	defaultInterval       = 5 * time.Second
	defaultTimeout        = 10 * time.Second
	defaultMaxConcurrency = 1
)

// Process exit codes used by the readygate command.
const (
	// ExitPassed: every check passed, or there was nothing to check.
	ExitPassed = 0

	// ExitFailure: configuration was invalid or the run could not start.
	ExitFailure = 1

	// ExitInterrupted: the run was stopped before every check passed
	// (128 + SIGINT, the shell convention).
	ExitInterrupted = 130
)

// ShutdownSignal is a one-shot flag that stops a run when set.
//
// Triggered must never block, and Done must return a channel that is closed
// once the flag is set (or nil if it never will be).
type ShutdownSignal interface {
	Triggered() bool
	Done() <-chan struct{}
}

// Gate blocks until a set of endpoints is reachable.
//
// Gate checks every endpoint once per iteration, drops the ones that pass,
// and sleeps for the configured interval before checking what is left. It
// finishes when nothing is left or when it is interrupted. It is created
// using [New] with functional options and run with [Gate.Run].
//
// The typical lifecycle is:
//
//	gate, err := readygate.New(
//	    readygate.WithTCP("postgres:5432"),
//	    readygate.WithURLs("http://api:8080/healthz"),
//	)
//	if err != nil {
//	    slog.Error("failed to create gate", "error", err)
//	    os.Exit(readygate.ExitFailure)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	result, err := gate.Run(ctx) // blocks until ready or cancelled
//	os.Exit(result.ExitCode())
type Gate struct {
	endpoints        []Endpoint
	interval         time.Duration
	timeout          time.Duration
	maxConcurrency   int
	logger           *slog.Logger
	shutdown         ShutdownSignal
	outcomeCallbacks []func(Outcome)

	// prober overrides the network prober; nil uses the real one.
	prober poller.Prober
}

// New creates a new [Gate] with the given options.
//
// A Gate with no endpoints is valid: its [Gate.Run] returns immediately with
// a passing result. Defaults:
//   - Interval: 5 seconds
//   - Timeout: 10 seconds
//   - Max concurrency: 1
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Gate, error) {
	cfg := &gateConfig{
		endpoints:      []Endpoint{},
		interval:       defaultInterval,
		timeout:        defaultTimeout,
		maxConcurrency: defaultMaxConcurrency,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoints := cfg.endpoints
	if cfg.dedupe {
		endpoints = dedupe(endpoints)
		if dropped := len(cfg.endpoints) - len(endpoints); dropped > 0 {
			logger.Debug("dropped duplicate endpoints", "dropped", dropped)
		}
	}

	return &Gate{
		endpoints:        endpoints,
		interval:         cfg.interval,
		timeout:          cfg.timeout,
		maxConcurrency:   cfg.maxConcurrency,
		logger:           logger,
		shutdown:         cfg.shutdown,
		outcomeCallbacks: cfg.outcomeCallbacks,
	}, nil
}

// Result describes how a [Gate.Run] ended.
type Result struct {
	// Interrupted is true when the run stopped before every check passed.
	Interrupted bool

	// Iterations is the number of passes started.
	Iterations int

	// Remaining lists the endpoints that never passed, TCP first. It is
	// empty unless Interrupted is true.
	Remaining []Endpoint
}

// Passed reports whether every endpoint passed.
func (r Result) Passed() bool {
	return !r.Interrupted
}

// ExitCode returns [ExitPassed] or [ExitInterrupted].
func (r Result) ExitCode() int {
	if r.Interrupted {
		return ExitInterrupted
	}
	return ExitPassed
}

// Run checks endpoints until all have passed or the run is interrupted.
//
// Run is a blocking call. The run is interrupted by cancelling ctx or by
// triggering the signal set with [WithShutdownSignal]. Interruption is
// noticed before each iteration and during the sleep between iterations;
// a check already in progress finishes (bounded by the timeout) first.
//
// Returns an error only if the run could not start.
func (g *Gate) Run(ctx context.Context) (Result, error) {
	tcp, http := splitByKind(g.endpoints)

	g.logger.Info("readiness gate starting",
		"tcp_endpoints", len(tcp),
		"http_endpoints", len(http),
		"interval", g.interval.String(),
		"timeout", g.timeout.String(),
	)

	cfg := poller.Config{
		TCP:            tcp,
		HTTP:           http,
		Interval:       g.interval,
		Timeout:        g.timeout,
		MaxConcurrency: g.maxConcurrency,
		Prober:         g.prober,
		Logger:         g.logger,
	}
	if g.shutdown != nil {
		cfg.Shutdown = g.shutdown
	}
	if len(g.outcomeCallbacks) > 0 {
		cfg.OnResult = g.dispatch
	}

	report, err := poller.NewScheduler(cfg).Run(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to run checks: %w", err)
	}

	result := Result{
		Interrupted: report.State == poller.StateTerminated,
		Iterations:  report.Iterations,
		Remaining:   toEndpoints(report.Remaining),
	}
	if result.Interrupted {
		g.logger.Warn("readiness gate interrupted before all checks passed",
			"iterations", result.Iterations,
			"remaining", len(result.Remaining),
		)
	}
	return result, nil
}

// Endpoints returns a copy of the configured endpoints.
func (g *Gate) Endpoints() []Endpoint {
	cp := make([]Endpoint, len(g.endpoints))
	copy(cp, g.endpoints)
	return cp
}

// Interval returns the configured delay between iterations.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Timeout returns the configured per-check timeout.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// dispatch converts a poller result and hands it to every callback.
func (g *Gate) dispatch(r poller.Result) {
	outcome := Outcome{
		Endpoint:  Endpoint{kind: Kind(r.Kind), target: r.Address},
		Latency:   r.Latency,
		CheckedAt: r.CheckedAt,
		Iteration: r.Iteration,
	}
	if r.Err != nil {
		outcome.Err = newCheckError(r.Err)
	}

	for _, cb := range g.outcomeCallbacks {
		invokeCallbackSafe(cb, outcome, g.logger)
	}
}

// toEndpoints converts poller targets back to endpoints.
func toEndpoints(targets []poller.Target) []Endpoint {
	if len(targets) == 0 {
		return nil
	}
	result := make([]Endpoint, len(targets))
	for i, t := range targets {
		result[i] = Endpoint{kind: Kind(t.Kind), target: t.Address}
	}
	return result
}

// invokeCallbackSafe calls an outcome callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Outcome), outcome Outcome, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("outcome callback panicked",
				"panic", r,
				"endpoint", outcome.Endpoint.String(),
			)
		}
	}()
	cb(outcome)
}
