package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/readygate/internal/probe"
	"github.com/jpalmerr/readygate/internal/workset"
)

const defaultMaxConcurrency = 1

// levelTrace is below slog.LevelDebug; per-probe detail is logged at it.
const levelTrace = slog.Level(-8)

// ErrAlreadyRun is returned when [Scheduler.Run] is called a second time.
var ErrAlreadyRun = errors.New("scheduler has already run")

// Kind identifies the protocol of a [Target].
type Kind string

const (
	KindTCP  Kind = "tcp"
	KindHTTP Kind = "http"
)

// Target is a single pending endpoint.
type Target struct {
	// Kind is the protocol used to probe Address.
	Kind Kind

	// Address is a host:port for TCP or a URL for HTTP.
	Address string
}

// Result holds the outcome of probing a single target once.
type Result struct {
	Target

	// Err is nil on success, otherwise usually a [*probe.Error].
	Err error

	// Latency is the time taken by the probe.
	Latency time.Duration

	// CheckedAt is when the probe finished.
	CheckedAt time.Time

	// Iteration is the 1-based pass number that produced this result.
	Iteration int
}

// State is a terminal or running state of the check loop.
type State int

const (
	// StateRunning means probes are still pending.
	StateRunning State = iota

	// StateDraining means every check passed (or none were configured).
	StateDraining

	// StateTerminated means the loop stopped on a shutdown request.
	StateTerminated
)

// String returns a lowercase name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Report describes how a [Scheduler.Run] ended.
type Report struct {
	// State is StateDraining or StateTerminated.
	State State

	// Iterations is the number of probe passes started.
	Iterations int

	// Remaining lists targets that never succeeded, TCP first, in input order.
	Remaining []Target
}

// Prober performs single readiness checks. [*probe.Prober] implements it.
type Prober interface {
	TCP(ctx context.Context, address string, timeout time.Duration) error
	HTTP(ctx context.Context, url string, timeout time.Duration) error
}

// ShutdownFlag is observed between iterations and while sleeping.
// [*shutdown.Signal] implements it.
type ShutdownFlag interface {
	Triggered() bool
	Done() <-chan struct{}
}

// Config holds everything a [Scheduler] needs.
type Config struct {
	// TCP and HTTP are the initial work set, probed in this order.
	TCP  []string
	HTTP []string

	// Interval is the sleep between passes.
	Interval time.Duration

	// Timeout bounds each individual probe.
	Timeout time.Duration

	// MaxConcurrency limits parallel probes within one pass. Values below 1
	// mean sequential probing.
	MaxConcurrency int

	// Prober defaults to [probe.New].
	Prober Prober

	// Shutdown is optional; when nil only context cancellation stops the loop.
	Shutdown ShutdownFlag

	// Logger defaults to [slog.Default].
	Logger *slog.Logger

	// OnResult is called on the loop goroutine for every result, after the
	// result has been applied to the work set.
	OnResult func(Result)
}

// Scheduler runs the probe-and-retry loop over a shrinking work set.
//
// Each iteration first checks for shutdown, then probes every remaining TCP
// target followed by every remaining HTTP target, removes the ones that
// succeeded, and either finishes (work set empty) or sleeps for the interval.
// Probes within a pass may run in parallel up to MaxConcurrency, but results
// are always applied to the work set from the goroutine calling Run.
//
// A Scheduler runs once; use a new one for another run.
type Scheduler struct {
	tracker        *workset.Tracker
	interval       time.Duration
	timeout        time.Duration
	maxConcurrency int
	prober         Prober
	shutdown       ShutdownFlag
	logger         *slog.Logger
	onResult       func(Result)

	ran atomic.Bool
}

// NewScheduler creates a [Scheduler] from cfg, applying defaults for the
// prober, logger, shutdown flag, and concurrency.
func NewScheduler(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prober := cfg.Prober
	if prober == nil {
		prober = probe.New()
	}
	flag := cfg.Shutdown
	if flag == nil {
		flag = neverFlag{}
	}
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = defaultMaxConcurrency
	}

	return &Scheduler{
		tracker:        workset.New(cfg.TCP, cfg.HTTP, logger),
		interval:       cfg.Interval,
		timeout:        cfg.Timeout,
		maxConcurrency: maxConcurrency,
		prober:         prober,
		shutdown:       flag,
		logger:         logger,
		onResult:       cfg.OnResult,
	}
}

// Run executes the loop until the work set is empty or shutdown is requested.
//
// Shutdown is requested by the configured [ShutdownFlag] or by cancelling
// ctx. It is observed at iteration boundaries and interrupts the sleep
// between passes; a probe already in flight is never aborted and finishes
// within its own timeout.
//
// If the work set is empty on entry, Run returns [StateDraining] without
// any network I/O. Returns [ErrAlreadyRun] on a second call.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRun
	}

	if s.tracker.IsEmpty() {
		s.logger.Info("no checks to perform, exiting successfully")
		return s.report(StateDraining, 0), nil
	}

	tcpCount, httpCount := s.tracker.RemainingCounts()
	s.logger.Debug("starting health checks",
		"interval", s.interval.String(),
		"timeout", s.timeout.String(),
		"tcp_endpoints", tcpCount,
		"http_endpoints", httpCount,
		"max_concurrency", s.maxConcurrency,
	)

	// probes are bounded by their own timeout, not by the caller's cancellation
	probeCtx := context.WithoutCancel(ctx)

	iteration := 0
	for {
		if s.interrupted(ctx) {
			s.logger.Debug("graceful shutdown initiated, stopping health checks", "iterations", iteration)
			return s.report(StateTerminated, iteration), nil
		}

		iteration++
		s.logger.Debug("starting health check iteration", "iteration", iteration)

		tcpResults := s.pollTargets(probeCtx, KindTCP, s.tracker.TCP(), iteration)
		s.apply(tcpResults, s.tracker.ApplyTCP)

		httpResults := s.pollTargets(probeCtx, KindHTTP, s.tracker.HTTP(), iteration)
		s.apply(httpResults, s.tracker.ApplyHTTP)

		if s.tracker.IsEmpty() {
			s.logger.Info("all health checks passed successfully", "iterations", iteration)
			return s.report(StateDraining, iteration), nil
		}

		s.logger.Warn("checks remaining, retrying",
			"remaining", s.tracker.Remaining(),
			"retry_in", s.interval.String(),
		)
		s.wait(ctx)
	}
}

// interrupted reports whether shutdown has been requested.
func (s *Scheduler) interrupted(ctx context.Context) bool {
	return s.shutdown.Triggered() || ctx.Err() != nil
}

// wait sleeps for the interval, returning early on shutdown or cancellation.
func (s *Scheduler) wait(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.shutdown.Done():
	case <-ctx.Done():
	}
}

// pollTargets probes addresses with at most maxConcurrency in flight.
// Results are returned in the same order as addresses.
func (s *Scheduler) pollTargets(ctx context.Context, kind Kind, addresses []string, iteration int) []Result {
	results := make([]Result, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			results[i] = s.pollTarget(ctx, Target{Kind: kind, Address: addr}, iteration)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// pollTarget probes a single target and returns the result.
func (s *Scheduler) pollTarget(ctx context.Context, t Target, iteration int) Result {
	s.logger.Log(ctx, levelTrace, "probing target", "kind", string(t.Kind), "target", t.Address)

	start := time.Now()
	err := s.safeProbe(ctx, t)

	return Result{
		Target:    t,
		Err:       err,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
		Iteration: iteration,
	}
}

// safeProbe calls the prober with panic recovery.
// If the prober panics, it logs the full stack trace with a correlation ID
// and reports a failure of the target's kind carrying that ID.
func (s *Scheduler) safeProbe(ctx context.Context, t Target) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			s.logger.Error("probe panic",
				"correlation_id", correlationID,
				"target", t.Address,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			err = &probe.Error{
				Kind:    failureKind(t.Kind),
				Message: fmt.Sprintf("%s: probe panic (correlation_id: %s)", t.Address, correlationID),
			}
		}
	}()

	if t.Kind == KindTCP {
		return s.prober.TCP(ctx, t.Address, s.timeout)
	}
	return s.prober.HTTP(ctx, t.Address, s.timeout)
}

// failureKind is the failure kind reported when a probe of kind k panics.
func failureKind(k Kind) probe.Kind {
	if k == KindTCP {
		return probe.KindConnectionFailed
	}
	return probe.KindRequestFailed
}

// apply hands results to the work set and then to the observer.
func (s *Scheduler) apply(results []Result, applyFn func([]workset.Outcome) error) {
	outcomes := make([]workset.Outcome, len(results))
	for i, r := range results {
		outcomes[i] = workset.Outcome{Target: r.Address, Err: r.Err}
	}

	if err := applyFn(outcomes); err != nil {
		// results are built from a snapshot of the tracker, so this is a bug
		s.logger.Error("failed to apply probe results", "error", err.Error())
		return
	}

	if s.onResult == nil {
		return
	}
	for _, r := range results {
		s.onResult(r)
	}
}

// report builds a Report for the given terminal state.
func (s *Scheduler) report(state State, iterations int) Report {
	tcp, http := s.tracker.TCP(), s.tracker.HTTP()

	remaining := make([]Target, 0, len(tcp)+len(http))
	for _, addr := range tcp {
		remaining = append(remaining, Target{Kind: KindTCP, Address: addr})
	}
	for _, url := range http {
		remaining = append(remaining, Target{Kind: KindHTTP, Address: url})
	}

	return Report{State: state, Iterations: iterations, Remaining: remaining}
}

// neverFlag is the shutdown flag used when none is configured.
type neverFlag struct{}

func (neverFlag) Triggered() bool { return false }

func (neverFlag) Done() <-chan struct{} { return nil }
