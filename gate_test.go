package readygate

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/readygate/internal/probe"
	"github.com/jpalmerr/readygate/internal/shutdown"
)

// stubProber passes targets listed in ready and fails everything else.
type stubProber struct {
	mu    sync.Mutex
	ready map[string]bool
	calls int
}

func (p *stubProber) check(target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.ready[target] {
		return nil
	}
	return &probe.Error{Kind: probe.KindConnectionFailed, Message: target + ": refused"}
}

func (p *stubProber) TCP(_ context.Context, address string, _ time.Duration) error {
	return p.check(address)
}

func (p *stubProber) HTTP(_ context.Context, url string, _ time.Duration) error {
	return p.check(url)
}

// runGate runs g and fails the test if it does not return in time.
func runGate(t *testing.T, g *Gate, ctx context.Context) Result {
	t.Helper()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := g.Run(ctx)
		done <- outcome{r, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("Run() error = %v", o.err)
		}
		return o.result
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return")
		return Result{}
	}
}

func TestRun_NothingToCheck(t *testing.T) {
	g, err := New(WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := runGate(t, g, context.Background())

	if !result.Passed() {
		t.Error("Passed() = false, want true")
	}
	if result.ExitCode() != ExitPassed {
		t.Errorf("ExitCode() = %d, want %d", result.ExitCode(), ExitPassed)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", result.Iterations)
	}
}

func TestRun_AllReachable(t *testing.T) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	g, err := New(
		WithTCP(ln.Addr().String()),
		WithURLs(ts.URL),
		WithTimeout(2*time.Second),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result := runGate(t, g, context.Background())

	if result.ExitCode() != ExitPassed {
		t.Errorf("ExitCode() = %d, want %d", result.ExitCode(), ExitPassed)
	}
	if result.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", result.Iterations)
	}
	if len(result.Remaining) != 0 {
		t.Errorf("Remaining = %v, want empty", result.Remaining)
	}
}

func TestRun_InterruptedByContext(t *testing.T) {
	prober := &stubProber{ready: map[string]bool{"db:5432": true}}
	g, err := New(
		WithTCP("db:5432", "cache:6379"),
		WithURLs("http://api/healthz"),
		WithInterval(time.Hour),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.prober = prober

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	result := runGate(t, g, ctx)

	if !result.Interrupted {
		t.Fatal("Interrupted = false, want true")
	}
	if result.ExitCode() != ExitInterrupted {
		t.Errorf("ExitCode() = %d, want %d", result.ExitCode(), ExitInterrupted)
	}

	want := []Endpoint{mustTCP(t, "cache:6379"), mustHTTP(t, "http://api/healthz")}
	if len(result.Remaining) != len(want) {
		t.Fatalf("Remaining = %v, want %v", result.Remaining, want)
	}
	for i := range want {
		if result.Remaining[i] != want[i] {
			t.Errorf("Remaining[%d] = %v, want %v", i, result.Remaining[i], want[i])
		}
	}
}

func TestRun_InterruptedByShutdownSignal(t *testing.T) {
	sig := shutdown.New()
	g, err := New(
		WithTCP("db:5432"),
		WithInterval(time.Hour),
		WithShutdownSignal(sig),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.prober = &stubProber{}

	go func() {
		time.Sleep(50 * time.Millisecond)
		sig.Trigger("test")
	}()

	result := runGate(t, g, context.Background())

	if result.ExitCode() != ExitInterrupted {
		t.Errorf("ExitCode() = %d, want %d", result.ExitCode(), ExitInterrupted)
	}
}

func TestRun_AlreadyCancelledContext(t *testing.T) {
	prober := &stubProber{}
	g, err := New(WithTCP("db:5432"), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.prober = prober

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := runGate(t, g, ctx)

	if !result.Interrupted {
		t.Error("Interrupted = false, want true")
	}
	if prober.calls != 0 {
		t.Errorf("prober called %d times, want 0", prober.calls)
	}
}

// TestRun_LateStartingServer verifies that an endpoint that is down at first
// is retried until it comes up.
func TestRun_LateStartingServer(t *testing.T) {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	g, err := New(
		WithTCP(addr),
		WithInterval(50*time.Millisecond),
		WithTimeout(time.Second),
		WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan net.Listener, 1)
	go func() {
		time.Sleep(150 * time.Millisecond)
		late, err := lc.Listen(context.Background(), "tcp", addr)
		if err != nil {
			started <- nil
			cancel()
			return
		}
		started <- late
	}()

	result := runGate(t, g, ctx)

	if late := <-started; late != nil {
		defer late.Close()
	} else {
		t.Skip("could not re-bind the reserved port")
	}

	if result.ExitCode() != ExitPassed {
		t.Errorf("ExitCode() = %d, want %d", result.ExitCode(), ExitPassed)
	}
	if result.Iterations < 2 {
		t.Errorf("Iterations = %d, want at least 2", result.Iterations)
	}
}

func TestRun_CanRunAgain(t *testing.T) {
	g, err := New(WithTCP("db:5432"), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.prober = &stubProber{ready: map[string]bool{"db:5432": true}}

	for i := 0; i < 2; i++ {
		if result := runGate(t, g, context.Background()); !result.Passed() {
			t.Errorf("run %d: Passed() = false, want true", i+1)
		}
	}
}

func TestResult_ExitCode(t *testing.T) {
	if got := (Result{}).ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0", got)
	}
	if got := (Result{Interrupted: true}).ExitCode(); got != 130 {
		t.Errorf("ExitCode() = %d, want 130", got)
	}
}
