package shutdown

import (
	"io"
	"log/slog"
	"sync"
	"testing"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSignal_InitiallyUnset(t *testing.T) {
	s := New()

	if s.Triggered() {
		t.Error("Triggered() = true, want false")
	}
	select {
	case <-s.Done():
		t.Error("Done() closed before Trigger")
	default:
	}
	if s.Reason() != "" {
		t.Errorf("Reason() = %q, want empty", s.Reason())
	}
}

func TestSignal_TriggerIsIdempotent(t *testing.T) {
	s := New()

	s.Trigger("interrupt")
	s.Trigger("terminated")
	s.Trigger("")

	if !s.Triggered() {
		t.Fatal("Triggered() = false, want true")
	}
	if s.Reason() != "interrupt" {
		t.Errorf("Reason() = %q, want first reason %q", s.Reason(), "interrupt")
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after Trigger")
	}
}

func TestSignal_DefaultReason(t *testing.T) {
	s := New()
	s.Trigger("")

	if s.Reason() != "shutdown requested" {
		t.Errorf("Reason() = %q, want %q", s.Reason(), "shutdown requested")
	}
}

// TestSignal_ConcurrentTrigger verifies concurrent triggers and reads do not
// race. Run with: go test -race ./internal/shutdown/...
func TestSignal_ConcurrentTrigger(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Trigger("interrupt")
		}()
		go func() {
			defer wg.Done()
			_ = s.Triggered()
		}()
	}
	wg.Wait()

	if !s.Triggered() {
		t.Error("Triggered() = false after concurrent triggers")
	}
}

func TestNotify_NilSignal(t *testing.T) {
	if _, err := Notify(nil, testLogger()); err == nil {
		t.Fatal("Notify(nil) expected error, got nil")
	}
}
