// Package shutdown carries an OS interrupt to the readiness loop.
//
// A [Signal] is a one-shot flag: it starts unset and, once triggered, stays
// triggered. It is the only state shared between the OS signal handler and
// the check loop, so every method is safe for concurrent use.
package shutdown

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Signal is a process-wide shutdown flag observed cooperatively by the loop.
type Signal struct {
	triggered atomic.Bool
	reason    atomic.Value
	done      chan struct{}
	closeOnce sync.Once
}

// New creates an untriggered [Signal].
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Trigger sets the flag. Only the first call records its reason; later calls
// are no-ops.
func (s *Signal) Trigger(reason string) {
	s.closeOnce.Do(func() {
		if reason == "" {
			reason = "shutdown requested"
		}
		s.reason.Store(reason)
		s.triggered.Store(true)
		close(s.done)
	})
}

// Triggered reports whether the flag has been set. It never blocks.
func (s *Signal) Triggered() bool {
	return s.triggered.Load()
}

// Done returns a channel that is closed when the flag is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Reason returns the reason passed to the first [Signal.Trigger], or "".
func (s *Signal) Reason() string {
	r, _ := s.reason.Load().(string)
	return r
}

// Notify installs an OS signal handler that triggers sig.
//
// If no signals are given, SIGINT and SIGTERM are used. The handler logs a
// single warning per delivery and triggers sig; repeated deliveries are
// harmless. The returned stop function uninstalls the handler and waits for
// its goroutine to exit.
//
// Returns an error if sig is nil.
func Notify(sig *Signal, logger *slog.Logger, signals ...os.Signal) (stop func(), err error) {
	if sig == nil {
		return nil, errors.New("shutdown signal cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case s := <-ch:
				logger.Warn("received termination signal, initiating graceful shutdown", "signal", s.String())
				sig.Trigger(s.String())
			case <-quit:
				return
			}
		}
	}()

	var stopOnce sync.Once
	stop = func() {
		stopOnce.Do(func() {
			signal.Stop(ch)
			close(quit)
			wg.Wait()
		})
	}
	return stop, nil
}
