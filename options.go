package readygate

import (
	"errors"
	"log/slog"
	"time"
)

// gateConfig holds mutable state during Gate construction.
type gateConfig struct {
	endpoints        []Endpoint
	interval         time.Duration
	timeout          time.Duration
	maxConcurrency   int
	dedupe           bool
	logger           *slog.Logger
	shutdown         ShutdownSignal
	outcomeCallbacks []func(Outcome)
}

// Option is a function that configures a [Gate] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*gateConfig) error

// WithEndpoint adds a single [Endpoint] to the work set.
//
// Can be called multiple times. Endpoints keep the order they were added in.
func WithEndpoint(e Endpoint) Option {
	return func(cfg *gateConfig) error {
		if e.kind == "" {
			return errors.New("endpoint must be created with NewTCPEndpoint, NewHTTPEndpoint or NewEndpoint")
		}
		cfg.endpoints = append(cfg.endpoints, e)
		return nil
	}
}

// WithEndpoints adds multiple [Endpoint] values to the work set.
//
// Equivalent to calling [WithEndpoint] for each one.
//
// Example:
//
//	shards, _ := readygate.NewEndpointGrid(readygate.KindTCP,
//	    readygate.WithTemplate("redis-{{.shard}}:6379"),
//	    readygate.WithDimensions(map[string][]string{"shard": {"0", "1", "2"}}),
//	)
//	gate, err := readygate.New(readygate.WithEndpoints(shards...))
func WithEndpoints(endpoints ...Endpoint) Option {
	return func(cfg *gateConfig) error {
		for _, e := range endpoints {
			if err := WithEndpoint(e)(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithTCP adds TCP endpoints from host:port addresses.
//
// Returns an error if any address is empty.
func WithTCP(addresses ...string) Option {
	return func(cfg *gateConfig) error {
		for _, addr := range addresses {
			ep, err := NewTCPEndpoint(addr)
			if err != nil {
				return err
			}
			cfg.endpoints = append(cfg.endpoints, ep)
		}
		return nil
	}
}

// WithURLs adds HTTP endpoints from URLs.
//
// Returns an error if any URL is empty.
func WithURLs(urls ...string) Option {
	return func(cfg *gateConfig) error {
		for _, u := range urls {
			ep, err := NewHTTPEndpoint(u)
			if err != nil {
				return err
			}
			cfg.endpoints = append(cfg.endpoints, ep)
		}
		return nil
	}
}

// WithInterval sets the delay between iterations.
//
// The delay starts once every remaining endpoint has been checked, so the
// time between two checks of the same endpoint is the interval plus the
// duration of the pass. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *gateConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithTimeout bounds every individual check. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *gateConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithMaxConcurrency sets how many checks may run at once within a pass.
//
// Defaults to 1, which checks endpoints strictly one after another. Outcomes
// are delivered in endpoint order whatever the concurrency.
//
// Returns an error if the value is zero or negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *gateConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithDedupe drops repeated endpoints, keeping the first occurrence.
//
// Without it, a target listed twice is checked twice per iteration and each
// entry leaves the work set independently.
func WithDedupe(enabled bool) Option {
	return func(cfg *gateConfig) error {
		cfg.dedupe = enabled
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Gate.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *gateConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithShutdownSignal sets a flag that stops the run when triggered.
//
// The flag is checked before each iteration and interrupts the sleep between
// iterations. Cancelling the context passed to [Gate.Run] has the same effect,
// so this option is only needed when shutdown is driven by something other
// than a context.
//
// Returns an error if the signal is nil.
func WithShutdownSignal(s ShutdownSignal) Option {
	return func(cfg *gateConfig) error {
		if s == nil {
			return errors.New("shutdown signal cannot be nil")
		}
		cfg.shutdown = s
		return nil
	}
}

// WithOutcomeCallback registers a function to be called for every check.
//
// Multiple callbacks may be registered; they execute in registration order.
// Callbacks run synchronously on the goroutine calling [Gate.Run] and delay
// the next check while they run. Panics within callbacks are recovered and
// logged.
//
// Example:
//
//	gate, err := readygate.New(
//	    readygate.WithURLs("http://api:8080/healthz"),
//	    readygate.WithOutcomeCallback(func(o readygate.Outcome) {
//	        if !o.OK() {
//	            log.Printf("%s not ready: %v", o.Endpoint, o.Err)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithOutcomeCallback(cb func(Outcome)) Option {
	return func(cfg *gateConfig) error {
		if cb == nil {
			return nil
		}
		cfg.outcomeCallbacks = append(cfg.outcomeCallbacks, cb)
		return nil
	}
}
