package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/readygate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock dependencies (see mock_server.go): HTTP after 6s, TCP after 3s
	go StartLateHealthServer("127.0.0.1:9999", 6*time.Second)
	go StartLateTCPListener(ctx, "127.0.0.1:9998", 3*time.Second)

	// grid API: one declaration, one endpoint per service
	endpoints, err := readygate.NewEndpointGrid(readygate.KindHTTP,
		readygate.WithTemplate("http://127.0.0.1:9999/health?svc={{.svc}}"),
		readygate.WithDimensions(map[string][]string{
			"svc": {"users", "orders"},
		}),
	)
	if err != nil {
		slog.Error("failed to create endpoint grid", "error", err)
		os.Exit(readygate.ExitFailure)
	}

	db, _ := readygate.NewTCPEndpoint("tcp://127.0.0.1:9998")
	endpoints = append(endpoints, db)

	gate, err := readygate.New(
		readygate.WithEndpoints(endpoints...),
		readygate.WithInterval(time.Second),
		readygate.WithTimeout(2*time.Second),
		readygate.WithOutcomeCallback(func(o readygate.Outcome) {
			if o.OK() {
				fmt.Printf("  ✓ %s ready after %d attempt(s)\n", o.Endpoint, o.Iteration)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create gate", "error", err)
		os.Exit(readygate.ExitFailure)
	}

	fmt.Println()
	fmt.Println("  readygate demo: waiting for 3 endpoints (Ctrl+C to give up)")
	fmt.Println()

	result, err := gate.Run(ctx)
	if err != nil {
		slog.Error("gate error", "error", err)
		os.Exit(readygate.ExitFailure)
	}

	if result.Interrupted {
		fmt.Printf("\n  interrupted with %d endpoint(s) still down\n", len(result.Remaining))
	} else {
		fmt.Printf("\n  all endpoints ready after %d iteration(s)\n", result.Iterations)
	}
	os.Exit(result.ExitCode())
}
