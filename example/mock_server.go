package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StartLateHealthServer serves /health on addr, answering 503 until delay has
// passed and 200 afterwards. The handler simulates a service that is still
// warming up when the gate starts.
// Call this in a goroutine before running the gate.
func StartLateHealthServer(addr string, delay time.Duration) {
	readyAt := time.Now().Add(delay)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if time.Now().Before(readyAt) {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

// StartLateTCPListener starts accepting connections on addr only after delay,
// so TCP checks are refused until then.
func StartLateTCPListener(ctx context.Context, addr string, delay time.Duration) {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		slog.Error("mock listener error", "error", err)
		return
	}
	slog.Info("mock listener up", "addr", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}
}
