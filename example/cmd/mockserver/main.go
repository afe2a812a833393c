// Standalone mock dependency for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver --delay 10
//
// Then in another terminal:
//
//	go run ./cmd/readygate -c example/config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	httpAddr := pflag.String("http", "127.0.0.1:9999", "address for the /health endpoint")
	tcpAddr := pflag.String("tcp", "127.0.0.1:9998", "address for the late TCP listener")
	delay := pflag.Int("delay", 10, "seconds before the mock reports ready")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readyAt := time.Now().Add(time.Duration(*delay) * time.Second)

	fmt.Printf("Mock dependency: /health on %s, TCP on %s\n", *httpAddr, *tcpAddr)
	fmt.Printf("Both become ready in %ds\n", *delay)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if time.Now().Before(readyAt) {
			slog.Info("health check while warming up", "svc", r.URL.Query().Get("svc"))
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{Addr: *httpAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	go serveTCPWhenReady(ctx, *tcpAddr, readyAt)

	<-ctx.Done()
	_ = srv.Close()
}

// serveTCPWhenReady opens the TCP listener at readyAt and accepts until ctx ends.
func serveTCPWhenReady(ctx context.Context, addr string, readyAt time.Time) {
	select {
	case <-time.After(time.Until(readyAt)):
	case <-ctx.Done():
		return
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		slog.Error("listener error", "error", err)
		return
	}
	slog.Info("tcp listener up", "addr", addr)

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
