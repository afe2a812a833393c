// Package main is the entry point for the readygate CLI.
//
// readygate blocks until every configured TCP and HTTP(S) endpoint is
// reachable, then exits 0. It is meant to run as an init container or at the
// start of an entrypoint script.
//
// Usage:
//
//	readygate --tcp postgres:5432 --url http://api:8080/healthz
//	readygate -c readygate.yaml          # targets from a config file
//	readygate validate -c readygate.yaml # validate configuration
//	readygate version                    # show version info
package main

import (
	"io"
	"os"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command tree and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	app := &app{stdout: stdout, stderr: stderr}

	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		// cobra has already printed the error
		return exitFailure
	}
	return app.exitCode
}
