package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/readygate"
	"github.com/jpalmerr/readygate/config"
	"github.com/jpalmerr/readygate/internal/shutdown"
)

const exitFailure = readygate.ExitFailure

// app carries the output streams and the exit code of the command that ran.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

// newRootCmd builds the readygate command tree.
func newRootCmd(a *app) *cobra.Command {
	flags := &flagValues{}

	cmd := &cobra.Command{
		Use:   "readygate",
		Short: "Wait until TCP and HTTP endpoints are reachable",
		Long: `readygate blocks until every configured endpoint is reachable, then exits.

TCP endpoints pass once a connection can be opened. HTTP endpoints pass once
a GET request returns a 2xx status. Endpoints that pass are not checked
again; the rest are retried every --interval seconds until they pass or the
process receives SIGINT or SIGTERM.

Exit codes:
  0   - every endpoint passed (or none were configured)
  1   - invalid configuration
  130 - interrupted before every endpoint passed

Every flag can also be set with a READYGATE_* environment variable, for
example READYGATE_INTERVAL=2 or READYGATE_TCP=db:5432,cache:6379.
Precedence: flag > environment > config file > default.

Example:
  readygate --tcp postgres:5432 --tcp redis:6379 --url http://api:8080/healthz
  readygate -c readygate.yaml --level debug`,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return a.runGate(cmd, flags)
		},
	}

	flags.register(cmd.PersistentFlags())

	cmd.AddCommand(newValidateCmd(a, flags))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// runGate loads configuration, installs the signal handler and runs the gate.
func (a *app) runGate(cmd *cobra.Command, flags *flagValues) error {
	cfg, notes, err := loadConfig(cmd.Flags(), flags)
	if err != nil {
		return err
	}

	logger, err := newLogger(a.stderr, cfg.Level, cfg.LogFormat)
	if err != nil {
		return err
	}
	for _, n := range notes {
		logger.Debug(n)
	}

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		logger.Error("failed to build endpoints", "error", err.Error())
		return fmt.Errorf("failed to build endpoints: %w", err)
	}

	sig := shutdown.New()
	stop, err := shutdown.Notify(sig, logger)
	if err != nil {
		logger.Error("failed to install signal handler", "error", err.Error())
		return fmt.Errorf("failed to install signal handler: %w", err)
	}
	defer stop()

	gate, err := readygate.New(append(opts, readygate.WithShutdownSignal(sig))...)
	if err != nil {
		logger.Error("failed to create gate", "error", err.Error())
		return fmt.Errorf("failed to create gate: %w", err)
	}

	result, err := gate.Run(cmd.Context())
	if err != nil {
		logger.Error("readiness gate failed", "error", err.Error())
		return err
	}

	if result.Interrupted {
		reason := sig.Reason()
		if reason == "" {
			reason = "context cancelled"
		}
		logger.Info("exiting after interruption", "reason", reason, "exit_code", result.ExitCode())
	}

	a.exitCode = result.ExitCode()
	return nil
}

// newVersionCmd prints version information.
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this readygate binary.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "readygate %s\n", version)
			fmt.Fprintf(a.stdout, "  commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "  built:  %s\n", date)
		},
	}
}
