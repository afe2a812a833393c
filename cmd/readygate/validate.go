package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/readygate/config"
)

// newValidateCmd validates configuration without checking any endpoint.
func newValidateCmd(a *app, flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without checking endpoints",
		Long: `Validate readygate configuration without checking any endpoint.

Flags, READYGATE_* environment variables and the config file are resolved
exactly as they would be for a run. Targets that can never pass as written
(a TCP address without a port, a URL without a scheme) are reported as
warnings; they do not make the configuration invalid.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  readygate validate -c readygate.yaml
  readygate validate --tcp db:5432 --interval 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return a.runValidate(cmd, flags)
		},
	}
}

func (a *app) runValidate(cmd *cobra.Command, flags *flagValues) error {
	cfg, _, err := loadConfig(cmd.Flags(), flags)
	if err != nil {
		return err
	}

	endpoints, err := config.BuildEndpoints(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	generated := len(endpoints) - len(cfg.TCP) - len(cfg.URLs)

	fmt.Fprintf(a.stdout, "Config is valid!\n")
	fmt.Fprintf(a.stdout, "  Interval:    %s\n", cfg.Interval.Duration())
	fmt.Fprintf(a.stdout, "  Timeout:     %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(a.stdout, "  Concurrency: %d\n", cfg.Concurrency)
	fmt.Fprintf(a.stdout, "  Endpoints:   %d tcp + %d http + %d from templates = %d total\n",
		len(cfg.TCP), len(cfg.URLs), generated, len(endpoints))

	for _, w := range cfg.Lint() {
		fmt.Fprintf(a.stdout, "  Warning: %s\n", w)
	}

	a.exitCode = 0
	return nil
}
