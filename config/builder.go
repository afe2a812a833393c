package config

import (
	"fmt"
	"log/slog"

	"github.com/jpalmerr/readygate"
)

// BuildEndpoints converts configuration targets into SDK Endpoint values.
//
// TCP targets come first, then URLs, then the expansion of each template in
// order. Template dimensions are expanded via cartesian product.
func BuildEndpoints(cfg *Config) ([]readygate.Endpoint, error) {
	endpoints := make([]readygate.Endpoint, 0, len(cfg.TCP)+len(cfg.URLs))

	for i, addr := range cfg.TCP {
		ep, err := readygate.NewTCPEndpoint(addr)
		if err != nil {
			return nil, fmt.Errorf("tcp[%d]: %w", i, err)
		}
		endpoints = append(endpoints, ep)
	}

	for i, u := range cfg.URLs {
		ep, err := readygate.NewHTTPEndpoint(u)
		if err != nil {
			return nil, fmt.Errorf("urls[%d]: %w", i, err)
		}
		endpoints = append(endpoints, ep)
	}

	for i, tc := range cfg.Templates {
		generated, err := buildTemplateEndpoints(tc)
		if err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		endpoints = append(endpoints, generated...)
	}

	return endpoints, nil
}

// buildTemplateEndpoints expands a TemplateConfig via cartesian product.
func buildTemplateEndpoints(tc TemplateConfig) ([]readygate.Endpoint, error) {
	kind, err := readygate.ParseKind(tc.Kind)
	if err != nil {
		return nil, err
	}

	return readygate.NewEndpointGrid(kind,
		readygate.WithTemplate(tc.Template),
		readygate.WithDimensions(tc.Dimensions),
	)
}

// BuildOptions converts a validated configuration into [readygate.Option]
// values for [readygate.New].
//
// The logger is passed through unchanged; building it from Level and
// LogFormat is left to the caller.
func BuildOptions(cfg *Config, logger *slog.Logger) ([]readygate.Option, error) {
	endpoints, err := BuildEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	opts := []readygate.Option{
		readygate.WithEndpoints(endpoints...),
		readygate.WithInterval(cfg.Interval.Duration()),
		readygate.WithTimeout(cfg.Timeout.Duration()),
		readygate.WithMaxConcurrency(cfg.Concurrency),
		readygate.WithDedupe(cfg.Dedupe),
	}
	if logger != nil {
		opts = append(opts, readygate.WithLogger(logger))
	}

	return opts, nil
}
