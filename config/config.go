// Package config provides configuration loading and validation for readygate.
//
// A configuration can come from a YAML file, from command-line flags, or
// both; the readygate command overlays flags and READYGATE_* environment
// variables on top of the file. Whatever the source, a [Config] must pass
// [Config.Validate] before it is used.
//
// Example configuration:
//
//	level: info
//	interval: 5s
//	timeout: 10
//
//	tcp:
//	  - postgres:5432
//	  - tcp://${REDIS_HOST:-redis}:6379
//	urls:
//	  - http://api:8080/healthz
//
//	templates:
//	  - kind: http
//	    template: "http://{{.svc}}.{{.ns}}.svc:8080/ready"
//	    dimensions:
//	      svc: [users, orders]
//	      ns: [prod]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/readygate"
)

// Bounds and defaults for run settings.
const (
	MinInterval     = 1 * time.Second
	MaxInterval     = 300 * time.Second
	DefaultInterval = 5 * time.Second

	MinTimeout     = 1 * time.Second
	MaxTimeout     = 60 * time.Second
	DefaultTimeout = 10 * time.Second

	MinConcurrency     = 1
	MaxConcurrency     = 64
	DefaultConcurrency = 1

	DefaultLevel     = "info"
	DefaultLogFormat = "json"
)

// LevelTrace is more verbose than [slog.LevelDebug].
const LevelTrace = slog.Level(-8)

// Config is the root configuration structure for readygate.
//
// It maps directly to the YAML configuration file structure.
// Use [Default], [Load] or [Parse] to create one.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn or error.
	Level string `yaml:"level"`

	// LogFormat is json or text.
	LogFormat string `yaml:"log_format"`

	// Interval is the delay between iterations. Accepts duration strings
	// like "5s" or a plain number of seconds. Must be within 1s..300s.
	Interval Duration `yaml:"interval"`

	// Timeout bounds each check. Same format as Interval, within 1s..60s.
	Timeout Duration `yaml:"timeout"`

	// Concurrency is how many checks may run at once (1..64).
	Concurrency int `yaml:"concurrency"`

	// Dedupe drops repeated targets, keeping the first occurrence.
	Dedupe bool `yaml:"dedupe"`

	// TCP lists host:port targets, optionally prefixed with tcp://.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	TCP []string `yaml:"tcp"`

	// URLs lists http:// or https:// targets. Supports substitution like TCP.
	URLs []string `yaml:"urls"`

	// Templates generate targets via cartesian product.
	Templates []TemplateConfig `yaml:"templates"`
}

// TemplateConfig defines a set of targets generated from a template.
//
// For example, with dimensions {svc: [users, orders], ns: [prod, staging]},
// the template expands to 4 targets.
type TemplateConfig struct {
	// Kind is tcp or http.
	Kind string `yaml:"kind"`

	// Template is a Go template for generating targets.
	// Dimension keys are available as template variables: {{.svc}}, {{.ns}}
	// Supports environment variable substitution in the template.
	Template string `yaml:"template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`
}

// Duration wraps time.Duration for YAML unmarshalling.
//
// It accepts a duration string ("5s", "1m") or an integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a string or number of seconds (line %d)", node.Line)
	}

	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ParseDuration parses a duration string or a plain number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	if isDigits(s) {
		return time.ParseDuration(s + "s")
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseLevel converts a level name to a [slog.Level].
//
// Accepted names are trace, debug, info, warn (or warning) and error, in any
// case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (expected trace, debug, info, warn, or error)", s)
	}
}

// Default returns a Config with every setting at its default and no targets.
func Default() *Config {
	return &Config{
		Level:       DefaultLevel,
		LogFormat:   DefaultLogFormat,
		Interval:    Duration(DefaultInterval),
		Timeout:     Duration(DefaultTimeout),
		Concurrency: DefaultConcurrency,
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads and decodes a YAML configuration file without validating it.
// Callers that overlay other sources call [Config.Validate] afterwards.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(data)
}

// Parse parses and validates YAML configuration data.
//
// Unset settings take their defaults. Environment variables are expanded in
// tcp, urls and template values.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies data over the defaults and expands environment variables.
func decode(data []byte) (*Config, error) {
	cfg := Default()

	// unknown keys are rejected so typos do not silently drop targets
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expandEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv expands environment variables in every target and template.
func (c *Config) expandEnv() error {
	for i, addr := range c.TCP {
		expanded, err := expandEnvVars(addr)
		if err != nil {
			return fmt.Errorf("tcp[%d]: %w", i, err)
		}
		c.TCP[i] = expanded
	}

	for i, u := range c.URLs {
		expanded, err := expandEnvVars(u)
		if err != nil {
			return fmt.Errorf("urls[%d]: %w", i, err)
		}
		c.URLs[i] = expanded
	}

	for i := range c.Templates {
		expanded, err := expandEnvVars(c.Templates[i].Template)
		if err != nil {
			return fmt.Errorf("templates[%d]: template: %w", i, err)
		}
		c.Templates[i].Template = expanded
	}

	return nil
}

// Validate reports the first problem that would stop a run from starting.
//
// Malformed targets are not an error here: they fail on every iteration
// like unreachable ones. Use [Config.Lint] to find them.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}

	if d := c.Interval.Duration(); d < MinInterval || d > MaxInterval {
		return fmt.Errorf("interval must be between %s and %s, got %s", MinInterval, MaxInterval, d)
	}
	if d := c.Timeout.Duration(); d < MinTimeout || d > MaxTimeout {
		return fmt.Errorf("timeout must be between %s and %s, got %s", MinTimeout, MaxTimeout, d)
	}
	if c.Concurrency < MinConcurrency || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between %d and %d, got %d", MinConcurrency, MaxConcurrency, c.Concurrency)
	}

	for i, addr := range c.TCP {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("tcp[%d]: address cannot be empty", i)
		}
	}
	for i, u := range c.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("urls[%d]: url cannot be empty", i)
		}
	}

	for i, tc := range c.Templates {
		if err := tc.validate(); err != nil {
			return fmt.Errorf("templates[%d]: %w", i, err)
		}
	}

	return nil
}

func (tc TemplateConfig) validate() error {
	if _, err := readygate.ParseKind(tc.Kind); err != nil {
		return err
	}

	if tc.Template == "" {
		return errors.New("template is required")
	}
	// fail fast before the SDK tries to use an invalid template
	if _, err := template.New("").Parse(tc.Template); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	if len(tc.Dimensions) == 0 {
		return errors.New("at least one dimension is required")
	}
	for dimName, dimValues := range tc.Dimensions {
		if len(dimValues) == 0 {
			return fmt.Errorf("dimension %q has no values", dimName)
		}
		seen := make(map[string]struct{}, len(dimValues))
		for _, v := range dimValues {
			if v == "" {
				return fmt.Errorf("dimension %q has an empty value", dimName)
			}
			if _, exists := seen[v]; exists {
				return fmt.Errorf("dimension %q has duplicate value %q", dimName, v)
			}
			seen[v] = struct{}{}
		}
	}

	return nil
}

// Lint returns warnings for targets that can never pass as written.
//
// These targets are still accepted and checked: a TCP address without a
// port fails with an invalid-address error on every iteration, for example.
// Templates are not expanded.
func (c *Config) Lint() []string {
	var warnings []string

	for i, addr := range c.TCP {
		if err := lintTCP(addr); err != nil {
			warnings = append(warnings, fmt.Sprintf("tcp[%d] %q: %v", i, addr, err))
		}
	}
	for i, u := range c.URLs {
		if err := lintURL(u); err != nil {
			warnings = append(warnings, fmt.Sprintf("urls[%d] %q: %v", i, u, err))
		}
	}

	return warnings
}

func lintTCP(addr string) error {
	addr = strings.TrimSpace(addr)
	if len(addr) >= len("tcp://") && strings.EqualFold(addr[:len("tcp://")], "tcp://") {
		addr = addr[len("tcp://"):]
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return errors.New("missing host")
	}
	if port == "" {
		return errors.New("missing port")
	}
	return nil
}

func lintURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
