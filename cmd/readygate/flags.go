package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/jpalmerr/readygate/config"
)

// envPrefix is prepended to upper-cased flag names: --log-format reads
// READYGATE_LOG_FORMAT.
const envPrefix = "READYGATE_"

// flagValues holds the raw command-line values before they are merged into
// a config.Config.
type flagValues struct {
	configFile  string
	envFile     string
	level       string
	logFormat   string
	interval    int
	timeout     int
	concurrency int
	dedupe      bool
	tcp         []string
	urls        []string
}

// register binds every flag to fs with defaults inline.
func (f *flagValues) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configFile, "config", "c", "", "path to a YAML config file")
	fs.StringVar(&f.envFile, "env-file", "", "path to a .env file loaded before READYGATE_* variables are read")
	fs.StringVarP(&f.level, "level", "l", config.DefaultLevel, "log level: trace|debug|info|warn|error")
	fs.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "log format: json|text")
	fs.IntVarP(&f.interval, "interval", "i", int(config.DefaultInterval/time.Second), "seconds between iterations (1..300)")
	fs.IntVar(&f.timeout, "timeout", int(config.DefaultTimeout/time.Second), "seconds before a single check gives up (1..60)")
	fs.IntVar(&f.concurrency, "concurrency", config.DefaultConcurrency, "checks run at once within an iteration (1..64)")
	fs.BoolVar(&f.dedupe, "dedupe", false, "check repeated targets only once")
	fs.StringArrayVarP(&f.tcp, "tcp", "t", nil, "TCP target host:port, optionally tcp:// prefixed (repeatable)")
	fs.StringArrayVarP(&f.urls, "url", "u", nil, "HTTP(S) URL that must return 2xx (repeatable)")
}

// loadConfig resolves the run configuration from flags, environment, and the
// optional config file, and validates it.
//
// The returned notes describe precedence decisions; they are logged at debug
// once a logger exists.
func loadConfig(fs *pflag.FlagSet, f *flagValues) (*config.Config, []string, error) {
	var notes []string
	logf := func(format string, args ...any) {
		notes = append(notes, fmt.Sprintf(format, args...))
	}

	if err := loadEnvFile(fs, logf); err != nil {
		return nil, nil, err
	}
	if err := fillFromEnv(fs, envPrefix, logf); err != nil {
		return nil, nil, err
	}

	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.Read(f.configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		logf("loaded config file %s", f.configFile)
	}

	f.overlay(fs, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, notes, nil
}

// overlay copies every flag that was set on the command line or from the
// environment onto cfg. Unset flags leave the file (or default) value alone.
func (f *flagValues) overlay(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("level") {
		cfg.Level = f.level
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fs.Changed("interval") {
		cfg.Interval = config.Duration(time.Duration(f.interval) * time.Second)
	}
	if fs.Changed("timeout") {
		cfg.Timeout = config.Duration(time.Duration(f.timeout) * time.Second)
	}
	if fs.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if fs.Changed("dedupe") {
		cfg.Dedupe = f.dedupe
	}
	if fs.Changed("tcp") {
		cfg.TCP = append([]string(nil), f.tcp...)
	}
	if fs.Changed("url") {
		cfg.URLs = append([]string(nil), f.urls...)
	}
}

// loadEnvFile loads the file named by --env-file (or READYGATE_ENV_FILE).
// Variables already present in the process environment are not overwritten.
func loadEnvFile(fs *pflag.FlagSet, logf func(string, ...any)) error {
	path, _ := fs.GetString("env-file")
	if !fs.Changed("env-file") {
		path = os.Getenv(envPrefix + "ENV_FILE")
	}
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	logf("loaded env file %s", path)
	return nil
}

// fillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "log-format" maps to PREFIX_LOG_FORMAT.
// List flags take a comma-separated value.
// Precedence: cli flag > env var > default.
func fillFromEnv(fs *pflag.FlagSet, prefix string, logf func(string, ...any)) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) { explicit[f.Name] = true })

	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}

		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			logf("flag --%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			return
		}

		values := []string{envVal}
		if f.Value.Type() == "stringArray" {
			values = splitList(envVal)
		}
		for _, v := range values {
			if err := fs.Set(f.Name, v); err != nil {
				firstErr = fmt.Errorf("invalid %s=%q: %w", key, envVal, err)
				return
			}
		}
		logf("flag --%s set from env %s", f.Name, key)
	})

	return firstErr
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
