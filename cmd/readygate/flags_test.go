package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// parseFlags registers the readygate flags on a fresh set and parses args.
func parseFlags(t *testing.T, args ...string) (*pflag.FlagSet, *flagValues) {
	t.Helper()

	fs := pflag.NewFlagSet("readygate", pflag.ContinueOnError)
	f := &flagValues{}
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}
	return fs, f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	fs, f := parseFlags(t)

	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Interval.Duration() != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval.Duration())
	}
	if cfg.Timeout.Duration() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout.Duration())
	}
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
}

func TestLoadConfig_RepeatableFlags(t *testing.T) {
	fs, f := parseFlags(t, "--tcp", "a:1", "-t", "b:2", "--url", "http://c", "-u", "http://d")

	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if want := []string{"a:1", "b:2"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v", cfg.TCP, want)
	}
	if want := []string{"http://c", "http://d"}; !reflect.DeepEqual(cfg.URLs, want) {
		t.Errorf("URLs = %v, want %v", cfg.URLs, want)
	}
}

func TestLoadConfig_EnvFallback(t *testing.T) {
	t.Setenv("READYGATE_TCP", "db:5432, cache:6379,")
	t.Setenv("READYGATE_URL", "http://api/healthz")
	t.Setenv("READYGATE_INTERVAL", "7")
	t.Setenv("READYGATE_DEDUPE", "true")
	t.Setenv("READYGATE_LOG_FORMAT", "text")

	fs, f := parseFlags(t)
	cfg, notes, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if want := []string{"db:5432", "cache:6379"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v", cfg.TCP, want)
	}
	if want := []string{"http://api/healthz"}; !reflect.DeepEqual(cfg.URLs, want) {
		t.Errorf("URLs = %v, want %v", cfg.URLs, want)
	}
	if cfg.Interval.Duration() != 7*time.Second {
		t.Errorf("Interval = %v, want 7s", cfg.Interval.Duration())
	}
	if !cfg.Dedupe {
		t.Error("Dedupe = false, want true")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", cfg.LogFormat)
	}
	if len(notes) == 0 {
		t.Error("expected notes describing env values")
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	t.Setenv("READYGATE_INTERVAL", "7")
	t.Setenv("READYGATE_TCP", "env:1")

	fs, f := parseFlags(t, "--interval", "3", "--tcp", "flag:1")
	cfg, notes, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Interval.Duration() != 3*time.Second {
		t.Errorf("Interval = %v, want 3s", cfg.Interval.Duration())
	}
	if want := []string{"flag:1"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v", cfg.TCP, want)
	}

	found := false
	for _, n := range notes {
		if strings.Contains(n, "--interval") && strings.Contains(n, "overrides env READYGATE_INTERVAL") {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v, want an override note for --interval", notes)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeFile(t, "readygate.yaml", `
interval: 20
timeout: 20s
concurrency: 2
tcp: [file:1]
urls: [http://file]
`)
	t.Setenv("READYGATE_TIMEOUT", "30")
	t.Setenv("READYGATE_URL", "http://env")

	fs, f := parseFlags(t, "-c", path, "--concurrency", "4")
	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	// file
	if cfg.Interval.Duration() != 20*time.Second {
		t.Errorf("Interval = %v, want 20s from file", cfg.Interval.Duration())
	}
	if want := []string{"file:1"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v from file", cfg.TCP, want)
	}
	// env over file
	if cfg.Timeout.Duration() != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s from env", cfg.Timeout.Duration())
	}
	if want := []string{"http://env"}; !reflect.DeepEqual(cfg.URLs, want) {
		t.Errorf("URLs = %v, want %v from env", cfg.URLs, want)
	}
	// flag over file
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4 from flag", cfg.Concurrency)
	}
}

func TestLoadConfig_OverrideReplacesInvalidFileValue(t *testing.T) {
	path := writeFile(t, "readygate.yaml", "interval: 600\ntcp: [db:5432]\n")

	tests := []struct {
		name string
		env  string
		args []string
	}{
		{name: "flag", args: []string{"-c", path, "--interval", "5"}},
		{name: "env", env: "5", args: []string{"-c", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("READYGATE_INTERVAL", tt.env)
			}

			fs, f := parseFlags(t, tt.args...)
			cfg, _, err := loadConfig(fs, f)
			if err != nil {
				t.Fatalf("loadConfig() error = %v", err)
			}
			if cfg.Interval.Duration() != 5*time.Second {
				t.Errorf("Interval = %v, want 5s", cfg.Interval.Duration())
			}
		})
	}
}

func TestLoadConfig_InvalidFileValueWithoutOverride(t *testing.T) {
	path := writeFile(t, "readygate.yaml", "interval: 600\n")

	fs, f := parseFlags(t, "-c", path)
	_, _, err := loadConfig(fs, f)
	if err == nil || !strings.Contains(err.Error(), "interval must be between") {
		t.Errorf("loadConfig() error = %v, want interval range error", err)
	}
}

func TestLoadConfig_ConfigFromEnv(t *testing.T) {
	path := writeFile(t, "readygate.yaml", "tcp: [from-file:1]\n")
	t.Setenv("READYGATE_CONFIG", path)

	fs, f := parseFlags(t)
	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if want := []string{"from-file:1"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v", cfg.TCP, want)
	}
}

func TestLoadConfig_InvalidEnvValue(t *testing.T) {
	t.Setenv("READYGATE_INTERVAL", "soon")

	fs, f := parseFlags(t)
	_, _, err := loadConfig(fs, f)
	if err == nil {
		t.Fatal("loadConfig() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "READYGATE_INTERVAL") {
		t.Errorf("error = %q, want to name the variable", err.Error())
	}
}

func TestLoadConfig_OutOfRange(t *testing.T) {
	fs, f := parseFlags(t, "--interval", "301")

	_, _, err := loadConfig(fs, f)
	if err == nil || !strings.Contains(err.Error(), "interval must be between") {
		t.Errorf("loadConfig() error = %v, want interval range error", err)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	const key = "READYGATE_TCP"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := writeFile(t, ".env", "READYGATE_TCP=dotenv:1,dotenv:2\n")

	fs, f := parseFlags(t, "--env-file", path)
	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if want := []string{"dotenv:1", "dotenv:2"}; !reflect.DeepEqual(cfg.TCP, want) {
		t.Errorf("TCP = %v, want %v", cfg.TCP, want)
	}
}

func TestLoadConfig_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	t.Setenv("READYGATE_LEVEL", "warn")
	path := writeFile(t, ".env", "READYGATE_LEVEL=debug\n")

	fs, f := parseFlags(t, "--env-file", path)
	cfg, _, err := loadConfig(fs, f)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Level != "warn" {
		t.Errorf("Level = %q, want warn from the process environment", cfg.Level)
	}
}

func TestLoadConfig_MissingEnvFile(t *testing.T) {
	fs, f := parseFlags(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"))

	_, _, err := loadConfig(fs, f)
	if err == nil || !strings.Contains(err.Error(), "failed to load env file") {
		t.Errorf("loadConfig() error = %v, want env file error", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,", []string{"a", "b"}},
		{",,", []string{}},
	}

	for _, tt := range tests {
		if got := splitList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
