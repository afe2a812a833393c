package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jpalmerr/readygate/config"
)

// newLogger creates the CLI logger writing to w.
//
// Every line carries a run_id so the output of one gate can be picked out of
// aggregated container logs.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceLevel,
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return slog.New(handler).With("run_id", uuid.NewString()), nil
}

// replaceLevel names the trace level, which slog would print as "DEBUG-4".
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= config.LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
