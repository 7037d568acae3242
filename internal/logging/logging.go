// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	Output io.Writer
}

// New returns a logger writing to opt.Output (stderr by default). Unknown
// levels fall back to info and unknown formats to text.
func New(opt Options) *slog.Logger {
	out := opt.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(opt.Level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opt.Format), "json") {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	return slog.New(h)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
