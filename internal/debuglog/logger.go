package debuglog

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in prod, text everywhere else.
func NewLogger(level string, prod bool) *slog.Logger {
	return newLogger(os.Stdout, level, prod)
}

func newLogger(w io.Writer, level string, prod bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if prod {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
