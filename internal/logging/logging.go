// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"io"
	"log/slog"

	"github.com/raoulx24/zfs-autosnapd/internal/config"
)

// Setup returns a logger writing to w in the configured format and level.
// Components derive their own loggers via With("component", ...).
func Setup(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
