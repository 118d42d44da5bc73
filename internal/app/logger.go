package app

import (
	"io"
	"log/slog"

	charmlog "github.com/charmbracelet/log"
)

// newLogger builds the application logger. Text output goes through the
// charmbracelet handler; json output uses the stock slog JSON handler so
// log collectors get one object per line.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var slogLevel slog.Level
	var charmLevel charmlog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
		charmLevel = charmlog.DebugLevel
	case "warn":
		slogLevel = slog.LevelWarn
		charmLevel = charmlog.WarnLevel
	case "error":
		slogLevel = slog.LevelError
		charmLevel = charmlog.ErrorLevel
	default:
		slogLevel = slog.LevelInfo
		charmLevel = charmlog.InfoLevel
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel}))
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmLevel,
		ReportTimestamp: true,
	})
	return slog.New(handler)
}
