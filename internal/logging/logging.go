// Package logging initializes the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// New initializes a new slog logger and sets it as the default. The
// LOG_FORMAT environment variable selects the output format: "text" for
// development (the default), "json" for production.
func New() {
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	var handler slog.Handler
	switch logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level(),
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     level(),
			AddSource: true,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// level reads LOG_LEVEL, defaulting to info.
func level() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
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
