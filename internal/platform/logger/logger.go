package logger

import (
	"io"
	"log/slog"
	"os"

	"firmgate/internal/platform/config"
)

// New returns a structured JSON logger on stdout tagged with the service name.
// Development runs log at debug level.
func New(env string) *slog.Logger {
	return NewWithWriter(os.Stdout, env)
}

// NewWithWriter is New with a caller-supplied sink.
func NewWithWriter(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo
	if env == config.EnvDevelopment {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "firmgate")
}
