package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout at the given level.
// Services receive it by injection so tests can swap in a discard handler.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything. For tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
