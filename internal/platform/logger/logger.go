package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

// NewNop returns a logger that discards everything. Services take a logger
// through options and default to this so call sites never nil-check.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
