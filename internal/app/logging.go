package app

import (
	"io"
	"log/slog"
)

// NewLogger returns a text logger on w at debug level when verbose is set.
// Otherwise everything is discarded.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose || w == nil {
		return slog.New(slog.DiscardHandler)
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
