// Package logging provides structured logging for taxsync using zerolog.
// Console output is used when the log destination is a terminal and JSON
// everywhere else, so reconciliation runs in CI produce machine-readable logs.
//
// Run-scoped fields travel with the context:
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithRecordID(ctx, "algo-1")
//	logging.FromContext(ctx).Error().Err(err).Msg("Failed to write detection record")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = NewLoggerFromConfig(&Config{
	Level:   os.Getenv("LOG_LEVEL"),
	Format:  os.Getenv("LOG_FORMAT"),
	NoColor: os.Getenv("NO_COLOR") != "",
})

// Default returns the process-wide logger used when a context carries none.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
