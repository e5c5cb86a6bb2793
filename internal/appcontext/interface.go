// Package appcontext provides the shared application context interface
// used by all commands.
package appcontext

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/taxsync/internal/config"
)

// Interface defines the application context that commands need.
// The App struct from cmd/taxsync/app implements it; tests use Mock.
type Interface interface {
	// SyncConfig returns the resolved reconciliation settings before command flags.
	SyncConfig() config.Sync

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (text, table, json, yaml).
	OutputFormat() string

	// NoColor reports whether colored output is disabled.
	NoColor() bool

	// Stdout is where command results are written.
	Stdout() io.Writer

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
