// Package app provides the application context and dependency management
// for the taxsync CLI. It centralizes configuration, logging, and the
// output stream so every command receives them through appcontext.Interface.
package app

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/config"
	"github.com/agentstation/taxsync/pkg/errors"
)

var _ appcontext.Interface = (*App)(nil)

// App represents the taxsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	stdout io.Writer
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment, .env files, and the
// default config file locations, then customized by opts.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		stdout:  os.Stdout,
	}

	cfg, err := LoadConfig("")
	if err != nil {
		return nil, errors.NewConfigError("app", "failed to load configuration", err)
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// SyncConfig returns the reconciliation settings resolved from config and env.
func (a *App) SyncConfig() config.Sync {
	return a.config.Sync
}

// OutputFormat returns the requested output format, empty for auto-detection.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// NoColor reports whether colored output is disabled, either explicitly or
// because stdout is not a terminal.
func (a *App) NoColor() bool {
	return a.config.NoColor || color.NoColor
}

// Stdout returns the writer command results go to.
func (a *App) Stdout() io.Writer {
	return a.stdout
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		if cfg == nil {
			return errors.NewValidationError("config", nil, "cannot be nil")
		}
		a.config = cfg
		logger := NewLogger(cfg)
		a.logger = &logger
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithStdout redirects command results (useful for testing).
func WithStdout(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}
