package taxsync

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/reconcile"
)

// Option is a function that configures a Sync or Check call
type Option func(*options) error

type options struct {
	dryRun         bool
	lock           bool
	lockFile       string
	extension      string
	sourcePattern  string
	derivedPattern string
	logger         *zerolog.Logger
	observers      reconcile.Observers
}

func defaultOptions() *options {
	return &options{
		lock:           true,
		lockFile:       constants.LockFileName,
		extension:      constants.DefaultExtension,
		sourcePattern:  constants.DefaultSourcePattern,
		derivedPattern: constants.DefaultDerivedPattern,
	}
}

// WithDryRun computes the change log without mutating the derived directory
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithLock configures whether Sync holds the derived directory lock while it runs
func WithLock(enabled bool) Option {
	return func(o *options) error {
		o.lock = enabled
		return nil
	}
}

// WithLockFile sets the name of the lock file inside the derived directory
func WithLockFile(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.NewValidationError("lock_file", name, "cannot be empty")
		}
		o.lockFile = name
		return nil
	}
}

// WithExtension sets the file extension of written derived records
func WithExtension(ext string) Option {
	return func(o *options) error {
		o.extension = ext
		return nil
	}
}

// WithSourcePattern sets the glob that selects source files below the source directory
func WithSourcePattern(pattern string) Option {
	return func(o *options) error {
		o.sourcePattern = pattern
		return nil
	}
}

// WithDerivedPattern sets the glob that selects derived files in the derived directory
func WithDerivedPattern(pattern string) Option {
	return func(o *options) error {
		o.derivedPattern = pattern
		return nil
	}
}

// WithLogger sets the logger for the run
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithObserver adds an observer of changes and finished runs
func WithObserver(observer reconcile.Observer) Option {
	return func(o *options) error {
		if observer == nil {
			return errors.NewValidationError("observer", nil, "cannot be nil")
		}
		o.observers = append(o.observers, observer)
		return nil
	}
}
