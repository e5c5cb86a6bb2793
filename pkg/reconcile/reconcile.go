// Package reconcile brings the detection directory in line with the taxonomy
// directory.
//
// A run loads both record sets, diffs their identifiers, writes a default
// detection record for every new taxonomy id and deletes the detection file of
// every id that left the taxonomy. Ids present on both sides are never touched.
// Per-mutation failures are collected and the batch continues; a second run
// over unchanged directories produces an empty change log.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/taxsync/pkg/differ"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/logging"
	"github.com/agentstation/taxsync/pkg/records"
)

// Reader loads record sets from directories.
type Reader interface {
	LoadSource(ctx context.Context, dir string) (*records.SourceSet, records.LoadStats, error)
	LoadDerived(ctx context.Context, dir string) (*records.DerivedSet, records.LoadStats, error)
}

// Writer mutates the derived directory.
type Writer interface {
	// Write serializes rec into dir and returns the written path.
	Write(dir string, rec records.DerivedRecord) (string, error)
	// Remove deletes the file at path.
	Remove(path string) error
}

// Store is the record storage a Reconciler operates on.
type Store interface {
	Reader
	Writer
}

// Reconciler reconciles a derived directory against a source directory.
type Reconciler interface {
	// Reconcile runs one reconciliation pass.
	// A PathError is returned, with a nil Result, when either directory is unusable.
	// Mutation failures are reported in Result.Errors and as a SyncError.
	Reconcile(ctx context.Context, sourceDir, derivedDir string) (*Result, error)
}

// reconciler is the default implementation of Reconciler
type reconciler struct {
	store    Store
	dryRun   bool
	logger   *zerolog.Logger
	observer Observer
	newRunID func() string
}

// Option configures a Reconciler
type Option func(*reconciler) error

// New creates a new Reconciler over store.
func New(store Store, opts ...Option) (Reconciler, error) {
	if store == nil {
		return nil, errors.NewValidationError("store", nil, "cannot be nil")
	}

	r := &reconciler{
		store:    store,
		observer: NopObserver{},
		newRunID: uuid.NewString,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// WithDryRun computes the change log without touching the derived directory.
func WithDryRun(enabled bool) Option {
	return func(r *reconciler) error {
		r.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger used instead of the one carried by the context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *reconciler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithObserver registers an observer for changes, failures, and finished runs.
func WithObserver(observer Observer) Option {
	return func(r *reconciler) error {
		if observer == nil {
			return fmt.Errorf("observer cannot be nil")
		}
		r.observer = observer
		return nil
	}
}

// WithRunIDFunc replaces the run id generator.
func WithRunIDFunc(fn func() string) Option {
	return func(r *reconciler) error {
		if fn == nil {
			return fmt.Errorf("run id generator cannot be nil")
		}
		r.newRunID = fn
		return nil
	}
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, sourceDir, derivedDir string) (*Result, error) {
	startTime := time.Now()
	runID := r.newRunID()

	if r.logger != nil {
		ctx = logging.WithLogger(ctx, r.logger)
	}
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithDirectory(ctx, records.RoleSource, sourceDir)
	ctx = logging.WithDirectory(ctx, records.RoleDerived, derivedDir)
	if r.dryRun {
		ctx = logging.WithOperation(ctx, "plan")
	} else {
		ctx = logging.WithOperation(ctx, "apply")
	}
	logger := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	}

	logger.Debug().Bool("dry_run", r.dryRun).Msg("Starting reconciliation")

	source, sourceStats, err := r.store.LoadSource(ctx, sourceDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load source records")
		return nil, err
	}

	derived, derivedStats, err := r.store.LoadDerived(ctx, derivedDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load derived records")
		return nil, err
	}

	changeset := differ.Diff(source, derived)

	result := &Result{
		RunID:      runID,
		SourceDir:  sourceDir,
		DerivedDir: derivedDir,
		DryRun:     r.dryRun,
		Planned:    changeset.Changes(),
		Changes:    []differ.Change{},
		StartTime:  startTime,
		Stats:      newStats(source, derived, sourceStats, derivedStats, changeset),
	}

	canceled := r.apply(ctx, result, derived)

	result.Duration = time.Since(startTime)
	r.observer.ObserveRun(result)

	event := logger.Info()
	if result.HasErrors() {
		event = logger.Warn()
	}
	event.
		Int("added", result.Added()).
		Int("removed", result.Removed()).
		Int("unchanged", result.Stats.Unchanged).
		Int("skipped", result.Stats.SourceSkipped+result.Stats.DerivedSkipped).
		Int("failed", len(result.Errors)).
		Bool("dry_run", r.dryRun).
		Dur("duration", result.Duration).
		Msg("Reconciliation finished")

	if canceled != nil {
		return result, fmt.Errorf("%w after %d of %d changes: %w",
			errors.ErrCanceled, len(result.Changes)+len(result.Errors), len(result.Planned), canceled)
	}
	if err := result.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// apply performs the planned changes in order and records the outcome on result.
// It returns the context error if the run was interrupted.
//
// A removed id whose file was already replaced by an addition in this run
// (e.g. algo-2.yaml holding a stale id) is counted as removed without
// deleting the file again.
func (r *reconciler) apply(ctx context.Context, result *Result, derived *records.DerivedSet) error {
	written := make(map[string]bool)
	for _, change := range result.Planned {
		if err := ctx.Err(); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Reconciliation interrupted")
			return err
		}

		changeCtx := logging.WithRecordID(ctx, change.ID)
		logger := logging.FromContext(changeCtx)

		if r.dryRun {
			logger.Info().Str("action", string(change.Action)).Msg("Would apply change")
			result.Changes = append(result.Changes, change)
			continue
		}

		var failure error
		switch change.Action {
		case differ.Added:
			path, err := r.store.Write(result.DerivedDir, records.NewDerivedRecord(change.ID))
			if err != nil {
				failure = errors.NewWriteError(change.ID, path, err)
				break
			}
			written[path] = true
			logger.Info().Str("path", path).Msg("Added derived record")

		case differ.Removed:
			entry, _ := derived.Get(change.ID)
			if written[entry.Path] {
				logger.Info().Str("path", entry.Path).Msg("Derived record replaced by addition")
				break
			}
			if err := r.store.Remove(entry.Path); err != nil {
				failure = errors.NewDeleteError(change.ID, entry.Path, err)
				break
			}
			logger.Info().Str("path", entry.Path).Msg("Removed derived record")
		}

		if failure != nil {
			logger.Error().Err(failure).Str("action", string(change.Action)).Msg("Failed to apply change")
			result.Errors = append(result.Errors, failure)
			r.observer.ObserveFailure(change, failure)
			continue
		}

		result.Changes = append(result.Changes, change)
		r.observer.ObserveChange(change)
	}
	return nil
}
