// Package taxsync keeps a directory of detection records in step with a
// taxonomy directory.
//
// Every taxonomy record with an id gets a detection record of the same id;
// detection records whose id left the taxonomy are deleted. Existing
// detection records are never rewritten.
//
//	result, err := taxsync.Sync(ctx, "taxonomy", "detection")
//	if err != nil {
//		return err
//	}
//	for _, line := range result.Log() {
//		fmt.Println(line)
//	}
package taxsync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/agentstation/taxsync/internal/lock"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/logging"
	"github.com/agentstation/taxsync/pkg/reconcile"
	"github.com/agentstation/taxsync/pkg/records"
)

// Sync reconciles derivedDir against sourceDir on the host filesystem.
// Relative directories are resolved against the working directory.
func Sync(ctx context.Context, sourceDir, derivedDir string, opts ...Option) (*reconcile.Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	sourceDir, derivedDir, err := absDirs(sourceDir, derivedDir)
	if err != nil {
		return nil, err
	}

	store, err := records.NewOSStore(
		records.WithExtension(o.extension),
		records.WithSourcePattern(o.sourcePattern),
		records.WithDerivedPattern(o.derivedPattern),
	)
	if err != nil {
		return nil, err
	}

	if o.lock && !o.dryRun {
		if err := store.CheckDir(records.RoleDerived, derivedDir); err != nil {
			return nil, err
		}
		held, err := lock.AcquireFile(derivedDir, o.lockFile)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := held.Release(); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Str("path", held.Path()).Msg("Failed to release lock")
			}
		}()
	}

	reconcilerOpts := []reconcile.Option{reconcile.WithDryRun(o.dryRun)}
	if o.logger != nil {
		reconcilerOpts = append(reconcilerOpts, reconcile.WithLogger(o.logger))
	}
	if len(o.observers) > 0 {
		reconcilerOpts = append(reconcilerOpts, reconcile.WithObserver(o.observers))
	}

	r, err := reconcile.New(store, reconcilerOpts...)
	if err != nil {
		return nil, err
	}

	return r.Reconcile(ctx, sourceDir, derivedDir)
}

// Check plans a reconciliation without applying it.
// It returns an error wrapping ErrDrift, along with the plan, when the
// derived directory is out of sync.
func Check(ctx context.Context, sourceDir, derivedDir string, opts ...Option) (*reconcile.Result, error) {
	opts = append(opts, WithDryRun(true))
	result, err := Sync(ctx, sourceDir, derivedDir, opts...)
	if err != nil {
		return result, err
	}
	if result.HasChanges() {
		return result, fmt.Errorf("%w: %d change(s) pending", errors.ErrDrift, len(result.Changes))
	}
	return result, nil
}

func absDirs(sourceDir, derivedDir string) (string, string, error) {
	source, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", "", errors.NewPathError(records.RoleSource, sourceDir, err)
	}
	derived, err := filepath.Abs(derivedDir)
	if err != nil {
		return "", "", errors.NewPathError(records.RoleDerived, derivedDir, err)
	}
	return source, derived, nil
}
