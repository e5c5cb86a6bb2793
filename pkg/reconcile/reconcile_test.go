package reconcile_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/taxsync/pkg/differ"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/logging"
	"github.com/agentstation/taxsync/pkg/reconcile"
	"github.com/agentstation/taxsync/pkg/records"
)

const (
	sourceDir  = "/taxonomy"
	derivedDir = "/detection"
)

var errDiskFull = stderrors.New("no space left on device")

// Helper function to create a store over an in-memory tree
func newFixture(t *testing.T, files map[string]string) (*records.Store, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(sourceDir, 0o755))
	require.NoError(t, fs.MkdirAll(derivedDir, 0o755))
	for path, content := range files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}
	store, err := records.NewStore(fs)
	require.NoError(t, err)
	return store, fs
}

func newReconciler(t *testing.T, store reconcile.Store, opts ...reconcile.Option) reconcile.Reconciler {
	t.Helper()
	opts = append([]reconcile.Option{reconcile.WithLogger(logging.NewNopLogger())}, opts...)
	r, err := reconcile.New(store, opts...)
	require.NoError(t, err)
	return r
}

func readFile(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	data, err := util.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func exists(fs billy.Filesystem, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// faultyStore fails writes and removals for selected ids.
type faultyStore struct {
	*records.Store
	failWrite  map[string]bool
	failRemove map[string]bool
}

func (f *faultyStore) Write(dir string, rec records.DerivedRecord) (string, error) {
	if f.failWrite[rec.ID] {
		return dir + "/" + rec.ID + ".yaml", errDiskFull
	}
	return f.Store.Write(dir, rec)
}

func (f *faultyStore) Remove(path string) error {
	for id := range f.failRemove {
		if path == derivedDir+"/"+id+".yaml" {
			return errDiskFull
		}
	}
	return f.Store.Remove(path)
}

// recordingObserver remembers every event.
type recordingObserver struct {
	changes  []differ.Change
	failures []differ.Change
	runs     []*reconcile.Result
}

func (o *recordingObserver) ObserveChange(c differ.Change)          { o.changes = append(o.changes, c) }
func (o *recordingObserver) ObserveFailure(c differ.Change, _ error) { o.failures = append(o.failures, c) }
func (o *recordingObserver) ObserveRun(r *reconcile.Result)         { o.runs = append(o.runs, r) }

func TestNewValidation(t *testing.T) {
	_, err := reconcile.New(nil)
	assert.True(t, errors.IsValidationError(err))

	store, _ := newFixture(t, nil)
	_, err = reconcile.New(store, reconcile.WithObserver(nil))
	assert.Error(t, err)
	_, err = reconcile.New(store, reconcile.WithLogger(nil))
	assert.Error(t, err)
	_, err = reconcile.New(store, reconcile.WithRunIDFunc(nil))
	assert.Error(t, err)
}

func TestReconcileScenario(t *testing.T) {
	ctx := context.Background()
	existing := "id: algo-1\nkeywords:\n  - sort\n  - order\nnotes: hand written\n"
	store, fs := newFixture(t, map[string]string{
		"/taxonomy/algo-1.yaml":        "id: algo-1\nname: Algorithm One\n",
		"/taxonomy/nested/algo-3.yaml": "id: algo-3\ncategory: graph\n",
		"/detection/algo-1.yaml":       existing,
		"/detection/algo-2.yaml":       "id: algo-2\nkeywords: [algo-2]\n",
	})
	r := newReconciler(t, store, reconcile.WithRunIDFunc(func() string { return "run-1" }))

	result, err := r.Reconcile(ctx, sourceDir, derivedDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"Added: algo-3", "Removed: algo-2"}, result.Log())
	assert.Equal(t, "run-1", result.RunID)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, 1, result.Added())
	assert.Equal(t, 1, result.Removed())
	assert.Equal(t, 1, result.Stats.Unchanged)

	assert.Equal(t, "id: algo-3\nkeywords:\n- algo-3\n", readFile(t, fs, "/detection/algo-3.yaml"))
	assert.False(t, exists(fs, "/detection/algo-2.yaml"))
	assert.Equal(t, existing, readFile(t, fs, "/detection/algo-1.yaml"), "shared ids are never rewritten")

	// A second run over the reconciled tree is a no-op.
	again, err := r.Reconcile(ctx, sourceDir, derivedDir)
	require.NoError(t, err)
	assert.Empty(t, again.Log())
	assert.False(t, again.HasChanges())
	assert.Equal(t, 2, again.Stats.Unchanged)
}

func TestReconcileAdditionsBeforeRemovals(t *testing.T) {
	store, _ := newFixture(t, map[string]string{
		"/taxonomy/zeta.yaml":   "id: zeta\n",
		"/taxonomy/alpha.yaml":  "id: alpha\n",
		"/detection/omega.yaml": "id: omega\n",
		"/detection/beta.yaml":  "id: beta\n",
	})
	r := newReconciler(t, store)

	result, err := r.Reconcile(context.Background(), sourceDir, derivedDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Added: alpha", "Added: zeta", "Removed: beta", "Removed: omega"}, result.Log())
}

func TestReconcileAdditionReplacesStaleFile(t *testing.T) {
	ctx := context.Background()
	store, fs := newFixture(t, map[string]string{
		"/taxonomy/algo-2.yaml":  "id: algo-2\n",
		"/detection/algo-2.yaml": "id: legacy\nkeywords: [legacy]\n",
	})
	r := newReconciler(t, store)

	result, err := r.Reconcile(ctx, sourceDir, derivedDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Added: algo-2", "Removed: legacy"}, result.Log())
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "id: algo-2\nkeywords:\n- algo-2\n", readFile(t, fs, "/detection/algo-2.yaml"))

	again, err := r.Reconcile(ctx, sourceDir, derivedDir)
	require.NoError(t, err)
	assert.Empty(t, again.Log())
	assert.Equal(t, 1, again.Stats.Unchanged)
}

func TestReconcileIdenticalSets(t *testing.T) {
	store, _ := newFixture(t, map[string]string{
		"/taxonomy/a.yaml":  "id: a\n",
		"/taxonomy/b.yaml":  "id: b\n",
		"/detection/a.yaml": "id: a\n",
		"/detection/b.yaml": "id: b\n",
	})

	result, err := newReconciler(t, store).Reconcile(context.Background(), sourceDir, derivedDir)
	require.NoError(t, err)
	assert.Empty(t, result.Log())
	assert.Equal(t, "no changes, 2 unchanged", result.Summary())
}

func TestReconcileSkipsUnusableSourceFiles(t *testing.T) {
	store, fs := newFixture(t, map[string]string{
		"/taxonomy/no-id.yaml":   "name: nameless\n",
		"/taxonomy/null-id.yaml": "id: ~\n",
		"/taxonomy/broken.yaml":  "id: [oops\n",
	})

	result, err := newReconciler(t, store).Reconcile(context.Background(), sourceDir, derivedDir)
	require.NoError(t, err)

	assert.Empty(t, result.Log())
	assert.Equal(t, 3, result.Stats.SourceSkipped)
	assert.Len(t, result.Stats.ParseErrors, 1)

	entries, err := fs.ReadDir(derivedDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReconcileMissingDirectories(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		derived string
		role    string
	}{
		{"missing source", "/absent", derivedDir, records.RoleSource},
		{"missing derived", sourceDir, "/absent", records.RoleDerived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, fs := newFixture(t, map[string]string{
				"/taxonomy/new.yaml":    "id: new\n",
				"/detection/stale.yaml": "id: stale\n",
			})
			obs := &recordingObserver{}

			result, err := newReconciler(t, store, reconcile.WithObserver(obs)).
				Reconcile(context.Background(), tt.source, tt.derived)
			require.Error(t, err)
			assert.Nil(t, result)

			var pathErr *errors.PathError
			require.ErrorAs(t, err, &pathErr)
			assert.Equal(t, tt.role, pathErr.Role)
			assert.True(t, errors.IsNotFound(err))

			assert.True(t, exists(fs, "/detection/stale.yaml"))
			assert.False(t, exists(fs, "/detection/new.yaml"))
			assert.Empty(t, obs.runs)
		})
	}
}

func TestReconcileCollectsFailures(t *testing.T) {
	base, fs := newFixture(t, map[string]string{
		"/taxonomy/a.yaml":  "id: a\n",
		"/taxonomy/b.yaml":  "id: b\n",
		"/taxonomy/c.yaml":  "id: c\n",
		"/detection/x.yaml": "id: x\n",
		"/detection/y.yaml": "id: y\n",
	})
	store := &faultyStore{
		Store:      base,
		failWrite:  map[string]bool{"b": true},
		failRemove: map[string]bool{"x": true},
	}
	obs := &recordingObserver{}

	result, err := newReconciler(t, store, reconcile.WithObserver(obs)).
		Reconcile(context.Background(), sourceDir, derivedDir)
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, errors.IsPartialSync(err))
	assert.ErrorIs(t, err, errDiskFull)

	var syncErr *errors.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, []string{"b", "x"}, syncErr.IDs())

	var writeErr *errors.WriteError
	require.ErrorAs(t, result.Errors[0], &writeErr)
	assert.Equal(t, "/detection/b.yaml", writeErr.Path)

	var deleteErr *errors.DeleteError
	require.ErrorAs(t, result.Errors[1], &deleteErr)
	assert.Equal(t, "x", deleteErr.ID)

	// The batch continued past each failure.
	assert.Equal(t, []string{"Added: a", "Added: c", "Removed: y"}, result.Log())
	assert.True(t, exists(fs, "/detection/a.yaml"))
	assert.True(t, exists(fs, "/detection/c.yaml"))
	assert.True(t, exists(fs, "/detection/x.yaml"))
	assert.False(t, exists(fs, "/detection/y.yaml"))
	assert.False(t, result.IsSuccess())
	assert.Contains(t, result.Summary(), "2 failed")

	assert.Len(t, obs.changes, 3)
	assert.Equal(t, []differ.Change{{Action: differ.Added, ID: "b"}, {Action: differ.Removed, ID: "x"}}, obs.failures)
	require.Len(t, obs.runs, 1)
	assert.Same(t, result, obs.runs[0])
}

func TestReconcileUnsafeID(t *testing.T) {
	store, fs := newFixture(t, map[string]string{
		"/taxonomy/evil.yaml": "id: ../outside\n",
		"/taxonomy/ok.yaml":   "id: ok\n",
	})

	result, err := newReconciler(t, store).Reconcile(context.Background(), sourceDir, derivedDir)
	require.Error(t, err)
	assert.True(t, errors.IsPartialSync(err))
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, []string{"Added: ok"}, result.Log())
	assert.False(t, exists(fs, "/outside.yaml"))
}

func TestReconcileDryRun(t *testing.T) {
	store, fs := newFixture(t, map[string]string{
		"/taxonomy/new.yaml":    "id: new\n",
		"/detection/stale.yaml": "id: stale\n",
	})
	obs := &recordingObserver{}

	result, err := newReconciler(t, store, reconcile.WithDryRun(true), reconcile.WithObserver(obs)).
		Reconcile(context.Background(), sourceDir, derivedDir)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, []string{"Added: new", "Removed: stale"}, result.Log())
	assert.False(t, exists(fs, "/detection/new.yaml"))
	assert.True(t, exists(fs, "/detection/stale.yaml"))
	assert.Empty(t, obs.changes)
	assert.Equal(t, "Dry run: 1 added, 1 removed planned, 0 unchanged", result.Summary())
}

// cancelingObserver cancels the run after the first applied change.
type cancelingObserver struct {
	reconcile.NopObserver
	cancel context.CancelFunc
}

func (o cancelingObserver) ObserveChange(differ.Change) { o.cancel() }

func TestReconcileCancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		store, _ := newFixture(t, map[string]string{"/taxonomy/a.yaml": "id: a\n"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := newReconciler(t, store).Reconcile(ctx, sourceDir, derivedDir)
		assert.Nil(t, result)
		assert.True(t, errors.IsCanceled(err))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("between mutations", func(t *testing.T) {
		store, fs := newFixture(t, map[string]string{
			"/taxonomy/a.yaml": "id: a\n",
			"/taxonomy/b.yaml": "id: b\n",
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		r := newReconciler(t, store, reconcile.WithObserver(cancelingObserver{cancel: cancel}))
		result, err := r.Reconcile(ctx, sourceDir, derivedDir)
		require.Error(t, err)
		assert.True(t, errors.IsCanceled(err))
		require.NotNil(t, result)
		assert.Equal(t, []string{"Added: a"}, result.Log())
		assert.Len(t, result.Planned, 2)
		assert.False(t, exists(fs, "/detection/b.yaml"))

		// The next run picks up where the interrupted one stopped.
		result, err = r.Reconcile(context.Background(), sourceDir, derivedDir)
		require.NoError(t, err)
		assert.Equal(t, []string{"Added: b"}, result.Log())
	})
}

func TestReconcileLogsRun(t *testing.T) {
	tl := logging.NewTestLogger(t)
	store, _ := newFixture(t, map[string]string{"/taxonomy/a.yaml": "id: a\n"})

	r, err := reconcile.New(store,
		reconcile.WithLogger(tl.Logger),
		reconcile.WithRunIDFunc(func() string { return "fixed-run" }),
	)
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), sourceDir, derivedDir)
	require.NoError(t, err)

	tl.AssertContains(t, `"run_id":"fixed-run"`)
	tl.AssertContains(t, `"record_id":"a"`)
	tl.AssertContains(t, "Added derived record")
	tl.AssertContains(t, "Reconciliation finished")
}
