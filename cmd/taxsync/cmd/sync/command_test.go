package sync_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/taxsync/cmd/taxsync/cmd/sync"
	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/cmd/output"
	"github.com/agentstation/taxsync/internal/config"
	"github.com/agentstation/taxsync/pkg/errors"
)

type fixture struct {
	source  string
	derived string
	stdout  *bytes.Buffer
	appCtx  *appcontext.Mock
}

func newFixture(t *testing.T, format string) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		source:  filepath.Join(root, "taxonomy"),
		derived: filepath.Join(root, "detection"),
		stdout:  &bytes.Buffer{},
	}
	require.NoError(t, os.MkdirAll(f.source, 0o755))
	require.NoError(t, os.MkdirAll(f.derived, 0o755))

	write(t, filepath.Join(f.source, "algo-1.yaml"), "id: algo-1\n")
	write(t, filepath.Join(f.source, "algo-3.yaml"), "id: algo-3\n")
	write(t, filepath.Join(f.derived, "algo-1.yaml"), "id: algo-1\nkeywords: [sort]\n")
	write(t, filepath.Join(f.derived, "algo-2.yaml"), "id: algo-2\nkeywords: [algo-2]\n")

	f.appCtx = &appcontext.Mock{
		SyncConfigFunc: func() config.Sync {
			cfg := config.Defaults()
			cfg.SourceDir = f.source
			cfg.DerivedDir = f.derived
			return cfg
		},
		OutputFormatFunc: func() string { return format },
		StdoutFunc:       func() io.Writer { return f.stdout },
	}
	return f
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) run(args ...string) error {
	cmd := sync.NewCommand(f.appCtx)
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.ExecuteContext(context.Background())
}

func TestSyncCommand(t *testing.T) {
	f := newFixture(t, "text")

	require.NoError(t, f.run())
	assert.Contains(t, f.stdout.String(), "Added: algo-3\nRemoved: algo-2\n")
	assert.Contains(t, f.stdout.String(), "1 added, 1 removed applied, 1 unchanged")

	assert.FileExists(t, filepath.Join(f.derived, "algo-3.yaml"))
	assert.NoFileExists(t, filepath.Join(f.derived, "algo-2.yaml"))

	f.stdout.Reset()
	require.NoError(t, f.run())
	assert.Equal(t, "no changes, 2 unchanged\n", f.stdout.String())
}

func TestSyncCommandDryRunJSON(t *testing.T) {
	f := newFixture(t, "json")

	require.NoError(t, f.run("--dry-run"))

	var report output.Report
	require.NoError(t, json.Unmarshal(f.stdout.Bytes(), &report))
	assert.True(t, report.DryRun)
	require.Len(t, report.Changes, 2)
	assert.Equal(t, "algo-3", report.Changes[0].ID)
	assert.Equal(t, output.StatusPlanned, report.Changes[0].Status)

	assert.NoFileExists(t, filepath.Join(f.derived, "algo-3.yaml"))
	assert.FileExists(t, filepath.Join(f.derived, "algo-2.yaml"))
}

func TestSyncCommandFlagsOverrideConfig(t *testing.T) {
	f := newFixture(t, "text")
	other := filepath.Join(t.TempDir(), "other")
	require.NoError(t, os.MkdirAll(other, 0o755))

	require.NoError(t, f.run("--derived", other, "--extension", "yml", "--no-lock"))
	assert.FileExists(t, filepath.Join(other, "algo-1.yml"))
	assert.FileExists(t, filepath.Join(other, "algo-3.yml"))
	assert.NoFileExists(t, filepath.Join(other, ".taxsync.lock"))
}

func TestSyncCommandMissingDirectory(t *testing.T) {
	f := newFixture(t, "text")

	err := f.run("--source", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, f.stdout.String())
}

func TestSyncCommandInvalidConfig(t *testing.T) {
	f := newFixture(t, "text")

	err := f.run("--source", "")
	assert.True(t, errors.IsValidationError(err))
}

func TestSyncCommandRejectsArgs(t *testing.T) {
	f := newFixture(t, "text")
	assert.Error(t, f.run("extra"))
}
