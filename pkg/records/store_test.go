package records_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/records"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

func newMemStore(t *testing.T, opts ...records.Option) (*records.Store, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("/taxonomy", 0o755))
	require.NoError(t, fs.MkdirAll("/detection", 0o755))
	store, err := records.NewStore(fs, opts...)
	require.NoError(t, err)
	return store, fs
}

func TestNewStoreValidation(t *testing.T) {
	_, err := records.NewStore(nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = records.NewStore(memfs.New(), records.WithSourcePattern("[unclosed"))
	assert.True(t, errors.IsValidationError(err))

	_, err = records.NewStore(memfs.New(), records.WithExtension("yml"))
	assert.True(t, errors.IsValidationError(err), "yml files are invisible to *.yaml")

	store, err := records.NewStore(memfs.New(),
		records.WithExtension(".yml"),
		records.WithDerivedPattern("*.yml"),
	)
	require.NoError(t, err)
	assert.Equal(t, "yml", store.Extension())
}

func TestLoadSource(t *testing.T) {
	ctx := context.Background()
	store, fs := newMemStore(t)

	writeFile(t, fs, "/taxonomy/algo-1.yaml", "id: algo-1\nname: Algorithm One\ncategory: sorting\n")
	writeFile(t, fs, "/taxonomy/nested/deep/algo-2.yaml", "id: algo-2\n")
	writeFile(t, fs, "/taxonomy/no-id.yaml", "name: orphan\n")
	writeFile(t, fs, "/taxonomy/broken.yaml", "id: [unterminated\n")
	writeFile(t, fs, "/taxonomy/notes.txt", "id: not-yaml-ext\n")
	writeFile(t, fs, "/taxonomy/.hidden.yaml", "id: hidden-file\n")
	writeFile(t, fs, "/taxonomy/.git/config.yaml", "id: hidden-dir\n")

	set, stats, err := store.LoadSource(ctx, "/taxonomy")
	require.NoError(t, err)

	assert.Equal(t, []string{"algo-1", "algo-2"}, set.SortedIDs())
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 2, stats.Skipped)
	require.Len(t, stats.ParseErrors, 1)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, stats.ParseErrors[0], &parseErr)

	rec, ok := set.Get("algo-1")
	require.True(t, ok)
	assert.Equal(t, "Algorithm One", rec.Name)
	assert.Equal(t, "sorting", rec.Category)
	assert.Equal(t, "/taxonomy/algo-1.yaml", rec.Path)
}

func TestLoadSourceDuplicateIDs(t *testing.T) {
	store, fs := newMemStore(t)
	writeFile(t, fs, "/taxonomy/a/dup.yaml", "id: dup\nname: first\n")
	writeFile(t, fs, "/taxonomy/b/dup.yaml", "id: dup\nname: second\n")

	set, stats, err := store.LoadSource(context.Background(), "/taxonomy")
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, 2, stats.Records)

	rec, _ := set.Get("dup")
	assert.Equal(t, "second", rec.Name)
}

func TestLoadSourceRepeatedKeys(t *testing.T) {
	store, fs := newMemStore(t)
	writeFile(t, fs, "/taxonomy/algo-9.yaml", "id: algo-9\nname: A\nname: B\n")

	set, stats, err := store.LoadSource(context.Background(), "/taxonomy")
	require.NoError(t, err)
	assert.Zero(t, stats.Skipped)
	assert.Empty(t, stats.ParseErrors)

	rec, ok := set.Get("algo-9")
	require.True(t, ok)
	assert.Equal(t, "B", rec.Name)
}

func TestLoadDerivedIsShallow(t *testing.T) {
	store, fs := newMemStore(t)
	writeFile(t, fs, "/detection/algo-1.yaml", "id: algo-1\nkeywords: [algo-1]\n")
	writeFile(t, fs, "/detection/renamed.yaml", "id: algo-9\n")
	writeFile(t, fs, "/detection/sub/algo-3.yaml", "id: algo-3\n")
	writeFile(t, fs, "/detection/no-id.yaml", "keywords: []\n")

	set, stats, err := store.LoadDerived(context.Background(), "/detection")
	require.NoError(t, err)

	assert.Equal(t, []string{"algo-1", "algo-9"}, set.SortedIDs())
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, 1, stats.Skipped)

	entry, ok := set.Get("algo-9")
	require.True(t, ok)
	assert.Equal(t, "/detection/renamed.yaml", entry.Path)
}

func TestLoadMissingDirectory(t *testing.T) {
	store, fs := newMemStore(t)
	writeFile(t, fs, "/file.yaml", "id: x\n")

	_, _, err := store.LoadSource(context.Background(), "/absent")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	var pathErr *errors.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, records.RoleSource, pathErr.Role)

	_, _, err = store.LoadDerived(context.Background(), "/file.yaml")
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, records.RoleDerived, pathErr.Role)
	assert.False(t, errors.IsNotFound(err))
}

func TestWriteAndRemove(t *testing.T) {
	store, fs := newMemStore(t)

	path, err := store.Write("/detection", records.NewDerivedRecord("algo-3"))
	require.NoError(t, err)
	assert.Equal(t, "/detection/algo-3.yaml", path)

	data, err := util.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "id: algo-3\nkeywords:\n- algo-3\n", string(data))

	set, _, err := store.LoadDerived(context.Background(), "/detection")
	require.NoError(t, err)
	assert.True(t, set.Has("algo-3"))

	require.NoError(t, store.Remove(path))
	_, err = fs.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, store.Remove(path))
}

func TestWriteRejectsUnsafeIDs(t *testing.T) {
	store, _ := newMemStore(t)

	for _, id := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "../escape"} {
		t.Run(id, func(t *testing.T) {
			_, err := store.Write("/detection", records.NewDerivedRecord(id))
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestOSStore(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "taxonomy")
	derived := filepath.Join(root, "detection")
	require.NoError(t, os.MkdirAll(filepath.Join(source, "group"), 0o755))
	require.NoError(t, os.MkdirAll(derived, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "group", "algo-1.yaml"), []byte("id: algo-1\n"), 0o644))

	store, err := records.NewOSStore()
	require.NoError(t, err)

	set, _, err := store.LoadSource(context.Background(), source)
	require.NoError(t, err)
	assert.Equal(t, []string{"algo-1"}, set.IDs())

	path, err := store.Write(derived, records.NewDerivedRecord("algo-1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(derived, "algo-1.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id: algo-1\nkeywords:\n- algo-1\n", string(data))
}
