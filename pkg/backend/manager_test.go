package backend

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/bucketd/pkg/backend/database"
	"github.com/glorpus-work/bucketd/pkg/catalog"
	"github.com/glorpus-work/bucketd/pkg/download"
	dlmocks "github.com/glorpus-work/bucketd/pkg/download/mocks"
	"github.com/glorpus-work/bucketd/pkg/errors"
	"github.com/glorpus-work/bucketd/pkg/fsutil"
	"github.com/glorpus-work/bucketd/pkg/hook"
	"github.com/glorpus-work/bucketd/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// buildArchive writes a tar.gz package archive with meta/package.json, the
// given data files, and an optional post-install script.
func buildArchive(t *testing.T, dir string, meta Metadata, dataFiles map[string]string, hookScript string) string {
	t.Helper()
	hooks := map[string]string{}
	if hookScript != "" {
		hooks[postInstallScript] = hookScript
	}
	return buildArchiveWithHooks(t, dir, meta, dataFiles, hooks)
}

// buildArchiveWithHooks is buildArchive with arbitrary meta/ hook scripts,
// keyed by script filename.
func buildArchiveWithHooks(t *testing.T, dir string, meta Metadata, dataFiles map[string]string, hooks map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, meta.Name+"-"+meta.Version+".tar.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	writeEntry := func(name string, content []byte) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}

	metaJSON, err := json.Marshal(meta)
	require.NoError(t, err)
	writeEntry("meta/package.json", metaJSON)
	for name, script := range hooks {
		writeEntry("meta/"+name, []byte(script))
	}
	for name, content := range dataFiles {
		writeEntry("data/"+name, []byte(content))
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func writeCatalog(t *testing.T, dir, packagesJSON string) *catalog.Manager {
	t.Helper()
	path := filepath.Join(dir, "catalog.json")
	data := []byte(`{"format_version":"1","packages":` + packagesJSON + `}`)
	require.NoError(t, os.WriteFile(path, data, fsutil.FileModeDefault))
	m := catalog.NewManager([]catalog.Source{{Name: "main", Path: path}})
	require.NoError(t, m.Load())
	return m
}

type testEnv struct {
	mgr *ManagerImpl
	dl  *dlmocks.MockManager
	db  *database.InstalledManagerImpl
}

func newTestEnv(t *testing.T, packagesJSON string) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	cat := writeCatalog(t, dir, packagesJSON)
	dl := dlmocks.NewMockManager(ctrl)
	db := database.NewInstalledDatabase()

	mgr := NewManager(cat, dl, db, hook.NewTengoExecutor(),
		filepath.Join(dir, "cache"),
		filepath.Join(dir, "installed"),
		filepath.Join(dir, "state", "installed.json"),
		testConcurrency)
	return &testEnv{mgr: mgr, dl: dl, db: db}
}

const testConcurrency = 3

// expectFetch serves the given archive paths and simulates byte progress.
func (e *testEnv) expectFetch(archives map[string]string) {
	e.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, items []download.Item, opts download.Options) (map[string]string, error) {
			out := make(map[string]string, len(items))
			for _, it := range items {
				if opts.OnProgress != nil {
					opts.OnProgress(it.ID, it.Size/2, it.Size)
					opts.OnProgress(it.ID, it.Size, it.Size)
				}
				out[it.ID] = archives[it.ID]
			}
			return out, nil
		},
	).Times(1)
}

func TestInstallBucket_SinglePackage(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		map[string]string{"bin/vim": "#!/bin/vim"}, "")
	env.expectFetch(map[string]string{"vim": archive})

	var events []model.BackendEvent
	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, func(ev model.BackendEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.True(t, env.db.IsPackageInstalled("vim"))

	state, err := env.mgr.Lookup("vim")
	require.NoError(t, err)
	assert.True(t, state.Installed)
	assert.Equal(t, "9.1.0", state.Version)

	// fetch events come before install events, never after
	sawInstall := false
	for _, ev := range events {
		if ev.Kind == model.EventInstall {
			sawInstall = true
		} else if sawInstall {
			t.Fatalf("fetch event after install events: %+v", events)
		}
	}
	assert.True(t, sawInstall)
}

func TestInstallBucket_UnpacksPayload(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		map[string]string{"bin/vim": "#!/bin/vim", "share/doc.txt": "docs"}, "")
	env.expectFetch(map[string]string{"vim": archive})

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil))

	data, err := os.ReadFile(filepath.Join(env.mgr.installDir, "vim", "bin", "vim"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/vim", string(data))

	pkg := env.db.FindPackage("vim")
	require.NotNil(t, pkg)
	assert.ElementsMatch(t, []string{filepath.Join("bin", "vim"), filepath.Join("share", "doc.txt")}, pkg.Files)
}

func TestInstallBucket_DependencyClosure(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"editor","version":"1.0.0","url":"https://ex/editor.tar.gz","size":50,
     "dependencies":[{"name":"libtext"}]},
    {"name":"libtext","version":"2.0.0","url":"https://ex/libtext.tar.gz","size":50}
  ]`)
	dir := t.TempDir()
	env.expectFetch(map[string]string{
		"editor":  buildArchive(t, dir, Metadata{Name: "editor", Version: "1.0.0"}, nil, ""),
		"libtext": buildArchive(t, dir, Metadata{Name: "libtext", Version: "2.0.0"}, nil, ""),
	})

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"editor"}, nil))

	assert.True(t, env.db.IsPackageInstalled("editor"))
	assert.True(t, env.db.IsPackageInstalled("libtext"))
}

func TestInstallBucket_AlreadyInstalledIsNoop(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	env.db.AddPackage(&model.InstalledPackage{Name: "vim", Version: "9.1.0"})

	// no FetchAll expected
	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil)
	assert.NoError(t, err)
}

func TestInstallBucket_MixedSatisfiedAndMissing(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"git","version":"2.45.0","url":"https://ex/git.tar.gz","size":100},
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	env.db.AddPackage(&model.InstalledPackage{Name: "git", Version: "2.45.0"})

	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"}, nil, "")
	env.expectFetch(map[string]string{"vim": archive})

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"git", "vim"}, nil))

	state, err := env.mgr.Lookup("vim")
	require.NoError(t, err)
	assert.True(t, state.Installed)
}

func TestInstallBucket_UnknownPackage(t *testing.T) {
	env := newTestEnv(t, `[]`)

	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"ghost"}, nil)
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
	assert.False(t, env.db.IsPackageInstalled("ghost"))
}

func TestInstallBucket_ConflictInstallsRest(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"postfix","version":"1.0.0","url":"https://ex/postfix.tar.gz","size":50},
    {"name":"sendmail","version":"1.0.0","url":"https://ex/sendmail.tar.gz","size":50,
     "conflicts":["postfix"]}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "postfix", Version: "1.0.0"}, nil, "")
	env.expectFetch(map[string]string{"postfix": archive})

	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"postfix", "sendmail"}, nil)
	assert.ErrorIs(t, err, errors.ErrPackageConflict)

	assert.True(t, env.db.IsPackageInstalled("postfix"))
	assert.False(t, env.db.IsPackageInstalled("sendmail"))
}

func TestInstallBucket_MetadataMismatch(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "8.0.0"}, nil, "")
	env.expectFetch(map[string]string{"vim": archive})

	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil)
	assert.ErrorIs(t, err, errors.ErrPackageInvalid)
	assert.False(t, env.db.IsPackageInstalled("vim"))
}

func TestInstallBucket_PostInstallHook(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		nil, `
err := ""
if packageName != "vim" {
	err = "wrong package"
}
`)
	env.expectFetch(map[string]string{"vim": archive})

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil))
	assert.True(t, env.db.IsPackageInstalled("vim"))
}

func TestInstallBucket_PreInstallHookRunsBeforeUnpack(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchiveWithHooks(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		map[string]string{"bin/vim": "#!/bin/vim"},
		map[string]string{preInstallScript: `
err := ""
if packageVersion != "9.1.0" {
	err = "wrong version"
}
`})
	env.expectFetch(map[string]string{"vim": archive})

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil))
	assert.True(t, env.db.IsPackageInstalled("vim"))
}

func TestInstallBucket_FailingPreInstallSkipsUnpack(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchiveWithHooks(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		map[string]string{"bin/vim": "#!/bin/vim"},
		map[string]string{preInstallScript: `err := "refusing to install"`})
	env.expectFetch(map[string]string{"vim": archive})

	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHookScript)

	assert.False(t, env.db.IsPackageInstalled("vim"))
	_, statErr := os.Stat(filepath.Join(env.mgr.installDir, "vim", "bin", "vim"))
	assert.True(t, os.IsNotExist(statErr), "payload must not be unpacked when pre-install fails")
}

func TestInstallBucket_FailingHook(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"},
		nil, `err := "post-install exploded"`)
	env.expectFetch(map[string]string{"vim": archive})

	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHookScript)
	assert.False(t, env.db.IsPackageInstalled("vim"))
}

func TestInstallBucket_FetchProgressIsGlobal(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"a","version":"1.0.0","url":"https://ex/a.tar.gz","size":100},
    {"name":"b","version":"1.0.0","url":"https://ex/b.tar.gz","size":100}
  ]`)
	dir := t.TempDir()
	env.expectFetch(map[string]string{
		"a": buildArchive(t, dir, Metadata{Name: "a", Version: "1.0.0"}, nil, ""),
		"b": buildArchive(t, dir, Metadata{Name: "b", Version: "1.0.0"}, nil, ""),
	})

	var fetchTotals []int64
	var fetchCompleted []int64
	err := env.mgr.InstallBucket(context.Background(), model.Bucket{"a", "b"}, func(ev model.BackendEvent) {
		if ev.Kind == model.EventFetch {
			fetchTotals = append(fetchTotals, ev.Total)
			fetchCompleted = append(fetchCompleted, ev.Completed)
		}
	})
	require.NoError(t, err)

	require.NotEmpty(t, fetchTotals)
	for _, total := range fetchTotals {
		assert.Equal(t, int64(200), total, "fetch total spans the whole bucket")
	}
	assert.Equal(t, int64(200), fetchCompleted[len(fetchCompleted)-1])
}

func TestInstallBucket_PassesConfiguredConcurrency(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	archive := buildArchive(t, t.TempDir(), Metadata{Name: "vim", Version: "9.1.0"}, nil, "")

	env.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, items []download.Item, opts download.Options) (map[string]string, error) {
			assert.Equal(t, testConcurrency, opts.Concurrency)
			return map[string]string{items[0].ID: archive}, nil
		},
	).Times(1)

	require.NoError(t, env.mgr.InstallBucket(context.Background(), model.Bucket{"vim"}, nil))
}

func TestLookup_NotFound(t *testing.T) {
	env := newTestEnv(t, `[]`)
	_, err := env.mgr.Lookup("ghost")
	assert.ErrorIs(t, err, errors.ErrPackageNotFound)
}

func TestLookup_AvailableButNotInstalled(t *testing.T) {
	env := newTestEnv(t, `[
    {"name":"vim","version":"9.1.0","url":"https://ex/vim.tar.gz","size":100}
  ]`)
	state, err := env.mgr.Lookup("vim")
	require.NoError(t, err)
	assert.False(t, state.Installed)
	assert.Equal(t, "9.1.0", state.Version)
}
