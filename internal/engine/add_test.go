package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bianoble/blend/internal/manifest"
	"github.com/bianoble/blend/internal/source"
)

const fakeHash = "1111111111111111111111111111111111111111"

// fakeResolver materializes a fixed file tree instead of cloning.
type fakeResolver struct {
	files          map[string]string
	hash           string
	materializeErr error
	revisionErr    error

	parent   string
	requests []source.RepoRef
	wc       *source.WorkingCopy
	disposed int
}

func newFakeResolver(t *testing.T, files map[string]string) *fakeResolver {
	return &fakeResolver{files: files, hash: fakeHash, parent: t.TempDir()}
}

func (f *fakeResolver) Materialize(ctx context.Context, ref source.RepoRef) (*source.WorkingCopy, error) {
	f.requests = append(f.requests, ref)
	if f.materializeErr != nil {
		return nil, f.materializeErr
	}
	dir, err := os.MkdirTemp(f.parent, "wc-*")
	if err != nil {
		return nil, err
	}
	for name, content := range f.files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return nil, err
		}
	}
	f.wc = &source.WorkingCopy{Dir: dir, Ref: ref}
	return f.wc, nil
}

func (f *fakeResolver) ResolvedRevision(ctx context.Context, wc *source.WorkingCopy) (string, error) {
	if f.revisionErr != nil {
		return "", f.revisionErr
	}
	return f.hash, nil
}

func (f *fakeResolver) Dispose(wc *source.WorkingCopy) error {
	f.disposed++
	return os.RemoveAll(wc.Dir)
}

func (f *fakeResolver) assertDisposed(t *testing.T) {
	t.Helper()
	assert.Equal(t, 1, f.disposed, "working copy must be disposed exactly once")
	if f.wc != nil {
		assert.NoDirExists(t, f.wc.Dir)
	}
}

func readManifest(t *testing.T, root string) *manifest.Manifest {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, manifest.FileName))
	require.NoError(t, err)
	m, err := manifest.Parse(data)
	require.NoError(t, err)
	return m
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func requireStep(t *testing.T, err error, step string) {
	t.Helper()
	require.Error(t, err)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr), "expected StepError, got %T: %v", err, err)
	assert.Equal(t, step, stepErr.Step)
}

func TestAddIntoEmptyProject(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{
		"libs/foo/a.txt":     "a",
		"libs/foo/sub/b.txt": "b",
		"other.txt":          "other",
	})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{
		Repo:       "https://example/repo#main",
		RemotePath: "libs/foo",
		LocalPath:  "vendor/foo",
	})
	require.NoError(t, err)

	require.Len(t, res.requests, 1)
	assert.Equal(t, source.RepoRef{URL: "https://example/repo", Ref: "main"}, res.requests[0])

	want := manifest.Dependency{
		Repo:       "https://example/repo",
		Hash:       fakeHash,
		RemotePath: "libs/foo",
		LocalPath:  "vendor/foo",
	}
	assert.True(t, result.Added)
	assert.Nil(t, result.Existing)
	assert.Equal(t, want, result.Dependency)

	m := readManifest(t, root)
	require.Len(t, m.Dependencies, 1)
	assert.Equal(t, want, m.Dependencies[0])
	assert.Empty(t, m.Name)
	assert.Nil(t, m.Hooks)

	assert.Equal(t, "a", readFile(t, filepath.Join(root, "vendor/foo/a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(root, "vendor/foo/sub/b.txt")))
	assert.NoFileExists(t, filepath.Join(root, "vendor/foo/other.txt"))
	assert.NoFileExists(t, filepath.Join(root, manifest.FileName+".lock"))

	res.assertDisposed(t)
}

func TestAddExistingLocalPathRefreshesFilesOnly(t *testing.T) {
	root := t.TempDir()
	existing := manifest.Dependency{
		Repo:       "https://example/repo",
		Hash:       "0000000000000000000000000000000000000000",
		RemotePath: "libs/foo",
		LocalPath:  "vendor/foo",
	}
	initial := &manifest.Manifest{
		Name:         "proj",
		Hooks:        &manifest.Hooks{PostInstall: "make"},
		Dependencies: []manifest.Dependency{existing},
	}
	require.NoError(t, manifest.NewStore(nil).Save(filepath.Join(root, manifest.FileName), initial))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor/foo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor/foo/a.txt"), []byte("stale"), 0644))

	res := newFakeResolver(t, map[string]string{"libs/foo/a.txt": "fresh"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{
		Repo:       "https://example/repo#main",
		RemotePath: "libs/foo",
		LocalPath:  "vendor/foo",
	})
	require.NoError(t, err)

	assert.False(t, result.Added)
	require.NotNil(t, result.Existing)
	assert.Equal(t, existing, *result.Existing)

	m := readManifest(t, root)
	assert.Equal(t, initial, m, "manifest must be unchanged")

	assert.Equal(t, "fresh", readFile(t, filepath.Join(root, "vendor/foo/a.txt")))
	res.assertDisposed(t)
}

func TestAddWithoutRefSkipsCheckout(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"x.txt": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x.txt", LocalPath: "x.txt"})
	require.NoError(t, err)

	require.Len(t, res.requests, 1)
	assert.Empty(t, res.requests[0].Ref)
	assert.Equal(t, "https://example/repo", result.Dependency.Repo)
	assert.Equal(t, fakeHash, result.Dependency.Hash)
}

func TestAddAppendsAfterExistingDependencies(t *testing.T) {
	root := t.TempDir()
	first := manifest.Dependency{Repo: "r", Hash: "h", RemotePath: "a", LocalPath: "a"}
	require.NoError(t, manifest.NewStore(nil).Save(filepath.Join(root, manifest.FileName), &manifest.Manifest{
		Description:  "keep me",
		Dependencies: []manifest.Dependency{first},
	}))

	res := newFakeResolver(t, map[string]string{"b": "b"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}
	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "b", LocalPath: "b"})
	require.NoError(t, err)

	m := readManifest(t, root)
	assert.Equal(t, "keep me", m.Description)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, first, m.Dependencies[0])
	assert.Equal(t, "b", m.Dependencies[1].LocalPath)
}

func TestAddSingleFile(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"src/util.js": "export {}"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{
		Repo:       "https://example/repo",
		RemotePath: "src/util.js",
		LocalPath:  "lib/util.js",
	})
	require.NoError(t, err)

	dest := filepath.Join(root, "lib", "util.js")
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "export {}", readFile(t, dest))
	assert.Equal(t, filepath.Base(dest), filepath.Base(result.Destination))
}

func TestAddWithoutLocalPathCopiesIntoProjectRoot(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{
		"libs/foo/a.txt":     "a",
		"libs/foo/sub/b.txt": "b",
	})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "libs/foo/"})
	require.NoError(t, err)

	assert.Equal(t, RootLocalPath, result.Dependency.LocalPath)
	assert.Equal(t, "libs/foo", result.Dependency.RemotePath)
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(root, "sub", "b.txt")))
	assert.NoDirExists(t, filepath.Join(root, "foo"))

	m := readManifest(t, root)
	require.Len(t, m.Dependencies, 1)
	assert.Equal(t, ".", m.Dependencies[0].LocalPath)
}

func TestAddIntoProjectRootKeepsLocalManifest(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{
		"blend.yml": "name: upstream\n",
		"a.txt":     "a",
	})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "."})
	require.NoError(t, err)
	require.NotNil(t, result.Upstream)
	assert.Equal(t, "upstream", result.Upstream.Name)

	m := readManifest(t, root)
	assert.Empty(t, m.Name)
	require.Len(t, m.Dependencies, 1)
	assert.Equal(t, RootLocalPath, m.Dependencies[0].LocalPath)
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "a.txt")))
}

func TestAddWithoutLocalPathIsKeyedOnProjectRoot(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	first, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/one", RemotePath: "a.txt"})
	require.NoError(t, err)
	assert.True(t, first.Added)
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "a.txt")))

	second, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/two", RemotePath: "b.txt", LocalPath: "./"})
	require.NoError(t, err)
	assert.False(t, second.Added)
	require.NotNil(t, second.Existing)
	assert.Equal(t, "https://example/one", second.Existing.Repo)
	assert.Len(t, readManifest(t, root).Dependencies, 1)
}

func TestAddNormalizesLocalPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, manifest.NewStore(nil).Save(filepath.Join(root, manifest.FileName), &manifest.Manifest{
		Dependencies: []manifest.Dependency{{Repo: "r", Hash: "h", RemotePath: "x", LocalPath: "vendor/foo"}},
	}))

	res := newFakeResolver(t, map[string]string{"x": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}
	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "./vendor/foo/"})
	require.NoError(t, err)

	assert.False(t, result.Added)
	assert.Len(t, readManifest(t, root).Dependencies, 1)
}

func TestAddDoesNotFollowSymlinksInDestination(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "foo"), 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "vendor", "foo", "sub")))

	res := newFakeResolver(t, map[string]string{"libs/foo/sub/evil.txt": "payload"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "libs/foo", LocalPath: "vendor/foo"})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))
	assert.Equal(t, "payload", readFile(t, filepath.Join(root, "vendor", "foo", "sub", "evil.txt")))
}

func TestAddWithIncompleteExistingEntry(t *testing.T) {
	root := t.TempDir()
	handEdited := "dependencies:\n  - repo: https://example/a\n    remote_path: a\n    local_path: vendor/a\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, manifest.FileName), []byte(handEdited), 0644))

	res := newFakeResolver(t, map[string]string{"b/x.txt": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/b", RemotePath: "b", LocalPath: "vendor/b"})
	require.NoError(t, err)
	assert.True(t, result.Added)

	m := readManifest(t, root)
	require.Len(t, m.Dependencies, 2)
	assert.Equal(t, manifest.Dependency{Repo: "https://example/a", RemotePath: "a", LocalPath: "vendor/a"}, m.Dependencies[0])
	assert.Equal(t, "vendor/b", m.Dependencies[1].LocalPath)
	assert.Equal(t, "x", readFile(t, filepath.Join(root, "vendor", "b", "x.txt")))
}

func TestAddRejectsEmptyRevision(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"x": "x"})
	res.hash = ""
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "x"})
	requireStep(t, err, StepValidate)
	assert.Contains(t, err.Error(), "'hash' is required")
	assert.NoFileExists(t, filepath.Join(root, manifest.FileName))
	res.assertDisposed(t)
}

func TestAddReportsUpstreamManifest(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{
		"libs/foo/blend.yml": "name: foo\ndescription: upstream lib\n",
		"libs/foo/a.txt":     "a",
	})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "libs/foo", LocalPath: "vendor/foo"})
	require.NoError(t, err)

	require.NotNil(t, result.Upstream)
	assert.Equal(t, "foo", result.Upstream.Name)

	m := readManifest(t, root)
	assert.Empty(t, m.Name, "upstream manifest must not be merged into the local one")
}

func TestAddMaterializeFailure(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, nil)
	res.materializeErr = errors.New("clone failed")
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "x"})
	requireStep(t, err, StepMaterialize)
	assert.Contains(t, err.Error(), "clone failed")

	assert.NoFileExists(t, filepath.Join(root, manifest.FileName))
	assert.Equal(t, 0, res.disposed)
}

func TestAddResolveFailure(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"x": "x"})
	res.revisionErr = errors.New("rev-parse failed")
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "x"})
	requireStep(t, err, StepResolve)

	assert.NoFileExists(t, filepath.Join(root, manifest.FileName))
	res.assertDisposed(t)
}

func TestAddMissingRemotePathFailsAtCopy(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"x": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "does-not-exist", LocalPath: "vendor/x"})
	requireStep(t, err, StepCopy)

	// The manifest is persisted before the copy is attempted.
	m := readManifest(t, root)
	require.Len(t, m.Dependencies, 1)
	assert.Equal(t, "vendor/x", m.Dependencies[0].LocalPath)
	assert.NoFileExists(t, filepath.Join(root, "vendor", "x"))

	res.assertDisposed(t)
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name string
		opts AddOptions
	}{
		{"empty repo", AddOptions{Repo: "", RemotePath: "x"}},
		{"ref only", AddOptions{Repo: "#main", RemotePath: "x"}},
		{"empty remote path", AddOptions{Repo: "https://example/repo", RemotePath: "  "}},
		{"local path escapes project", AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "../outside"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			res := newFakeResolver(t, map[string]string{"x": "x"})
			eng := &AddEngine{Resolver: res, ProjectRoot: root}

			_, err := eng.Add(context.Background(), tt.opts)
			requireStep(t, err, StepValidate)
			assert.Empty(t, res.requests, "nothing may be fetched for invalid input")
			assert.NoFileExists(t, filepath.Join(root, manifest.FileName))
		})
	}
}

func TestAddRemotePathEscapingWorkingCopy(t *testing.T) {
	root := t.TempDir()
	res := newFakeResolver(t, map[string]string{"x": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "../../etc/passwd", LocalPath: "passwd"})
	requireStep(t, err, StepValidate)
	assert.NoFileExists(t, filepath.Join(root, manifest.FileName))
	res.assertDisposed(t)
}

func TestAddLockedManifest(t *testing.T) {
	root := t.TempDir()
	lk, err := manifest.Lock(filepath.Join(root, manifest.FileName))
	require.NoError(t, err)
	defer func() { _ = lk.Unlock() }()

	res := newFakeResolver(t, map[string]string{"x": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	_, err = eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "x"})
	requireStep(t, err, StepLock)
	assert.True(t, errors.Is(err, manifest.ErrLocked))

	assert.NoFileExists(t, filepath.Join(root, "x"))
	res.assertDisposed(t)
}

func TestAddUnparsableManifestIsReplaced(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, manifest.FileName), []byte("{{invalid yaml"), 0644))

	res := newFakeResolver(t, map[string]string{"x": "x"})
	eng := &AddEngine{Resolver: res, ProjectRoot: root}

	result, err := eng.Add(context.Background(), AddOptions{Repo: "https://example/repo", RemotePath: "x", LocalPath: "x"})
	require.NoError(t, err)
	assert.True(t, result.Added)

	m := readManifest(t, root)
	require.Len(t, m.Dependencies, 1)
}

func TestStepErrorFormat(t *testing.T) {
	inner := errors.New("boom")
	err := &StepError{Step: StepCopy, Err: inner}
	assert.Equal(t, "copy: boom", err.Error())
	assert.True(t, errors.Is(err, inner))
}
