package vcs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSubmodules(t *testing.T) {
	dir, _ := initRepo(t)
	writeFile(t, filepath.Join(dir, ".gitmodules"), `[submodule "vendor/lib"]
	path = vendor/lib
	url = https://example.com/lib.git
[submodule "third_party"]
	path = third_party/pkg
	url = https://example.com/pkg.git
`)

	subs, err := Submodules(dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "vendor", "lib"),
		filepath.Join(dir, "third_party", "pkg"),
	}, subs)
}

func TestSubmodules_FromNestedDirectory(t *testing.T) {
	dir, _ := initRepo(t)
	writeFile(t, filepath.Join(dir, ".gitmodules"), "[submodule \"lib\"]\n\tpath = lib\n\turl = https://example.com/lib.git\n")
	nested := filepath.Join(dir, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	subs, err := Submodules(nested)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "lib")}, subs)
}

func TestSubmodules_NoGitmodules(t *testing.T) {
	dir, _ := initRepo(t)

	subs, err := Submodules(dir)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubmodules_NoRepository(t *testing.T) {
	subs, err := Submodules(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestCommit(t *testing.T) {
	dir, repo := initRepo(t)
	stub := filepath.Join(dir, "pkg", "__init__.pyi")
	writeFile(t, stub, "# Path: pkg/__init__.pyi\n__all__ = []\n")
	writeFile(t, filepath.Join(dir, "unrelated.txt"), "not staged")

	res, err := Commit(dir, []string{stub}, "Update dynamic gateway stubs")
	require.NoError(t, err)
	require.False(t, res.Clean())
	assert.Equal(t, 1, res.Files)

	commit, err := repo.CommitObject(plumbing.NewHash(res.Hash))
	require.NoError(t, err)
	assert.Equal(t, "Update dynamic gateway stubs", commit.Message)

	files, err := commit.Files()
	require.NoError(t, err)
	var names []string
	require.NoError(t, files.ForEach(func(f *object.File) error {
		names = append(names, f.Name)
		return nil
	}))
	assert.Equal(t, []string{"pkg/__init__.pyi"}, names)
}

func TestCommit_NothingChanged(t *testing.T) {
	dir, _ := initRepo(t)
	stub := filepath.Join(dir, "__init__.pyi")
	writeFile(t, stub, "__all__ = []\n")

	_, err := Commit(dir, []string{stub}, "first")
	require.NoError(t, err)

	res, err := Commit(dir, []string{stub}, "second")
	require.NoError(t, err)
	assert.True(t, res.Clean())
}

func TestCommit_PathsOutsideWorktree(t *testing.T) {
	dir, _ := initRepo(t)
	outside := filepath.Join(t.TempDir(), "__init__.pyi")
	writeFile(t, outside, "__all__ = []\n")

	res, err := Commit(dir, []string{outside}, "msg")
	require.NoError(t, err)
	assert.True(t, res.Clean())
}

func TestCommit_NoRepository(t *testing.T) {
	_, err := Commit(t.TempDir(), nil, "msg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRepository))
}

func TestRelativeTo(t *testing.T) {
	root := filepath.FromSlash("/repo")

	rel, ok := relativeTo(root, filepath.FromSlash("/repo/pkg/__init__.pyi"))
	assert.True(t, ok)
	assert.Equal(t, "pkg/__init__.pyi", rel)

	_, ok = relativeTo(root, filepath.FromSlash("/other/__init__.pyi"))
	assert.False(t, ok)

	_, ok = relativeTo(root, root)
	assert.False(t, ok)
}
