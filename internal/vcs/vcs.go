// Package vcs reads and updates the git repository enclosing a scan root.
package vcs

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoRepository is returned by Commit when root is not inside a git
// repository
var ErrNoRepository = errors.New("not a git repository")

// fallbackAuthor signs commits when no user is configured
var fallbackAuthor = object.Signature{
	Name:  "gatestub",
	Email: "gatestub@localhost",
}

// CommitResult describes an auto-commit
type CommitResult struct {
	Hash  string // Empty when there was nothing to commit
	Files int    // Paths staged by the commit
}

// Clean reports whether no commit was made
func (r CommitResult) Clean() bool {
	return r.Hash == ""
}

// openWorktree opens the worktree enclosing root and its absolute path
func openWorktree(root string) (*git.Worktree, string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open worktree")
	}
	wtRoot, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to resolve worktree root")
	}
	return wt, wtRoot, nil
}

// Submodules returns the absolute paths of the submodules declared by the
// repository enclosing root. Outside a repository the set is empty.
func Submodules(root string) ([]string, error) {
	wt, wtRoot, err := openWorktree(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to open repository at %s", root)
	}

	subs, err := wt.Submodules()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read submodules")
	}

	paths := make([]string, 0, len(subs))
	for _, sub := range subs {
		cfg := sub.Config()
		if cfg == nil || cfg.Path == "" {
			continue
		}
		paths = append(paths, filepath.Join(wtRoot, filepath.FromSlash(cfg.Path)))
	}
	return paths, nil
}

// Commit stages paths and commits them with message. Paths outside the
// worktree are ignored. Nothing staged is not an error: the result is Clean.
func Commit(root string, paths []string, message string) (CommitResult, error) {
	wt, wtRoot, err := openWorktree(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return CommitResult{}, errors.Mark(errors.Newf("%s is not inside a git repository", root), ErrNoRepository)
		}
		return CommitResult{}, errors.Wrapf(err, "failed to open repository at %s", root)
	}

	var staged []string
	for _, p := range paths {
		rel, ok := relativeTo(wtRoot, p)
		if !ok {
			continue
		}
		if _, err := wt.Add(rel); err != nil {
			return CommitResult{}, errors.Wrapf(err, "failed to stage %s", rel)
		}
		staged = append(staged, rel)
	}
	if len(staged) == 0 {
		return CommitResult{}, nil
	}

	status, err := wt.Status()
	if err != nil {
		return CommitResult{}, errors.Wrap(err, "failed to read worktree status")
	}
	changed := 0
	for _, rel := range staged {
		fs, ok := status[rel]
		if !ok {
			continue
		}
		if fs.Staging != git.Unmodified && fs.Staging != git.Untracked {
			changed++
		}
	}
	if changed == 0 {
		return CommitResult{}, nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{})
	if errors.Is(err, git.ErrMissingAuthor) {
		author := fallbackAuthor
		author.When = time.Now()
		hash, err = wt.Commit(message, &git.CommitOptions{Author: &author})
	}
	if err != nil {
		return CommitResult{}, errors.Wrap(err, "failed to commit stubs")
	}

	return CommitResult{Hash: hash.String(), Files: changed}, nil
}

// relativeTo returns p relative to root as a slash path, and false when p is
// outside root
func relativeTo(root, p string) (string, bool) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
