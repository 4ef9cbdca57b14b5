package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/stepcache/stepcache/pkg/state"
)

// CloneOrUpdate ensures a local checkout of the repository at url and
// returns its path. Checkouts are cached under ~/.stepcache/sources so
// repeated builds of the same URL only fetch.
func CloneOrUpdate(url, ref string, logger *slog.Logger) (string, error) {
	dest := state.SourcePath(url)

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		return updateRepo(dest, ref, logger)
	}
	return cloneRepo(url, ref, dest, logger)
}

func cloneRepo(url, ref, dest string, logger *slog.Logger) (string, error) {
	logger.Info("cloning build source", "url", url)

	repo, err := git.PlainClone(dest, false, &git.CloneOptions{URL: url})
	if err != nil {
		return "", fmt.Errorf("cloning %s: %w", url, err)
	}

	if ref != "" {
		if err := checkoutRef(repo, ref); err != nil {
			return "", err
		}
	}
	return dest, nil
}

func updateRepo(dir, ref string, logger *slog.Logger) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("opening cached source %s: %w", dir, err)
	}

	logger.Debug("fetching build source", "dir", dir)
	if err := repo.Fetch(&git.FetchOptions{}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return "", fmt.Errorf("fetching: %w", err)
	}

	if ref != "" {
		if err := checkoutRef(repo, ref); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// checkoutRef checks out a branch, tag or commit. Remote-tracking names are
// tried first so "main" resolves to the freshly fetched origin/main rather
// than a stale local branch.
func checkoutRef(repo *git.Repository, ref string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision("origin/" + ref))
	if err != nil {
		hash, err = repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			return fmt.Errorf("resolving ref %q: %w", ref, err)
		}
	}

	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return fmt.Errorf("checking out %q: %w", ref, err)
	}
	return nil
}
