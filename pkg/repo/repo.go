package repo

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Spec pins a repository clone: where it lives, where it comes from, and the
// exact commit it must sit at.
type Spec struct {
	URL        string
	CommitHash string
	Path       string
}

// Check reports whether a clone exists at the expected path and is checked
// out at the pinned commit. The second return value is a diagnostic reason
// when the check fails.
func (s Spec) Check() (bool, string) {
	repository, err := git.PlainOpen(s.Path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, fmt.Sprintf("repository not found at %s", s.Path)
	}
	if err != nil {
		return false, fmt.Sprintf("failed to open repository at %s: %s", s.Path, err)
	}

	head, err := repository.Head()
	if err != nil {
		return false, fmt.Sprintf("failed to resolve HEAD of %s: %s", s.Path, err)
	}
	if head.Hash() != plumbing.NewHash(s.CommitHash) {
		return false, fmt.Sprintf("repository at %s is at commit %s, expected %s",
			s.Path, head.Hash(), s.CommitHash)
	}
	return true, ""
}

// Clone materializes the repository at the expected path and checks out the
// pinned commit. Cloning over an existing valid clone is a no-op.
func (s Spec) Clone(ctx context.Context) error {
	if ok, _ := s.Check(); ok {
		return nil
	}

	repository, err := git.PlainCloneContext(ctx, s.Path, false, &git.CloneOptions{
		URL: s.URL,
	})
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repository, err = git.PlainOpen(s.Path)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to clone %s into %s", s.URL, s.Path)
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return errors.Wrapf(err, "failed to open worktree of %s", s.Path)
	}
	err = worktree.Checkout(&git.CheckoutOptions{
		Hash: plumbing.NewHash(s.CommitHash),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to checkout commit %s in %s", s.CommitHash, s.Path)
	}

	log.Ctx(ctx).Info().
		Str("url", s.URL).
		Str("commit", s.CommitHash).
		Str("path", s.Path).
		Msg("cloned repository")
	return nil
}

// Remove deletes the clone. Removing an absent clone succeeds.
func (s Spec) Remove() error {
	err := os.RemoveAll(s.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to remove repository at %s", s.Path)
	}
	return nil
}
