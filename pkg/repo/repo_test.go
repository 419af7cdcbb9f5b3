//go:build unit || !integration

package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudbench-project/cloudbench/pkg/logger"
)

// initRepo creates a local repository with a single commit and returns its
// path and commit hash.
func initRepo(t *testing.T) (string, string) {
	t.Helper()

	path := t.TempDir()
	repository, err := git.PlainInit(path, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "README.md"), []byte("launcher"), 0o644))

	worktree, err := repository.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("README.md")
	require.NoError(t, err)

	hash, err := worktree.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "cloudbench",
			Email: "cloudbench@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return path, hash.String()
}

func TestCheckMissingClone(t *testing.T) {
	logger.ConfigureTestLogging(t)
	spec := Spec{
		URL:        "https://example.com/launcher.git",
		CommitHash: "cf411a9ede3b466677df8ee672bcc6c396e71e1a",
		Path:       filepath.Join(t.TempDir(), "launcher"),
	}

	ok, reason := spec.Check()
	assert.False(t, ok)
	assert.Contains(t, reason, "repository not found")
}

func TestCheckMatchingCommit(t *testing.T) {
	logger.ConfigureTestLogging(t)
	path, hash := initRepo(t)

	spec := Spec{URL: path, CommitHash: hash, Path: path}
	ok, reason := spec.Check()
	assert.True(t, ok, reason)
}

func TestCheckCommitMismatch(t *testing.T) {
	logger.ConfigureTestLogging(t)
	path, _ := initRepo(t)

	spec := Spec{
		URL:        path,
		CommitHash: "cf411a9ede3b466677df8ee672bcc6c396e71e1a",
		Path:       path,
	}
	ok, reason := spec.Check()
	assert.False(t, ok)
	assert.Contains(t, reason, "expected cf411a9e")
}

func TestCloneAndCheckout(t *testing.T) {
	logger.ConfigureTestLogging(t)
	source, hash := initRepo(t)
	target := filepath.Join(t.TempDir(), "clone")

	spec := Spec{URL: source, CommitHash: hash, Path: target}
	require.NoError(t, spec.Clone(context.Background()))

	ok, reason := spec.Check()
	assert.True(t, ok, reason)

	// Cloning over a valid clone is a no-op.
	require.NoError(t, spec.Clone(context.Background()))
}

func TestRemoveIdempotent(t *testing.T) {
	logger.ConfigureTestLogging(t)
	source, hash := initRepo(t)
	target := filepath.Join(t.TempDir(), "clone")

	spec := Spec{URL: source, CommitHash: hash, Path: target}
	require.NoError(t, spec.Clone(context.Background()))

	require.NoError(t, spec.Remove())
	ok, _ := spec.Check()
	assert.False(t, ok)

	require.NoError(t, spec.Remove(), "removing an absent clone succeeds")
}
