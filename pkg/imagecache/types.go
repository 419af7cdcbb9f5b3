package imagecache

import (
	"context"
	"path/filepath"

	"github.com/cloudbench-project/cloudbench/pkg/install"
)

// Manager is the single source of truth for container-image presence and
// lifecycle against the shared cache. Strategies hold it as an injected
// collaborator so tests can replace it.
type Manager interface {
	// CacheLocally reports whether images are materialized into the shared
	// install path (true) or only consulted at their remote registry (false).
	CacheLocally() bool

	// InstallPath is the root of the shared cache.
	InstallPath() string

	// CheckImageExists reports whether the image is present: a valid local
	// cache file when caching locally, a reachable registry reference
	// otherwise. The failure message carries the backend error verbatim.
	CheckImageExists(ctx context.Context, imageURL, subdir, filename string) install.InstallStatusResult

	// EnsureImage idempotently materializes the cache artifact at
	// installPath/subdir/filename. Already-present valid artifacts are left
	// untouched.
	EnsureImage(ctx context.Context, imageURL, subdir, filename string) install.InstallStatusResult

	// EvictImage removes the cache artifact. Evicting an absent artifact
	// succeeds.
	EvictImage(subdir, filename string) install.InstallStatusResult
}

// ImagePath is the deterministic cache location for an artifact. Every
// manager operation and every strategy diagnostic derives the path from
// here so they can never disagree.
func ImagePath(installPath, subdir, filename string) string {
	return filepath.Join(installPath, subdir, filename)
}
