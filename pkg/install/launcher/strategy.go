// Package launcher implements the install strategy for multi-stage launcher
// workloads that need a pinned repository clone, a cached container image,
// and shared datasets present on every node of the target partition.
package launcher

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
	"github.com/cloudbench-project/cloudbench/pkg/dataset"
	"github.com/cloudbench-project/cloudbench/pkg/imagecache"
	"github.com/cloudbench-project/cloudbench/pkg/install"
	"github.com/cloudbench-project/cloudbench/pkg/repo"
)

const (
	imageSubdir   = "nemo-launcher"
	imageFilename = "nemo_launcher.sqsh"
)

func init() { //nolint:gochecknoinits // strategy registration
	install.Register("nemo-launcher", func(system *cluster.System, envVars map[string]string, args install.Args) (install.Strategy, error) {
		return NewNeMoLauncher(system, envVars, args)
	})
}

// Strategy is the composite install strategy: repository + docker image +
// datasets. IsInstalled always evaluates all three components so a single
// pass yields a complete diagnostic.
type Strategy struct {
	system    *cluster.System
	envVars   map[string]string
	args      install.Args
	imageURL  string
	repoURL   string
	repoHash  string
	dataDir   string
	partition string

	// CacheManager and DatasetChecker are injected collaborators,
	// replaceable in tests.
	CacheManager   imagecache.Manager
	DatasetChecker *dataset.Checker
}

func NewNeMoLauncher(system *cluster.System, envVars map[string]string, args install.Args) (*Strategy, error) {
	if system == nil {
		return nil, errors.New("system must not be nil")
	}
	if err := system.Validate(); err != nil {
		return nil, err
	}
	if err := args.Require("repository_url", "repository_commit_hash", "docker_image_url", "data_dir"); err != nil {
		return nil, err
	}
	return &Strategy{
		system:    system,
		envVars:   envVars,
		args:      args,
		imageURL:  args.Get("docker_image_url"),
		repoURL:   args.Get("repository_url"),
		repoHash:  args.Get("repository_commit_hash"),
		dataDir:   args.Get("data_dir"),
		partition: system.DefaultPartition,
		CacheManager: imagecache.NewDockerImageCacheManager(imagecache.DockerImageCacheManagerParams{
			InstallPath:  system.InstallPath,
			CacheLocally: args.GetDefault("cache_docker_images_locally", "true") == "true",
		}),
		DatasetChecker: dataset.NewChecker(dataset.CheckerParams{
			Prober: dataset.NewFilesystemProber(),
		}),
	}, nil
}

func (s *Strategy) InstallPath() string {
	return s.system.InstallPath
}

func (s *Strategy) repoSpec() repo.Spec {
	return repo.Spec{
		URL:        s.repoURL,
		CommitHash: s.repoHash,
		Path:       filepath.Join(s.system.InstallPath, repoDirName(s.repoURL)),
	}
}

func repoDirName(rawURL string) string {
	return strings.TrimSuffix(path.Base(rawURL), ".git")
}

func (s *Strategy) IsInstalled(ctx context.Context) install.InstallStatusResult {
	nodes, err := s.system.PartitionNodes(s.partition)
	if err != nil {
		return install.Failf("failed to resolve partition: %s", err)
	}

	repoOK, repoReason := s.repoSpec().Check()
	imageResult := s.CacheManager.CheckImageExists(ctx, s.imageURL, imageSubdir, imageFilename)
	datasetResult, err := s.DatasetChecker.CheckOnNodes(ctx, nodes, s.dataDir)
	if err != nil {
		return install.Failf("failed to check datasets on nodes: %s", err)
	}

	if repoOK && imageResult.Success && datasetResult.Success {
		return install.Ok()
	}

	var b strings.Builder
	b.WriteString("The following components are missing:")
	if !repoOK {
		fmt.Fprintf(&b, "\n  - Repository at %s: %s", s.repoSpec().Path, repoReason)
	}
	if !imageResult.Success {
		if s.CacheManager.CacheLocally() {
			expectedPath := imagecache.ImagePath(s.CacheManager.InstallPath(), imageSubdir, imageFilename)
			fmt.Fprintf(&b, "\n  - Docker image at %s: %s", expectedPath, imageResult.Message)
		} else {
			fmt.Fprintf(&b, "\n  - Docker image %s: %s", s.imageURL, imageResult.Message)
		}
	}
	if !datasetResult.Success {
		fmt.Fprintf(&b, "\n  - Datasets not found at %s on nodes: %s",
			s.dataDir, strings.Join(datasetResult.NodesWithoutDatasets, ", "))
	}
	return install.Failf("%s", b.String())
}

// Install brings every missing component to an installed state, leaving
// already-installed components untouched. Datasets are externally managed:
// the strategy reports them when absent but never provisions them.
func (s *Strategy) Install(ctx context.Context) install.InstallStatusResult {
	var merr *multierror.Error

	spec := s.repoSpec()
	if ok, _ := spec.Check(); !ok {
		if err := spec.Clone(ctx); err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "Repository"))
		}
	}

	imageResult := s.CacheManager.CheckImageExists(ctx, s.imageURL, imageSubdir, imageFilename)
	if !imageResult.Success {
		if ensured := s.CacheManager.EnsureImage(ctx, s.imageURL, imageSubdir, imageFilename); !ensured.Success {
			merr = multierror.Append(merr, errors.Errorf("Docker image: %s", ensured.Message))
		}
	}

	nodes, err := s.system.PartitionNodes(s.partition)
	if err != nil {
		merr = multierror.Append(merr, err)
	} else {
		datasetResult, err := s.DatasetChecker.CheckOnNodes(ctx, nodes, s.dataDir)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrap(err, "Datasets"))
		} else if !datasetResult.Success {
			merr = multierror.Append(merr, errors.Errorf(
				"Datasets are not present at %s on nodes: %s; datasets are externally managed and must be provisioned before install",
				s.dataDir, strings.Join(datasetResult.NodesWithoutDatasets, ", ")))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return install.Failf("%s", err)
	}
	return install.Ok()
}

// Uninstall removes the components this strategy owns: the cached image and
// the repository clone under the install path. Shared datasets are never
// touched.
func (s *Strategy) Uninstall(context.Context) install.InstallStatusResult {
	var merr *multierror.Error

	if evicted := s.CacheManager.EvictImage(imageSubdir, imageFilename); !evicted.Success {
		merr = multierror.Append(merr, errors.Errorf("Docker image: %s", evicted.Message))
	}
	if err := s.repoSpec().Remove(); err != nil {
		merr = multierror.Append(merr, errors.Wrap(err, "Repository"))
	}

	if err := merr.ErrorOrNil(); err != nil {
		return install.Failf("%s", err)
	}
	return install.Ok()
}

var _ install.Strategy = (*Strategy)(nil)
