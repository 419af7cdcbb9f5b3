// Package imagetest implements the install strategy for workloads whose only
// artifact is a container image cached as a squash file under the shared
// install path, e.g. the NCCL and UCC benchmark suites.
package imagetest

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
	"github.com/cloudbench-project/cloudbench/pkg/imagecache"
	"github.com/cloudbench-project/cloudbench/pkg/install"
)

const (
	ncclWorkload = "NCCL"
	uccWorkload  = "UCC"

	ncclDefaultImageURL = "nvcr.io/nvidia/pytorch:24.02-py3"
	uccDefaultImageURL  = "nvcr.io/nvidia/pytorch:24.02-py3"
)

func init() { //nolint:gochecknoinits // strategy registration
	install.Register("nccl", func(system *cluster.System, envVars map[string]string, args install.Args) (install.Strategy, error) {
		return NewNCCLTest(system, envVars, args)
	})
	install.Register("ucc", func(system *cluster.System, envVars map[string]string, args install.Args) (install.Strategy, error) {
		return NewUCCTest(system, envVars, args)
	})
}

// Strategy is the image-only install strategy. The expected cache entry is
// installPath/<workload>-test/<workload>_test.sqsh.
type Strategy struct {
	system   *cluster.System
	envVars  map[string]string
	args     install.Args
	workload string
	stem     string
	imageURL string

	// CacheManager is the injected image-cache collaborator, replaceable in
	// tests.
	CacheManager imagecache.Manager
}

func NewNCCLTest(system *cluster.System, envVars map[string]string, args install.Args) (*Strategy, error) {
	return newStrategy(system, envVars, args, ncclWorkload, "nccl", ncclDefaultImageURL)
}

func NewUCCTest(system *cluster.System, envVars map[string]string, args install.Args) (*Strategy, error) {
	return newStrategy(system, envVars, args, uccWorkload, "ucc", uccDefaultImageURL)
}

func newStrategy(
	system *cluster.System,
	envVars map[string]string,
	args install.Args,
	workload, stem, defaultImageURL string,
) (*Strategy, error) {
	if system == nil {
		return nil, errors.New("system must not be nil")
	}
	if system.InstallPath == "" {
		return nil, errors.New("system install_path must be set")
	}
	return &Strategy{
		system:   system,
		envVars:  envVars,
		args:     args,
		workload: workload,
		stem:     stem,
		imageURL: args.GetDefault("docker_image_url", defaultImageURL),
		CacheManager: imagecache.NewDockerImageCacheManager(imagecache.DockerImageCacheManagerParams{
			InstallPath:  system.InstallPath,
			CacheLocally: args.GetDefault("cache_docker_images_locally", "true") == "true",
		}),
	}, nil
}

func (s *Strategy) InstallPath() string {
	return s.system.InstallPath
}

func (s *Strategy) subdir() string {
	return s.stem + "-test"
}

func (s *Strategy) filename() string {
	return s.stem + "_test.sqsh"
}

func (s *Strategy) IsInstalled(ctx context.Context) install.InstallStatusResult {
	result := s.CacheManager.CheckImageExists(ctx, s.imageURL, s.subdir(), s.filename())
	if result.Success {
		return result
	}

	if s.CacheManager.CacheLocally() {
		expectedPath := imagecache.ImagePath(s.CacheManager.InstallPath(), s.subdir(), s.filename())
		return install.Failf(
			"Docker image for %s test is not installed.\n"+
				"    - Expected path: %s.\n"+
				"    - Error: %s",
			s.workload, expectedPath, result.Message)
	}
	return install.Failf(
		"Docker image for %s test is not accessible.\n"+
			"    - Error: %s",
		s.workload, result.Message)
}

func (s *Strategy) Install(ctx context.Context) install.InstallStatusResult {
	result := s.CacheManager.CheckImageExists(ctx, s.imageURL, s.subdir(), s.filename())
	if result.Success {
		return result
	}
	return s.CacheManager.EnsureImage(ctx, s.imageURL, s.subdir(), s.filename())
}

func (s *Strategy) Uninstall(context.Context) install.InstallStatusResult {
	return s.CacheManager.EvictImage(s.subdir(), s.filename())
}

var _ install.Strategy = (*Strategy)(nil)
