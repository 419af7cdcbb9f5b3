//go:build unit || !integration

package imagetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
	"github.com/cloudbench-project/cloudbench/pkg/install"
	"github.com/cloudbench-project/cloudbench/pkg/logger"
)

type fakeCacheManager struct {
	cacheLocally bool
	installPath  string
	checkResult  install.InstallStatusResult
	ensureResult install.InstallStatusResult
	evictResult  install.InstallStatusResult
	ensureCalls  int
}

func (f *fakeCacheManager) CacheLocally() bool   { return f.cacheLocally }
func (f *fakeCacheManager) InstallPath() string  { return f.installPath }
func (f *fakeCacheManager) CheckImageExists(context.Context, string, string, string) install.InstallStatusResult {
	return f.checkResult
}
func (f *fakeCacheManager) EnsureImage(context.Context, string, string, string) install.InstallStatusResult {
	f.ensureCalls++
	return f.ensureResult
}
func (f *fakeCacheManager) EvictImage(string, string) install.InstallStatusResult {
	return f.evictResult
}

type ImageTestStrategySuite struct {
	suite.Suite

	system *cluster.System
	cache  *fakeCacheManager
}

func TestImageTestStrategySuite(t *testing.T) {
	suite.Run(t, new(ImageTestStrategySuite))
}

func (s *ImageTestStrategySuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())

	installPath := filepath.Join(s.T().TempDir(), "install")
	s.system = &cluster.System{
		Name:             "TestSystem",
		InstallPath:      installPath,
		OutputPath:       filepath.Join(s.T().TempDir(), "output"),
		DefaultPartition: "main",
		Partitions: map[string][]cluster.Node{
			"main": {
				{Name: "node1", Partition: "main", State: cluster.NodeStateIdle},
				{Name: "node2", Partition: "main", State: cluster.NodeStateIdle},
				{Name: "node3", Partition: "main", State: cluster.NodeStateIdle},
				{Name: "node4", Partition: "main", State: cluster.NodeStateIdle},
			},
		},
	}
	s.cache = &fakeCacheManager{
		cacheLocally: true,
		installPath:  installPath,
		checkResult:  install.Failf("Docker image not found"),
		ensureResult: install.Ok(),
		evictResult:  install.Ok(),
	}
}

func (s *ImageTestStrategySuite) newNCCL() *Strategy {
	strategy, err := NewNCCLTest(s.system, map[string]string{}, install.Args{})
	s.Require().NoError(err)
	strategy.CacheManager = s.cache
	return strategy
}

func (s *ImageTestStrategySuite) newUCC() *Strategy {
	strategy, err := NewUCCTest(s.system, map[string]string{}, install.Args{})
	s.Require().NoError(err)
	strategy.CacheManager = s.cache
	return strategy
}

func (s *ImageTestStrategySuite) TestInstallPathAttribute() {
	strategy := s.newNCCL()
	s.Equal(s.system.InstallPath, strategy.InstallPath())
}

func (s *ImageTestStrategySuite) TestNCCLIsInstalledLocally() {
	expectedPath := filepath.Join(s.system.InstallPath, "nccl-test", "nccl_test.sqsh")

	result := s.newNCCL().IsInstalled(context.Background())

	s.False(result.Success)
	s.Equal(
		"Docker image for NCCL test is not installed.\n"+
			"    - Expected path: "+expectedPath+".\n"+
			"    - Error: Docker image not found",
		result.Message)
}

func (s *ImageTestStrategySuite) TestNCCLIsInstalledRemote() {
	s.cache.cacheLocally = false

	result := s.newNCCL().IsInstalled(context.Background())

	s.False(result.Success)
	s.Equal(
		"Docker image for NCCL test is not accessible.\n"+
			"    - Error: Docker image not found",
		result.Message)
}

func (s *ImageTestStrategySuite) TestUCCIsInstalledLocally() {
	expectedPath := filepath.Join(s.system.InstallPath, "ucc-test", "ucc_test.sqsh")

	result := s.newUCC().IsInstalled(context.Background())

	s.False(result.Success)
	s.Equal(
		"Docker image for UCC test is not installed.\n"+
			"    - Expected path: "+expectedPath+".\n"+
			"    - Error: Docker image not found",
		result.Message)
}

func (s *ImageTestStrategySuite) TestUCCIsInstalledRemote() {
	s.cache.cacheLocally = false

	result := s.newUCC().IsInstalled(context.Background())

	s.False(result.Success)
	s.Equal(
		"Docker image for UCC test is not accessible.\n"+
			"    - Error: Docker image not found",
		result.Message)
}

func (s *ImageTestStrategySuite) TestIsInstalledSuccess() {
	s.cache.checkResult = install.Ok()

	result := s.newNCCL().IsInstalled(context.Background())

	s.True(result.Success)
	s.Empty(result.Message)
}

func (s *ImageTestStrategySuite) TestInstallSkipsFetchWhenPresent() {
	s.cache.checkResult = install.Ok()

	result := s.newNCCL().Install(context.Background())

	s.True(result.Success)
	s.Zero(s.cache.ensureCalls, "a present image must never trigger the fetch path")
}

func (s *ImageTestStrategySuite) TestInstallFetchesWhenMissing() {
	result := s.newUCC().Install(context.Background())

	s.True(result.Success)
	s.Equal(1, s.cache.ensureCalls)
}

func (s *ImageTestStrategySuite) TestInstallSurfacesFetchFailure() {
	s.cache.ensureResult = install.Failf("failed to cache image: no space left on device")

	result := s.newNCCL().Install(context.Background())

	s.False(result.Success)
	s.Contains(result.Message, "no space left on device")
}

func (s *ImageTestStrategySuite) TestUninstallSuccess() {
	result := s.newNCCL().Uninstall(context.Background())

	s.True(result.Success)
}

func (s *ImageTestStrategySuite) TestConstructorValidatesSystem() {
	_, err := NewNCCLTest(nil, nil, install.Args{})
	s.Error(err)

	_, err = NewNCCLTest(&cluster.System{}, nil, install.Args{})
	s.Error(err, "install_path is required")
}
