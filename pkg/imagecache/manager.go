package imagecache

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docker/distribution/reference"
	"github.com/docker/docker/api/types"
	dockerregistry "github.com/docker/docker/api/types/registry"
	dockerclient "github.com/docker/docker/client"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/cloudbench-project/cloudbench/pkg/install"
)

// DockerClient is the slice of the docker SDK the cache manager needs.
// *dockerclient.Client satisfies it.
type DockerClient interface {
	DistributionInspect(ctx context.Context, image, encodedRegistryAuth string) (dockerregistry.DistributionInspect, error)
	ImagePull(ctx context.Context, refStr string, options types.ImagePullOptions) (io.ReadCloser, error)
	ImageSave(ctx context.Context, imageIDs []string) (io.ReadCloser, error)
}

type DockerImageCacheManagerParams struct {
	InstallPath  string
	CacheLocally bool

	// Docker is optional; when nil a client is built from the environment on
	// first use.
	Docker DockerClient

	// HTTPClient is optional; used for image artifacts addressed by a direct
	// http(s) URL instead of a registry reference.
	HTTPClient *resty.Client
}

// DockerImageCacheManager resolves container-image presence against a shared
// filesystem cache, or against the remote registry when not caching locally.
type DockerImageCacheManager struct {
	installPath  string
	cacheLocally bool
	httpClient   *resty.Client

	// docker is built lazily so managers that only ever touch the local
	// cache never need a docker endpoint. Guarded by dockerOnce: EnsureImage
	// may be invoked concurrently for the same artifact.
	docker     DockerClient
	dockerErr  error
	dockerOnce sync.Once
}

func NewDockerImageCacheManager(params DockerImageCacheManagerParams) *DockerImageCacheManager {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = resty.New()
	}
	return &DockerImageCacheManager{
		installPath:  params.InstallPath,
		cacheLocally: params.CacheLocally,
		docker:       params.Docker,
		httpClient:   httpClient,
	}
}

func (m *DockerImageCacheManager) CacheLocally() bool {
	return m.cacheLocally
}

func (m *DockerImageCacheManager) InstallPath() string {
	return m.installPath
}

func (m *DockerImageCacheManager) CheckImageExists(
	ctx context.Context, imageURL, subdir, filename string,
) install.InstallStatusResult {
	if m.cacheLocally {
		return m.checkCachedFile(subdir, filename)
	}
	return m.checkRemoteImage(ctx, imageURL)
}

func (m *DockerImageCacheManager) checkCachedFile(subdir, filename string) install.InstallStatusResult {
	path := ImagePath(m.installPath, subdir, filename)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return install.Failf("Docker image not found")
	}
	if err != nil {
		return install.Failf("failed to stat cached image %s: %s", path, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return install.Failf("cached image %s is not a valid artifact", path)
	}
	return install.Ok()
}

func (m *DockerImageCacheManager) checkRemoteImage(ctx context.Context, imageURL string) install.InstallStatusResult {
	if isHTTPURL(imageURL) {
		return m.checkRemoteURL(ctx, imageURL)
	}

	ref, err := reference.ParseNormalizedNamed(imageURL)
	if err != nil {
		return install.Failf("invalid image reference %q: %s", imageURL, err)
	}

	docker, err := m.dockerClient()
	if err != nil {
		return install.Failf("%s", err)
	}

	dist, err := docker.DistributionInspect(ctx, ref.String(), "")
	if err != nil {
		return install.Failf("%s", err)
	}

	log.Ctx(ctx).Debug().
		Str("image", imageURL).
		Str("digest", dist.Descriptor.Digest.String()).
		Msg("image resolved at remote registry")
	return install.Ok()
}

func (m *DockerImageCacheManager) checkRemoteURL(ctx context.Context, imageURL string) install.InstallStatusResult {
	resp, err := m.httpClient.R().SetContext(ctx).Head(imageURL)
	if err != nil {
		return install.Failf("%s", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return install.Failf("non-200 response from URL (%s): %s", imageURL, resp.Status())
	}
	return install.Ok()
}

func (m *DockerImageCacheManager) EnsureImage(
	ctx context.Context, imageURL, subdir, filename string,
) install.InstallStatusResult {
	if !m.cacheLocally {
		// Nothing to materialize in remote mode; reachability is the whole
		// install state.
		return m.checkRemoteImage(ctx, imageURL)
	}

	if res := m.checkCachedFile(subdir, filename); res.Success {
		return res
	}

	path := ImagePath(m.installPath, subdir, filename)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return install.Failf("failed to create cache directory %s: %s", filepath.Dir(path), err)
	}

	tmpPath := path + "." + uuid.NewString() + ".part"
	if err := m.fetchToFile(ctx, imageURL, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return install.Failf("failed to cache image %s at %s: %s", imageURL, path, err)
	}

	// Rename-into-place keeps concurrent installs of the same artifact from
	// ever exposing a partial file.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return install.Failf("failed to move cached image into place at %s: %s", path, err)
	}

	log.Ctx(ctx).Info().Str("image", imageURL).Str("path", path).Msg("cached docker image")
	return install.Okf("Docker image cached at %s", path)
}

func (m *DockerImageCacheManager) EvictImage(subdir, filename string) install.InstallStatusResult {
	path := ImagePath(m.installPath, subdir, filename)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return install.Failf("failed to remove cached image %s: %s", path, err)
	}
	// Drop the per-workload directory if this was its last artifact.
	_ = os.Remove(filepath.Dir(path))
	return install.Ok()
}

func (m *DockerImageCacheManager) fetchToFile(ctx context.Context, imageURL, dest string) error {
	if isHTTPURL(imageURL) {
		return m.downloadURL(ctx, imageURL, dest)
	}
	return m.saveFromRegistry(ctx, imageURL, dest)
}

func (m *DockerImageCacheManager) downloadURL(ctx context.Context, rawURL, dest string) error {
	resp, err := m.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true). // stream the body to disk
		Get(rawURL)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", rawURL)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return errors.Errorf("non-200 response from URL (%s): %s", rawURL, resp.Status())
	}
	return writeStream(body, dest)
}

func (m *DockerImageCacheManager) saveFromRegistry(ctx context.Context, imageURL, dest string) error {
	ref, err := reference.ParseNormalizedNamed(imageURL)
	if err != nil {
		return errors.Wrapf(err, "invalid image reference %q", imageURL)
	}

	docker, err := m.dockerClient()
	if err != nil {
		return err
	}

	pullOutput, err := docker.ImagePull(ctx, ref.String(), types.ImagePullOptions{})
	if err != nil {
		return errors.Wrapf(err, "failed to pull %s", imageURL)
	}
	// The pull stream must be fully drained before the image is usable.
	_, err = io.Copy(io.Discard, pullOutput)
	pullOutput.Close()
	if err != nil {
		return errors.Wrapf(err, "failed to pull %s", imageURL)
	}

	saved, err := docker.ImageSave(ctx, []string{ref.String()})
	if err != nil {
		return errors.Wrapf(err, "failed to export %s", imageURL)
	}
	defer saved.Close()

	return writeStream(saved, dest)
}

func (m *DockerImageCacheManager) dockerClient() (DockerClient, error) {
	m.dockerOnce.Do(func() {
		if m.docker != nil {
			return
		}
		docker, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
		if err != nil {
			m.dockerErr = errors.Wrap(err, "failed to create docker client")
			return
		}
		m.docker = docker
	})
	return m.docker, m.dockerErr
}

func writeStream(r io.Reader, dest string) error {
	w, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dest)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to write %s", dest)
	}
	if err := w.Sync(); err != nil {
		w.Close()
		return errors.Wrapf(err, "failed to sync %s", dest)
	}
	return w.Close()
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Compile time interface check:
var _ Manager = (*DockerImageCacheManager)(nil)
