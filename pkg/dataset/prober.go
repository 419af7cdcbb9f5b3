package dataset

import (
	"context"
	"os"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
)

// FilesystemProber checks dataset presence through a filesystem every node
// shares. It ignores the node identity: on a shared mount each node sees the
// same tree, so one local stat answers for all of them.
type FilesystemProber struct{}

func NewFilesystemProber() *FilesystemProber {
	return &FilesystemProber{}
}

func (p *FilesystemProber) Probe(ctx context.Context, _ cluster.Node, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	// An empty directory means the dataset was never populated.
	return len(entries) > 0, nil
}

var _ Prober = (*FilesystemProber)(nil)
