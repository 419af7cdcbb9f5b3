package dataset

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
	"github.com/cloudbench-project/cloudbench/pkg/install"
)

// Prober answers whether a path is present and populated as seen from one
// node. A returned error means the node could not be reached, which the
// checker treats the same as the dataset being absent.
type Prober interface {
	Probe(ctx context.Context, node cluster.Node, path string) (bool, error)
}

const (
	DefaultNodeTimeout = 30 * time.Second
	DefaultParallelism = 16
)

type CheckerParams struct {
	Prober      Prober
	NodeTimeout time.Duration
	Parallelism int
}

// Checker determines whether a shared dataset directory is present on every
// node of a partition. Nodes are probed concurrently; each probe owns its own
// result slot so aggregation needs no locking.
type Checker struct {
	prober      Prober
	nodeTimeout time.Duration
	parallelism int
}

func NewChecker(params CheckerParams) *Checker {
	nodeTimeout := params.NodeTimeout
	if nodeTimeout <= 0 {
		nodeTimeout = DefaultNodeTimeout
	}
	parallelism := params.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Checker{
		prober:      params.Prober,
		nodeTimeout: nodeTimeout,
		parallelism: parallelism,
	}
}

// CheckOnNodes probes every node for datasetPath and aggregates into a single
// verdict. Unreachable and timed-out nodes are counted as missing the
// dataset. NodesWithoutDatasets follows the canonical node order regardless
// of probe completion order. A cancelled parent context aborts the check with
// an error rather than a partial result.
func (c *Checker) CheckOnNodes(
	ctx context.Context, nodes []cluster.Node, datasetPath string,
) (install.DatasetCheckResult, error) {
	present := make([]bool, len(nodes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.parallelism)
	for i, node := range nodes {
		i, node := i, node
		group.Go(func() error {
			probeCtx, cancel := context.WithTimeout(groupCtx, c.nodeTimeout)
			defer cancel()

			ok, err := c.prober.Probe(probeCtx, node, datasetPath)
			if err != nil {
				log.Ctx(ctx).Debug().
					Str("node", node.Name).
					Str("path", datasetPath).
					Err(err).
					Msg("dataset probe failed, counting node as missing dataset")
				return nil
			}
			present[i] = ok
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return install.DatasetCheckResult{}, errors.Wrap(err, "dataset check aborted")
	}

	var missing []string
	for i, node := range nodes {
		if !present[i] {
			missing = append(missing, node.Name)
		}
	}
	return install.DatasetCheckResult{
		Success:              len(missing) == 0,
		NodesWithoutDatasets: missing,
	}, nil
}
