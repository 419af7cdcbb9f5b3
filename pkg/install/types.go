package install

import (
	"context"
	"fmt"
)

// InstallStatusResult is the universal outcome of every install-subsystem
// operation: a verdict plus a human-readable diagnostic. Message is empty
// only when Success is true and no extra diagnostic is useful.
type InstallStatusResult struct {
	Success bool
	Message string
}

func Ok() InstallStatusResult {
	return InstallStatusResult{Success: true}
}

func Okf(format string, args ...interface{}) InstallStatusResult {
	return InstallStatusResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func Failf(format string, args ...interface{}) InstallStatusResult {
	return InstallStatusResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// DatasetCheckResult aggregates per-node dataset presence probes.
// Success is true iff NodesWithoutDatasets is empty. The slice is ordered by
// the partition's canonical node order so messages are deterministic.
type DatasetCheckResult struct {
	Success              bool
	NodesWithoutDatasets []string
}

// Strategy answers, for one workload bound to one system view, whether its
// artifacts are present and installs or removes them idempotently. Strategies
// are created per invocation and hold no state across calls beyond injected
// collaborators.
type Strategy interface {
	IsInstalled(ctx context.Context) InstallStatusResult
	Install(ctx context.Context) InstallStatusResult
	Uninstall(ctx context.Context) InstallStatusResult

	// InstallPath is the shared directory artifacts are materialized under.
	InstallPath() string
}
