package install

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/cloudbench-project/cloudbench/pkg/cluster"
)

// Factory builds a strategy for one workload bound to a system view, an
// environment-variable mapping and a workload argument mapping.
type Factory func(system *cluster.System, envVars map[string]string, args Args) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a strategy factory available under a workload name.
// Names are case-insensitive. Registering the same name twice panics: that
// is a wiring bug, not a runtime condition.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := strings.ToLower(name)
	if _, dup := registry[key]; dup {
		panic("install: duplicate strategy registration for " + name)
	}
	registry[key] = factory
}

// NewStrategy constructs the registered strategy for a workload name.
func NewStrategy(name string, system *cluster.System, envVars map[string]string, args Args) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("no install strategy registered for workload %q (known: %s)",
			name, strings.Join(RegisteredWorkloads(), ", "))
	}
	return factory(system, envVars, args)
}

// RegisteredWorkloads lists known workload names, sorted.
func RegisteredWorkloads() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
