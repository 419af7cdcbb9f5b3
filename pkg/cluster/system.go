package cluster

import (
	"github.com/pkg/errors"
)

// System is a read-only view of the cluster consumed by install strategies:
// where shared artifacts live and which nodes make up each partition.
// Partition membership is ordered and fixed for the duration of a check.
type System struct {
	Name             string            `json:"name" mapstructure:"name"`
	InstallPath      string            `json:"install_path" mapstructure:"install_path"`
	OutputPath       string            `json:"output_path" mapstructure:"output_path"`
	DefaultPartition string            `json:"default_partition" mapstructure:"default_partition"`
	Partitions       map[string][]Node `json:"partitions" mapstructure:"partitions"`
}

// PartitionNodes returns the nodes of the named partition in their canonical
// order. An empty name selects the default partition.
func (s *System) PartitionNodes(name string) ([]Node, error) {
	if name == "" {
		name = s.DefaultPartition
	}
	nodes, ok := s.Partitions[name]
	if !ok {
		return nil, errors.Errorf("unknown partition %q in system %q", name, s.Name)
	}
	return nodes, nil
}

func (s *System) Validate() error {
	if s.InstallPath == "" {
		return errors.New("system install_path must be set")
	}
	if s.OutputPath == "" {
		return errors.New("system output_path must be set")
	}
	if s.DefaultPartition != "" {
		if _, ok := s.Partitions[s.DefaultPartition]; !ok {
			return errors.Errorf("default partition %q not present in partitions", s.DefaultPartition)
		}
	}
	return nil
}
