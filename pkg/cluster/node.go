package cluster

// NodeState is the operational state a scheduler reports for a node.
type NodeState string

const (
	NodeStateIdle      NodeState = "IDLE"
	NodeStateAllocated NodeState = "ALLOCATED"
	NodeStateDown      NodeState = "DOWN"
	NodeStateDrained   NodeState = "DRAINED"
	NodeStateUnknown   NodeState = "UNKNOWN"
)

// Node is a single cluster node as reported by the scheduler. Read-only to
// the install subsystem.
type Node struct {
	Name      string    `json:"name"`
	Partition string    `json:"partition"`
	State     NodeState `json:"state"`
}
