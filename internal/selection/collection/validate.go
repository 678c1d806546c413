package collection

import (
	"fmt"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// validate returns the reasons a node must be rejected from the final
// set. An empty slice means the node is dispatchable.
func validate(n *domain.Node) []string {
	var reasons []string

	if n.ID == "" {
		reasons = append(reasons, "missing id")
	}
	if n.Name == "" {
		reasons = append(reasons, "missing name")
	}
	if n.NodeType == "" {
		reasons = append(reasons, "missing node_type")
	}

	switch n.Status {
	case domain.NodeStatusUnreachable, domain.NodeStatusMaintenance:
		reasons = append(reasons, fmt.Sprintf("status %s", n.Status))
	}

	switch n.SyncStatus {
	case domain.SyncStatusOutOfSync, domain.SyncStatusUnknown:
		reasons = append(reasons, fmt.Sprintf("sync status %s", n.SyncStatus))
	}

	return reasons
}
