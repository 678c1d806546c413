// Package inventory provides access to the fleet's node inventory.
package inventory

import (
	"context"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Provider returns all known nodes with current attributes. A snapshot is
// immutable from the engine's point of view; refreshes happen out-of-band.
type Provider interface {
	Snapshot(ctx context.Context) ([]*domain.Node, error)
}

// Static serves a fixed, in-memory snapshot. Used for file-based
// inventories and in tests.
type Static struct {
	nodes []*domain.Node
}

// NewStatic creates a provider over a fixed node list.
func NewStatic(nodes []*domain.Node) *Static {
	return &Static{nodes: nodes}
}

// Snapshot returns cloned nodes so that callers never mutate shared state.
func (s *Static) Snapshot(ctx context.Context) ([]*domain.Node, error) {
	out := make([]*domain.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	return out, nil
}
