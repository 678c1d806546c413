// Package perfmon provides point-in-time performance metrics for nodes,
// used by performance-type scope filters.
package perfmon

import (
	"context"
	"fmt"
	"sync"
)

// Metrics is one point-in-time performance sample for a node.
type Metrics struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	Throughput  float64 `json:"throughput"`
	Latency     float64 `json:"latency"`
	ErrorRate   float64 `json:"error_rate"`
}

// Value returns a named metric from the sample.
func (m *Metrics) Value(name string) (float64, error) {
	switch name {
	case "cpu_usage":
		return m.CPUUsage, nil
	case "memory_usage":
		return m.MemoryUsage, nil
	case "throughput":
		return m.Throughput, nil
	case "latency":
		return m.Latency, nil
	case "error_rate":
		return m.ErrorRate, nil
	}
	return 0, fmt.Errorf("unknown performance metric %q", name)
}

// Provider queries live performance metrics for a node.
type Provider interface {
	Metrics(ctx context.Context, nodeID string) (*Metrics, error)
}

// Static serves preloaded samples, for tests and offline planning.
type Static struct {
	mu      sync.RWMutex
	samples map[string]Metrics
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{samples: make(map[string]Metrics)}
}

// Set stores a sample for a node.
func (s *Static) Set(nodeID string, m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[nodeID] = m
}

// Metrics returns the stored sample for a node.
func (s *Static) Metrics(ctx context.Context, nodeID string) (*Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.samples[nodeID]
	if !ok {
		return nil, fmt.Errorf("no performance sample for node %s", nodeID)
	}
	return &m, nil
}
