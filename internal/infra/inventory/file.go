package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

type inventoryFile struct {
	Nodes []*domain.Node `yaml:"nodes"`
}

// LoadFile reads a YAML inventory file into a static provider.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var f inventoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}

	for _, n := range f.Nodes {
		if n.Status == "" {
			n.Status = domain.NodeStatusUnknown
		}
		if n.SyncStatus == "" {
			n.SyncStatus = domain.SyncStatusUnknown
		}
	}

	return NewStatic(f.Nodes), nil
}
