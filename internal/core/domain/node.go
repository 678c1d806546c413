package domain

import "time"

// NodeStatus is the operational state reported by the inventory.
type NodeStatus string

const (
	NodeStatusActive      NodeStatus = "active"
	NodeStatusStandby     NodeStatus = "standby"
	NodeStatusMaintenance NodeStatus = "maintenance"
	NodeStatusUnreachable NodeStatus = "unreachable"
	NodeStatusUnknown     NodeStatus = "unknown"
)

// SyncStatus is the configuration synchronization state of a node.
type SyncStatus string

const (
	SyncStatusSynchronized  SyncStatus = "synchronized"
	SyncStatusSynchronizing SyncStatus = "synchronizing"
	SyncStatusOutOfSync     SyncStatus = "out_of_sync"
	SyncStatusUnknown       SyncStatus = "unknown"
)

// Node is one network element from an inventory snapshot.
// Nodes are immutable during a collection-processing run; live status
// changes only arrive through an inventory refresh.
type Node struct {
	ID         string            `yaml:"id"          json:"id"`
	Name       string            `yaml:"name"        json:"name"`
	NodeType   string            `yaml:"node_type"   json:"node_type"`
	NEType     string            `yaml:"ne_type"     json:"ne_type"`
	Status     NodeStatus        `yaml:"status"      json:"status"`
	SyncStatus SyncStatus        `yaml:"sync_status" json:"sync_status"`
	Location   string            `yaml:"location"    json:"location"`
	Version    string            `yaml:"version"     json:"version"`
	Vendor     string            `yaml:"vendor"      json:"vendor"`
	Attributes map[string]string `yaml:"attributes"  json:"attributes,omitempty"`
	Metadata   NodeMetadata      `yaml:"-"           json:"metadata,omitempty"`
}

// NodeMetadata records provenance for one processing run.
type NodeMetadata struct {
	MatchedPattern string    `json:"matched_pattern,omitempty"`
	FilterTrace    []string  `json:"filter_trace,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at,omitempty"`
}

// Attribute resolves a named attribute against the node. Built-in field
// names are checked first; unknown keys fall through to the free-form
// attributes map.
func (n *Node) Attribute(key string) (string, bool) {
	switch key {
	case "id":
		return n.ID, true
	case "name":
		return n.Name, true
	case "node_type":
		return n.NodeType, true
	case "ne_type":
		return n.NEType, true
	case "status":
		return string(n.Status), true
	case "sync_status":
		return string(n.SyncStatus), true
	case "location":
		return n.Location, true
	case "version":
		return n.Version, true
	case "vendor":
		return n.Vendor, true
	}
	v, ok := n.Attributes[key]
	return v, ok
}

// AttributeMap flattens built-in fields and free-form attributes into a
// single map, used by expression-based predicates.
func (n *Node) AttributeMap() map[string]string {
	m := make(map[string]string, len(n.Attributes)+9)
	for k, v := range n.Attributes {
		m[k] = v
	}
	m["id"] = n.ID
	m["name"] = n.Name
	m["node_type"] = n.NodeType
	m["ne_type"] = n.NEType
	m["status"] = string(n.Status)
	m["sync_status"] = string(n.SyncStatus)
	m["location"] = n.Location
	m["version"] = n.Version
	m["vendor"] = n.Vendor
	return m
}

// Clone returns a copy with its own metadata, so that two concurrent
// collection runs never share provenance state.
func (n *Node) Clone() *Node {
	c := *n
	if n.Attributes != nil {
		c.Attributes = make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			c.Attributes[k] = v
		}
	}
	if n.Metadata.FilterTrace != nil {
		c.Metadata.FilterTrace = append([]string(nil), n.Metadata.FilterTrace...)
	}
	return &c
}
