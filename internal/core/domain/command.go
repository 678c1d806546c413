package domain

import (
	"os"
	"time"
)

// CommandOptions carry flags the transport maps to vendor CLI switches.
type CommandOptions struct {
	Preview bool `yaml:"preview"`
	Force   bool `yaml:"force"`
	DryRun  bool `yaml:"dry_run"`
}

// Command is one configuration command issued against one node.
// Line is the rendered CLI text the transport ships to the node.
type Command struct {
	ID         string            `yaml:"id"         json:"id"`
	Type       string            `yaml:"type"       json:"type"`
	Target     string            `yaml:"target"     json:"target"`
	Line       string            `yaml:"line"       json:"line"`
	Parameters map[string]string `yaml:"parameters" json:"parameters,omitempty"`
	Options    CommandOptions    `yaml:"options"    json:"options"`
}

// CommandResult is what the transport returns for one execution.
type CommandResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// CommandTemplate renders into one command per target node. Body may
// reference ${node_id}, ${node_name} and any template parameter.
type CommandTemplate struct {
	ID         string            `yaml:"id"`
	Type       string            `yaml:"type"`
	Body       string            `yaml:"body"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
	Options    CommandOptions    `yaml:"options"`
}

// Render expands the template body for one node. ${node_id} and
// ${node_name} come from the node; every other reference comes from the
// template parameters. Unknown references expand to the empty string.
func (t CommandTemplate) Render(n *Node) string {
	return os.Expand(t.Body, func(key string) string {
		switch key {
		case "node_id":
			return n.ID
		case "node_name":
			return n.Name
		}
		return t.Parameters[key]
	})
}

// BatchConfig is one unit of the dispatch DAG: a collection of target
// nodes plus the templates to run against each of them. A batch starts
// only after every batch in DependsOn has completed.
type BatchConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Collection     string            `yaml:"collection"`
	Templates      []CommandTemplate `yaml:"templates"`
	DependsOn      []string          `yaml:"depends_on,omitempty"`
	Parallel       bool              `yaml:"parallel"`
	MaxConcurrency int               `yaml:"max_concurrency"`
	CommandTimeout time.Duration     `yaml:"command_timeout"`
}
