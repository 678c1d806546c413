package domain

// PatternType selects how a pattern string is interpreted.
type PatternType string

const (
	PatternWildcard  PatternType = "wildcard"
	PatternRegex     PatternType = "regex"
	PatternList      PatternType = "list"
	PatternQuery     PatternType = "query"
	PatternCognitive PatternType = "cognitive"
)

// NodePattern selects nodes from an inventory snapshot. The pattern string
// is opaque to everything except the resolver; only the resolver interprets
// Type.
type NodePattern struct {
	ID         string        `yaml:"id"`
	Type       PatternType   `yaml:"type"`
	Pattern    string        `yaml:"pattern"`
	Inclusions []NodePattern `yaml:"inclusions,omitempty"`
	Exclusions []NodePattern `yaml:"exclusions,omitempty"`
	Priority   int           `yaml:"priority"`
}

// Key identifies a pattern structurally, for duplicate detection within
// one processing run.
func (p NodePattern) Key() string {
	return string(p.Type) + ":" + p.Pattern
}

// Collection is a named group of node patterns processed as one unit.
type Collection struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	NodePatterns []NodePattern `yaml:"patterns"`
	Filters      []ScopeFilter `yaml:"filters,omitempty"`
}
