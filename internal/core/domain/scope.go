package domain

// FilterAction decides what the caller does with a filter's partitions.
type FilterAction string

const (
	ActionInclude    FilterAction = "include"
	ActionExclude    FilterAction = "exclude"
	ActionPrioritize FilterAction = "prioritize"
)

// Operator compares an attribute value against a condition value.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpNotIn    Operator = "not_in"
	OpContains Operator = "contains"
	OpRegex    Operator = "regex"
)

// LogicalOperator combines child condition results.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "and"
	LogicalOr  LogicalOperator = "or"
	LogicalNot LogicalOperator = "not"
)

// Condition is one node of a typed condition tree. A leaf compares an
// attribute with Operator/Value; a composite combines Conditions with
// LogicalOperator.
type Condition struct {
	Attribute       string          `yaml:"attribute,omitempty"`
	Operator        Operator        `yaml:"operator,omitempty"`
	Value           interface{}     `yaml:"value,omitempty"`
	LogicalOperator LogicalOperator `yaml:"logical_operator,omitempty"`
	Conditions      []Condition     `yaml:"conditions,omitempty"`
}

// Composite reports whether the condition combines child conditions.
func (c Condition) Composite() bool {
	return len(c.Conditions) > 0
}

// ScopeFilter narrows or reorders a working node set. Type names the
// attribute domain (sync_status, ne_type, vendor, version, location,
// performance) or "custom" for registered predicates. Filters are applied
// highest Priority first.
type ScopeFilter struct {
	ID        string       `yaml:"id"`
	Type      string       `yaml:"type"`
	Condition Condition    `yaml:"condition"`
	Action    FilterAction `yaml:"action"`
	Priority  int          `yaml:"priority"`
}
