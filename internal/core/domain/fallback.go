package domain

// FallbackType names a recovery strategy tried after retries are skipped
// or exhausted.
type FallbackType string

const (
	FallbackAlternativeCommand FallbackType = "alternative_command"
	FallbackDifferentTemplate  FallbackType = "different_template"
	FallbackManualIntervention FallbackType = "manual_intervention"
	FallbackSkip               FallbackType = "skip"
	FallbackRollback           FallbackType = "rollback"
)

// FallbackStrategy is one link of the fallback chain. Strategies are
// attempted in descending Priority order; TriggerConditions are string
// tags matched against the error text and classification.
type FallbackStrategy struct {
	ID                string            `yaml:"id"`
	Type              FallbackType      `yaml:"type"`
	TriggerConditions []string          `yaml:"trigger_conditions,omitempty"`
	Priority          int               `yaml:"priority"`
	Config            map[string]string `yaml:"config,omitempty"`
}
