package config

import (
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	redisclient "github.com/vietddude/dispatcher/internal/infra/redis"
	"github.com/vietddude/dispatcher/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Database    postgres.Config    `yaml:"database"`
	Redis       redisclient.Config `yaml:"redis"`
	Transport   TransportConfig    `yaml:"transport"`
	Notify      NotifyConfig       `yaml:"notify"`
	Inventory   InventoryConfig    `yaml:"inventory"`
	Recovery    RecoveryConfig     `yaml:"recovery"`
	Predicates  []PredicateConfig    `yaml:"predicates"`
	Collections []domain.Collection  `yaml:"collections"`
	Filters     []domain.ScopeFilter `yaml:"filters"`
	Batches     []domain.BatchConfig `yaml:"batches"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TransportConfig selects and tunes the command gateway.
type TransportConfig struct {
	Kind     string        `yaml:"kind"` // http, grpc, loopback
	Name     string        `yaml:"name"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NotifyConfig holds manual-intervention alert delivery settings.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"` // empty = log only
	Timeout    time.Duration `yaml:"timeout"`
}

// InventoryConfig selects the node inventory source.
type InventoryConfig struct {
	Source string `yaml:"source"` // file, database
	Path   string `yaml:"path"`   // for file source
}

// RecoveryConfig holds the error-recovery tuning knobs.
type RecoveryConfig struct {
	MaxAttempts          int                       `yaml:"max_attempts"`
	BaseDelay            time.Duration             `yaml:"base_delay"`
	MaxDelay             time.Duration             `yaml:"max_delay"`
	BackoffMultiplier    float64                   `yaml:"backoff_multiplier"`
	Jitter               bool                      `yaml:"jitter"`
	RetryablePatterns    []string                  `yaml:"retryable_patterns"`
	NonRetryablePatterns []string                  `yaml:"non_retryable_patterns"`
	SweepInterval        time.Duration             `yaml:"sweep_interval"`
	SweepMaxRetries      int                       `yaml:"sweep_max_retries"`
	FallbackStrategies   []domain.FallbackStrategy `yaml:"fallback_strategies"`
}

// PredicateConfig registers a named CEL predicate for custom filters.
type PredicateConfig struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}
