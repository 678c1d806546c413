package domain

import "time"

// ErrorType is the classified failure kind of one command error.
type ErrorType string

const (
	ErrorNetworkTimeout   ErrorType = "network_timeout"
	ErrorAuthentication   ErrorType = "authentication_error"
	ErrorNetwork          ErrorType = "network_error"
	ErrorResourceNotFound ErrorType = "resource_not_found"
	ErrorSyncFailure      ErrorType = "sync_failure"
	ErrorConfiguration    ErrorType = "configuration_error"
	ErrorSystemOverload   ErrorType = "system_overload"
	ErrorUnknown          ErrorType = "unknown_error"
)

// ErrorCategory drives retryability when no explicit pattern matches.
type ErrorCategory string

const (
	CategoryTemporary    ErrorCategory = "temporary"
	CategoryIntermittent ErrorCategory = "intermittent"
	CategoryPermanent    ErrorCategory = "permanent"
)

// Severity grades the failure impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Classification is derived per failure and lives only for the handling
// of that one error, except where the retry history logs it.
type Classification struct {
	Type              ErrorType     `json:"type"`
	Category          ErrorCategory `json:"category"`
	Severity          Severity      `json:"severity"`
	RecommendedAction string        `json:"recommended_action"`
	Confidence        float64       `json:"confidence"`
}

// RetryAttempt is one entry of a command's retry history.
type RetryAttempt struct {
	AttemptNumber  int           `json:"attempt_number"`
	MaxAttempts    int           `json:"max_attempts"`
	NextRetryDelay time.Duration `json:"next_retry_delay"`
	RetryStrategy  string        `json:"retry_strategy"`
	BackoffFactor  float64       `json:"backoff_factor"`
}
