package recovery

import (
	"math"
	"math/rand"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

const minDelay = 100 * time.Millisecond

// StrategyExhausted marks an attempt past the cap; no further retries run.
const StrategyExhausted = "exhausted"

// RetryPolicy computes backoff delays per attempt. Delays scale with the
// error classification: temporary errors back off less, intermittent ones
// more, critical failures the most.
type RetryPolicy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	Jitter            bool          `yaml:"jitter"`
}

// DefaultRetryPolicy returns sensible defaults for fleet dispatch:
// 1s, 2s, 4s capped at 30s over 3 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// NextAttempt computes the retry attempt record for a 1-indexed attempt
// number under the given classification.
func (p RetryPolicy) NextAttempt(attempt int, c domain.Classification) domain.RetryAttempt {
	a := domain.RetryAttempt{
		AttemptNumber: attempt,
		MaxAttempts:   p.MaxAttempts,
		BackoffFactor: p.BackoffMultiplier,
	}

	if attempt > p.MaxAttempts {
		a.RetryStrategy = StrategyExhausted
		return a
	}

	a.NextRetryDelay = p.delay(attempt, c)
	a.RetryStrategy = strategyLabel(attempt, c)
	return a
}

// delay = base × multiplier^(attempt-1), optionally jittered ±10%, scaled
// by classification, clamped to [100ms, MaxDelay].
func (p RetryPolicy) delay(attempt int, c domain.Classification) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))

	if p.Jitter {
		d *= 0.9 + 0.2*rand.Float64()
	}

	switch c.Category {
	case domain.CategoryTemporary:
		d *= 0.5
	case domain.CategoryIntermittent:
		d *= 1.5
	}
	if c.Severity == domain.SeverityCritical {
		d *= 2
	}

	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < float64(minDelay) {
		d = float64(minDelay)
	}
	return time.Duration(d)
}

// strategyLabel is attached for observability only, never behavior.
func strategyLabel(attempt int, c domain.Classification) string {
	if attempt == 1 {
		return "immediate_retry"
	}
	switch c.Category {
	case domain.CategoryTemporary:
		return "exponential_backoff"
	case domain.CategoryIntermittent:
		return "linear_backoff"
	}
	return "adaptive_retry"
}

// successProbability is the advisory estimate reported alongside results.
// Derived from category and severity; not a guarantee.
func successProbability(c domain.Classification) float64 {
	var p float64
	switch c.Category {
	case domain.CategoryTemporary:
		p = 0.8
	case domain.CategoryIntermittent:
		p = 0.6
	case domain.CategoryPermanent:
		p = 0.2
	default:
		p = 0.5
	}

	switch c.Severity {
	case domain.SeverityLow:
		p *= 1.1
	case domain.SeverityHigh:
		p *= 0.75
	case domain.SeverityCritical:
		p *= 0.5
	}

	if p > 0.95 {
		p = 0.95
	}
	return p
}
