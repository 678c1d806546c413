package recovery

import (
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

func policyNoJitter() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	}
}

func TestNextAttempt_MonotonicDelays(t *testing.T) {
	p := policyNoJitter()
	p.MaxAttempts = 6
	c := domain.Classification{Category: domain.CategoryIntermittent, Severity: domain.SeverityMedium}

	var prev time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		a := p.NextAttempt(attempt, c)
		if a.NextRetryDelay < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, a.NextRetryDelay, prev)
		}
		if a.NextRetryDelay > p.MaxDelay {
			t.Fatalf("delay %v exceeds max %v", a.NextRetryDelay, p.MaxDelay)
		}
		prev = a.NextRetryDelay
	}
}

func TestNextAttempt_CategoryScaling(t *testing.T) {
	p := policyNoJitter()

	temp := p.NextAttempt(2, domain.Classification{Category: domain.CategoryTemporary})
	inter := p.NextAttempt(2, domain.Classification{Category: domain.CategoryIntermittent})

	// base×2 scaled ×0.5 = 1s vs base×2 scaled ×1.5 = 3s
	if temp.NextRetryDelay != 1*time.Second {
		t.Errorf("temporary delay = %v, want 1s", temp.NextRetryDelay)
	}
	if inter.NextRetryDelay != 3*time.Second {
		t.Errorf("intermittent delay = %v, want 3s", inter.NextRetryDelay)
	}
}

func TestNextAttempt_CriticalSeverityDoubles(t *testing.T) {
	p := policyNoJitter()

	normal := p.NextAttempt(2, domain.Classification{Severity: domain.SeverityMedium})
	critical := p.NextAttempt(2, domain.Classification{Severity: domain.SeverityCritical})

	if critical.NextRetryDelay != 2*normal.NextRetryDelay {
		t.Errorf("critical delay = %v, want %v", critical.NextRetryDelay, 2*normal.NextRetryDelay)
	}
}

func TestNextAttempt_ClampsToFloor(t *testing.T) {
	p := policyNoJitter()
	p.BaseDelay = 1 * time.Millisecond

	a := p.NextAttempt(1, domain.Classification{Category: domain.CategoryTemporary})
	if a.NextRetryDelay != minDelay {
		t.Errorf("expected floor %v, got %v", minDelay, a.NextRetryDelay)
	}
}

func TestNextAttempt_ClampsToMax(t *testing.T) {
	p := policyNoJitter()
	p.MaxDelay = 5 * time.Second

	a := p.NextAttempt(10, domain.Classification{Category: domain.CategoryIntermittent})
	if a.RetryStrategy != StrategyExhausted {
		t.Fatalf("expected exhausted past max attempts, got %q", a.RetryStrategy)
	}

	p.MaxAttempts = 10
	a = p.NextAttempt(10, domain.Classification{Category: domain.CategoryIntermittent})
	if a.NextRetryDelay != 5*time.Second {
		t.Errorf("expected clamp to 5s, got %v", a.NextRetryDelay)
	}
}

func TestNextAttempt_StrategyLabels(t *testing.T) {
	p := policyNoJitter()

	if a := p.NextAttempt(1, domain.Classification{Category: domain.CategoryTemporary}); a.RetryStrategy != "immediate_retry" {
		t.Errorf("attempt 1 label = %q", a.RetryStrategy)
	}
	if a := p.NextAttempt(2, domain.Classification{Category: domain.CategoryTemporary}); a.RetryStrategy != "exponential_backoff" {
		t.Errorf("temporary label = %q", a.RetryStrategy)
	}
	if a := p.NextAttempt(2, domain.Classification{Category: domain.CategoryIntermittent}); a.RetryStrategy != "linear_backoff" {
		t.Errorf("intermittent label = %q", a.RetryStrategy)
	}
	if a := p.NextAttempt(2, domain.Classification{Category: domain.CategoryPermanent}); a.RetryStrategy != "adaptive_retry" {
		t.Errorf("permanent label = %q", a.RetryStrategy)
	}
}

func TestNextAttempt_JitterStaysBounded(t *testing.T) {
	p := policyNoJitter()
	p.Jitter = true
	c := domain.Classification{Category: domain.CategoryIntermittent}

	for i := 0; i < 50; i++ {
		a := p.NextAttempt(2, c)
		// base×2 ×1.5 = 3s, jittered ±10%
		lo, hi := 2700*time.Millisecond, 3300*time.Millisecond
		if a.NextRetryDelay < lo || a.NextRetryDelay > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", a.NextRetryDelay, lo, hi)
		}
	}
}

func TestSuccessProbability_Advisory(t *testing.T) {
	temp := successProbability(domain.Classification{Category: domain.CategoryTemporary, Severity: domain.SeverityLow})
	perm := successProbability(domain.Classification{Category: domain.CategoryPermanent, Severity: domain.SeverityCritical})

	if temp <= perm {
		t.Errorf("temporary/low (%f) should beat permanent/critical (%f)", temp, perm)
	}
	if temp > 0.95 || perm < 0 {
		t.Errorf("probabilities out of range: %f, %f", temp, perm)
	}
}
