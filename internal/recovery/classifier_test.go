package recovery

import (
	"testing"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

func TestClassify_RuleLibrary(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		errText  string
		wantType domain.ErrorType
		wantCat  domain.ErrorCategory
		wantSev  domain.Severity
	}{
		{"Connection refused", domain.ErrorNetwork, domain.CategoryIntermittent, domain.SeverityMedium},
		{"request timed out after 30s", domain.ErrorNetworkTimeout, domain.CategoryTemporary, domain.SeverityMedium},
		{"context deadline exceeded", domain.ErrorNetworkTimeout, domain.CategoryTemporary, domain.SeverityMedium},
		{"401 Unauthorized", domain.ErrorAuthentication, domain.CategoryPermanent, domain.SeverityHigh},
		{"permission denied for user", domain.ErrorAuthentication, domain.CategoryPermanent, domain.SeverityHigh},
		{"MO does not exist", domain.ErrorResourceNotFound, domain.CategoryPermanent, domain.SeverityMedium},
		{"node unreachable", domain.ErrorNetwork, domain.CategoryIntermittent, domain.SeverityMedium},
	}

	for _, tt := range tests {
		got := c.Classify(tt.errText)
		if got.Type != tt.wantType {
			t.Errorf("Classify(%q).Type = %s, want %s", tt.errText, got.Type, tt.wantType)
		}
		if got.Category != tt.wantCat {
			t.Errorf("Classify(%q).Category = %s, want %s", tt.errText, got.Category, tt.wantCat)
		}
		if got.Severity != tt.wantSev {
			t.Errorf("Classify(%q).Severity = %s, want %s", tt.errText, got.Severity, tt.wantSev)
		}
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	c := NewClassifier()

	// Mentions both timeout and connection; the timeout rule is ordered first.
	got := c.Classify("connection attempt timed out")
	if got.Type != domain.ErrorNetworkTimeout {
		t.Errorf("expected network_timeout, got %s", got.Type)
	}
}

func TestClassify_HeuristicDefault(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("some inexplicable platform hiccup")
	if got.Type != domain.ErrorUnknown {
		t.Errorf("expected unknown_error, got %s", got.Type)
	}
	if got.Category != domain.CategoryIntermittent || got.Severity != domain.SeverityMedium {
		t.Errorf("unexpected default classification: %+v", got)
	}
	if got.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", got.Confidence)
	}
}

func TestClassify_HeuristicKeywords(t *testing.T) {
	c := NewClassifier()

	if got := c.Classify("system overload, try later"); got.Type != domain.ErrorSystemOverload {
		t.Errorf("expected system_overload, got %s", got.Type)
	}
	if got := c.Classify("cm sync pending on node"); got.Type != domain.ErrorSyncFailure {
		t.Errorf("expected sync_failure, got %s", got.Type)
	}
	if got := c.Classify("malformed attribute specification"); got.Type != domain.ErrorConfiguration {
		t.Errorf("expected configuration_error, got %s", got.Type)
	}
}
