// Package recovery classifies failed commands, retries them with adaptive
// backoff and walks a fallback-strategy chain when retries are skipped or
// exhausted.
package recovery

import (
	"regexp"
	"strings"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// classifierRule maps an error-message regex to a classification. Rules
// are ordered; first match wins.
type classifierRule struct {
	re *regexp.Regexp
	c  domain.Classification
}

// Classifier derives a classification from a command's error text.
type Classifier struct {
	rules []classifierRule
}

// NewClassifier builds the default rule library: timeout, authentication,
// connection/network, not-found.
func NewClassifier() *Classifier {
	return &Classifier{rules: []classifierRule{
		{
			re: regexp.MustCompile(`(?i)(timed?\s?out|timeout|deadline exceeded)`),
			c: domain.Classification{
				Type:              domain.ErrorNetworkTimeout,
				Category:          domain.CategoryTemporary,
				Severity:          domain.SeverityMedium,
				RecommendedAction: "retry_with_backoff",
				Confidence:        0.9,
			},
		},
		{
			re: regexp.MustCompile(`(?i)(authentication|unauthorized|permission denied|access denied|forbidden|invalid credentials)`),
			c: domain.Classification{
				Type:              domain.ErrorAuthentication,
				Category:          domain.CategoryPermanent,
				Severity:          domain.SeverityHigh,
				RecommendedAction: "refresh_credentials",
				Confidence:        0.9,
			},
		},
		{
			re: regexp.MustCompile(`(?i)(connection|network|unreachable|refused|reset by peer|broken pipe)`),
			c: domain.Classification{
				Type:              domain.ErrorNetwork,
				Category:          domain.CategoryIntermittent,
				Severity:          domain.SeverityMedium,
				RecommendedAction: "retry_with_backoff",
				Confidence:        0.85,
			},
		},
		{
			re: regexp.MustCompile(`(?i)(not found|does not exist|no such|unknown managed object)`),
			c: domain.Classification{
				Type:              domain.ErrorResourceNotFound,
				Category:          domain.CategoryPermanent,
				Severity:          domain.SeverityMedium,
				RecommendedAction: "verify_target",
				Confidence:        0.85,
			},
		},
	}}
}

// Classify matches the error text against the rule library; unmatched
// errors fall to the keyword heuristic default.
func (c *Classifier) Classify(errText string) domain.Classification {
	for _, rule := range c.rules {
		if rule.re.MatchString(errText) {
			return rule.c
		}
	}
	return heuristicClassify(errText)
}

// heuristicClassify is the best-effort default for errors no rule caught.
// Keyword checks only; confidence is capped accordingly.
func heuristicClassify(errText string) domain.Classification {
	lower := strings.ToLower(errText)

	switch {
	case strings.Contains(lower, "overload") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "busy"):
		return domain.Classification{
			Type:              domain.ErrorSystemOverload,
			Category:          domain.CategoryTemporary,
			Severity:          domain.SeverityHigh,
			RecommendedAction: "throttle_and_retry",
			Confidence:        0.6,
		}
	case strings.Contains(lower, "sync"):
		return domain.Classification{
			Type:              domain.ErrorSyncFailure,
			Category:          domain.CategoryIntermittent,
			Severity:          domain.SeverityMedium,
			RecommendedAction: "resync_node",
			Confidence:        0.6,
		}
	case strings.Contains(lower, "invalid") || strings.Contains(lower, "syntax") || strings.Contains(lower, "malformed"):
		return domain.Classification{
			Type:              domain.ErrorConfiguration,
			Category:          domain.CategoryPermanent,
			Severity:          domain.SeverityMedium,
			RecommendedAction: "review_command",
			Confidence:        0.6,
		}
	}

	return domain.Classification{
		Type:              domain.ErrorUnknown,
		Category:          domain.CategoryIntermittent,
		Severity:          domain.SeverityMedium,
		RecommendedAction: "manual_review",
		Confidence:        0.5,
	}
}
