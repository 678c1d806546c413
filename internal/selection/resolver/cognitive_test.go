package resolver

import (
	"testing"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

func TestHeuristicScorer_SubstringHit(t *testing.T) {
	s := NewHeuristicScorer()
	n := testNode("ERBS001", "ERBS")

	if got := s.Score("erbs", n); got != 1.0 {
		t.Errorf("expected 1.0 for substring hit, got %f", got)
	}
}

func TestHeuristicScorer_Range(t *testing.T) {
	s := NewHeuristicScorer()
	n := testNode("ERBS001", "ERBS")

	for _, phrase := range []string{"", "erbs", "completely unrelated phrase", "gnb nodes in south"} {
		got := s.Score(phrase, n)
		if got < 0 || got > 1 {
			t.Errorf("score out of range for %q: %f", phrase, got)
		}
	}
}

func TestHeuristicScorer_PrefersCloserNames(t *testing.T) {
	s := NewHeuristicScorer()
	near := testNode("ERBS001", "ERBS")
	far := testNode("MSC077", "MSC")

	phrase := "erbs002"
	if s.Score(phrase, near) <= s.Score(phrase, far) {
		t.Error("expected closer node name to score higher")
	}
}

func TestResolve_Cognitive_Threshold(t *testing.T) {
	r := New(nil)

	nodes, errs := r.Resolve(domain.NodePattern{
		ID: "c1", Type: domain.PatternCognitive, Pattern: "ericsson radio",
	}, testInventory())

	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	// All test nodes carry vendor Ericsson and node type radio.
	if len(nodes) != 3 {
		t.Errorf("expected 3 nodes, got %v", ids(nodes))
	}
}

func TestResolve_Cognitive_NoMatch(t *testing.T) {
	r := New(nil)

	nodes, _ := r.Resolve(domain.NodePattern{
		ID: "c2", Type: domain.PatternCognitive, Pattern: "zzzzzz qqqqqq",
	}, testInventory())

	if len(nodes) != 0 {
		t.Errorf("expected no matches, got %v", ids(nodes))
	}
}
