package collection

import (
	"context"
	"testing"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/selection/resolver"
	"github.com/vietddude/dispatcher/internal/selection/scope"
)

// =============================================================================
// Helpers
// =============================================================================

func newProcessor() *Processor {
	return New(resolver.New(nil), scope.New(nil))
}

func mkNode(id, neType string, status domain.NodeStatus, sync domain.SyncStatus) *domain.Node {
	return &domain.Node{
		ID:         id,
		Name:       id,
		NodeType:   "radio",
		NEType:     neType,
		Status:     status,
		SyncStatus: sync,
		Vendor:     "Ericsson",
	}
}

func inv() []*domain.Node {
	return []*domain.Node{
		mkNode("ERBS001", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("ERBS002", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("GNB001", "GNB", domain.NodeStatusActive, domain.SyncStatusSynchronized),
	}
}

func gotIDs(nodes []*domain.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func wildcard(id, pattern string) domain.NodePattern {
	return domain.NodePattern{ID: id, Type: domain.PatternWildcard, Pattern: pattern}
}

// =============================================================================
// End-to-end scenarios
// =============================================================================

func TestProcess_WildcardNoFilters(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "ERBS*")},
	}, nil, inv())

	got := gotIDs(res.Nodes)
	if len(got) != 2 || got[0] != "ERBS001" || got[1] != "ERBS002" {
		t.Fatalf("expected [ERBS001 ERBS002], got %v", got)
	}
	if res.Stats.Survivors != 2 || res.Stats.TotalCandidates != 2 {
		t.Errorf("bad stats: %+v", res.Stats)
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestProcess_ExcludeFilter(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "*")},
	}, []domain.ScopeFilter{
		{
			ID:   "no-gnb",
			Type: "ne_type",
			Condition: domain.Condition{
				Attribute: "ne_type", Operator: domain.OpEq, Value: "GNB",
			},
			Action: domain.ActionExclude,
		},
	}, []*domain.Node{
		mkNode("ERBS001", "ENB", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("GNB001", "GNB", domain.NodeStatusActive, domain.SyncStatusSynchronized),
	})

	got := gotIDs(res.Nodes)
	if len(got) != 1 || got[0] != "ERBS001" {
		t.Fatalf("expected [ERBS001], got %v", got)
	}
}

// =============================================================================
// Dedup
// =============================================================================

func TestProcess_DeduplicatesOverlappingPatterns(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{
		ID: "c1",
		NodePatterns: []domain.NodePattern{
			wildcard("p1", "ERBS*"),
			{ID: "p2", Type: domain.PatternList, Pattern: "ERBS001,GNB001"},
		},
	}, nil, inv())

	counts := make(map[string]int)
	for _, id := range gotIDs(res.Nodes) {
		counts[id]++
	}
	if counts["ERBS001"] != 1 {
		t.Errorf("ERBS001 must appear exactly once, got %d", counts["ERBS001"])
	}
	if res.Stats.TotalCandidates != 3 {
		t.Errorf("expected 3 candidates, got %d", res.Stats.TotalCandidates)
	}
}

func TestProcess_SkipsStructurallyDuplicatePatterns(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{
		ID: "c1",
		NodePatterns: []domain.NodePattern{
			wildcard("p1", "ERBS*"),
			wildcard("p2", "ERBS*"), // same type+string, different id
		},
	}, nil, inv())

	if res.Stats.PatternsApplied != 1 {
		t.Errorf("expected 1 pattern applied, got %d", res.Stats.PatternsApplied)
	}
}

// =============================================================================
// Filter actions
// =============================================================================

func TestProcess_FilterActionTruthTable(t *testing.T) {
	inventory := inv()
	filter := func(action domain.FilterAction) []domain.ScopeFilter {
		return []domain.ScopeFilter{{
			ID:   "f",
			Type: "ne_type",
			Condition: domain.Condition{
				Attribute: "ne_type", Operator: domain.OpEq, Value: "GNB",
			},
			Action: action,
		}}
	}
	col := domain.Collection{ID: "c1", NodePatterns: []domain.NodePattern{wildcard("p1", "*")}}
	p := newProcessor()

	include := p.Process(context.Background(), col, filter(domain.ActionInclude), inventory)
	if got := gotIDs(include.Nodes); len(got) != 1 || got[0] != "GNB001" {
		t.Errorf("include: expected [GNB001], got %v", got)
	}

	exclude := p.Process(context.Background(), col, filter(domain.ActionExclude), inventory)
	if got := gotIDs(exclude.Nodes); len(got) != 2 {
		t.Errorf("exclude: expected 2 nodes, got %v", got)
	}

	prioritize := p.Process(context.Background(), col, filter(domain.ActionPrioritize), inventory)
	if got := gotIDs(prioritize.Nodes); len(got) != 3 {
		t.Errorf("prioritize: expected all 3 nodes, got %v", got)
	}
}

func TestProcess_FiltersComposeInPriorityOrder(t *testing.T) {
	p := newProcessor()

	// Higher priority include runs first, then the exclude narrows it.
	filters := []domain.ScopeFilter{
		{
			ID: "drop-002", Type: "ne_type", Priority: 1,
			Condition: domain.Condition{Attribute: "id", Operator: domain.OpEq, Value: "ERBS002"},
			Action:    domain.ActionExclude,
		},
		{
			ID: "only-erbs", Type: "ne_type", Priority: 10,
			Condition: domain.Condition{Attribute: "ne_type", Operator: domain.OpEq, Value: "ERBS"},
			Action:    domain.ActionInclude,
		},
	}

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "*")},
	}, filters, inv())

	got := gotIDs(res.Nodes)
	if len(got) != 1 || got[0] != "ERBS001" {
		t.Fatalf("expected [ERBS001], got %v", got)
	}
	if len(res.Nodes[0].Metadata.FilterTrace) != 2 {
		t.Errorf("expected 2 trace entries, got %v", res.Nodes[0].Metadata.FilterTrace)
	}
}

// =============================================================================
// Ranking
// =============================================================================

func TestProcess_DeterministicRanking(t *testing.T) {
	p := newProcessor()
	inventory := []*domain.Node{
		mkNode("B-STANDBY", "ERBS", domain.NodeStatusStandby, domain.SyncStatusSynchronized),
		mkNode("A-SYNCING", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronizing),
		mkNode("Z-ACTIVE", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("A-ACTIVE", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("A-GNB", "GNB", domain.NodeStatusActive, domain.SyncStatusSynchronized),
	}

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "*")},
	}, nil, inventory)

	want := []string{"A-ACTIVE", "Z-ACTIVE", "A-GNB", "A-SYNCING", "B-STANDBY"}
	got := gotIDs(res.Nodes)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestProcess_ValidationRejects(t *testing.T) {
	p := newProcessor()
	inventory := []*domain.Node{
		mkNode("OK", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized),
		mkNode("UNREACH", "ERBS", domain.NodeStatusUnreachable, domain.SyncStatusSynchronized),
		mkNode("MAINT", "ERBS", domain.NodeStatusMaintenance, domain.SyncStatusSynchronized),
		mkNode("OOS", "ERBS", domain.NodeStatusActive, domain.SyncStatusOutOfSync),
		mkNode("UNKSYNC", "ERBS", domain.NodeStatusActive, domain.SyncStatusUnknown),
	}

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "*")},
	}, nil, inventory)

	got := gotIDs(res.Nodes)
	if len(got) != 1 || got[0] != "OK" {
		t.Fatalf("expected [OK], got %v", got)
	}
	if res.Stats.RemovedByValidation != 4 {
		t.Errorf("expected 4 removed by validation, got %d", res.Stats.RemovedByValidation)
	}
	for _, e := range res.Errors {
		if e.Critical {
			t.Errorf("validation errors must be non-fatal: %+v", e)
		}
		if e.Stage != "validation" {
			t.Errorf("unexpected stage: %+v", e)
		}
	}
}

func TestProcess_MissingRequiredFields(t *testing.T) {
	p := newProcessor()
	n := mkNode("NONAME", "ERBS", domain.NodeStatusActive, domain.SyncStatusSynchronized)
	n.Name = ""
	n.NodeType = ""

	res := p.Process(context.Background(), domain.Collection{
		ID:           "c1",
		NodePatterns: []domain.NodePattern{wildcard("p1", "*")},
	}, nil, []*domain.Node{n})

	if len(res.Nodes) != 0 {
		t.Errorf("expected node rejected, got %v", gotIDs(res.Nodes))
	}
}

// =============================================================================
// Structural failure
// =============================================================================

func TestProcess_StructuralFailureShortCircuits(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{ID: "c1"}, nil, inv())

	if len(res.Nodes) != 0 {
		t.Error("expected empty result")
	}
	if len(res.Errors) != 1 || !res.Errors[0].Critical {
		t.Fatalf("expected exactly one critical error, got %v", res.Errors)
	}
}

func TestProcess_PerPatternErrorsDoNotAbort(t *testing.T) {
	p := newProcessor()

	res := p.Process(context.Background(), domain.Collection{
		ID: "c1",
		NodePatterns: []domain.NodePattern{
			{ID: "bad", Type: domain.PatternRegex, Pattern: "[unclosed"},
			wildcard("good", "ERBS*"),
		},
	}, nil, inv())

	if len(res.Nodes) != 2 {
		t.Errorf("good pattern must still resolve, got %v", gotIDs(res.Nodes))
	}
	if len(res.Errors) != 1 || res.Errors[0].Critical {
		t.Errorf("expected one recoverable error, got %v", res.Errors)
	}
}
