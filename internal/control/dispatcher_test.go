package control

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/config"
	"github.com/vietddude/dispatcher/internal/core/domain"
)

func writeInventory(t *testing.T) string {
	t.Helper()
	content := `
nodes:
  - id: ERBS001
    name: ERBS001
    node_type: radio
    ne_type: ERBS
    status: active
    sync_status: synchronized
  - id: ERBS002
    name: ERBS002
    node_type: radio
    ne_type: ERBS
    status: active
    sync_status: out_of_sync
  - id: GNB001
    name: GNB001
    node_type: radio
    ne_type: GNB
    status: active
    sync_status: synchronized
`
	f, err := os.CreateTemp("", "inventory_*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	return f.Name()
}

func testConfig(t *testing.T) *config.AppConfig {
	return &config.AppConfig{
		Server:    config.ServerConfig{Port: 0},
		Transport: config.TransportConfig{Kind: "loopback"},
		Inventory: config.InventoryConfig{Source: "file", Path: writeInventory(t)},
		Recovery: config.RecoveryConfig{
			MaxAttempts:       2,
			BaseDelay:         1 * time.Millisecond,
			MaxDelay:          100 * time.Millisecond,
			BackoffMultiplier: 2.0,
			SweepInterval:     time.Hour,
			SweepMaxRetries:   3,
		},
		Collections: []domain.Collection{
			{
				ID:   "erbs-fleet",
				Name: "ERBS fleet",
				NodePatterns: []domain.NodePattern{
					{ID: "p1", Type: domain.PatternWildcard, Pattern: "ERBS*"},
				},
			},
		},
		Filters: []domain.ScopeFilter{
			{
				ID:   "only-synced",
				Type: "sync_status",
				Condition: domain.Condition{
					Attribute: "sync_status",
					Operator:  domain.OpEq,
					Value:     "synchronized",
				},
				Action:   domain.ActionInclude,
				Priority: 1,
			},
		},
		Batches: []domain.BatchConfig{
			{
				ID:         "unlock",
				Collection: "erbs-fleet",
				Templates: []domain.CommandTemplate{
					{ID: "unlock-cell", Body: "cmedit set ${node_id} lockState=UNLOCKED"},
				},
				Parallel:       true,
				MaxConcurrency: 2,
			},
		},
	}
}

func TestDispatcher_PlanResolvesCollection(t *testing.T) {
	d, err := NewDispatcher(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	defer d.Stop(context.Background())

	res, err := d.Plan(context.Background(), "erbs-fleet")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	// ERBS002 is out of sync and GNB001 doesn't match the pattern.
	if len(res.Nodes) != 1 || res.Nodes[0].ID != "ERBS001" {
		t.Fatalf("unexpected plan result: %+v", res.Nodes)
	}
}

func TestDispatcher_PlanUnknownCollection(t *testing.T) {
	d, err := NewDispatcher(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	defer d.Stop(context.Background())

	if _, err := d.Plan(context.Background(), "ghost"); err == nil {
		t.Fatal("expected unknown-collection error")
	}
}

func TestDispatcher_StartRunsBatches(t *testing.T) {
	d, err := NewDispatcher(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}
	defer d.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	pending, err := d.PendingJournal(context.Background())
	if err != nil {
		t.Fatalf("PendingJournal failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("unexpected pending journal entries: %v", pending)
	}
}

func TestDispatcher_RejectsBadPredicate(t *testing.T) {
	cfg := testConfig(t)
	cfg.Predicates = []config.PredicateConfig{
		{Name: "broken", Expression: "node.ne_type =="},
	}

	if _, err := NewDispatcher(context.Background(), cfg); err == nil {
		t.Fatal("expected predicate compile error")
	}
}
