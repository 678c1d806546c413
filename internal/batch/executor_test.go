package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/transport"
	"github.com/vietddude/dispatcher/internal/recovery"
)

func fastPolicy() recovery.RetryPolicy {
	return recovery.RetryPolicy{
		MaxAttempts:       2,
		BaseDelay:         1 * time.Millisecond,
		MaxDelay:          200 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestExecutor(gateway transport.Executor, strategies []domain.FallbackStrategy) *Executor {
	execute := func(ctx context.Context, node *domain.Node, cmd *domain.Command) error {
		_, err := gateway.Execute(ctx, node, cmd)
		return err
	}
	handler := recovery.NewHandler(
		recovery.Config{Policy: fastPolicy()},
		recovery.DefaultProcedures(execute),
		recovery.NewFallbackRunner(execute, nil, nil, nil),
		nil, nil,
	)
	return NewExecutor(gateway, handler, nil, strategies)
}

func testNodes(ids ...string) []*domain.Node {
	nodes := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, &domain.Node{ID: id, Name: id, Status: domain.NodeStatusActive})
	}
	return nodes
}

func lockBatch(id string) *domain.BatchConfig {
	return &domain.BatchConfig{
		ID:         id,
		Collection: "fleet",
		Templates: []domain.CommandTemplate{
			{ID: "unlock", Body: "cmedit set ${node_id} lockState=UNLOCKED"},
		},
		Parallel:       true,
		MaxConcurrency: 4,
	}
}

// =============================================================================
// Happy path
// =============================================================================

func TestExecutor_AllSucceed(t *testing.T) {
	lb := transport.NewLoopback()
	e := newTestExecutor(lb, nil)

	res := e.Run(context.Background(), "run-1", lockBatch("b1"), testNodes("ERBS001", "ERBS002", "ERBS003"))

	if res.Dispatched != 3 || res.Succeeded != 3 {
		t.Fatalf("dispatched=%d succeeded=%d, want 3/3", res.Dispatched, res.Succeeded)
	}
	if len(res.Recoveries) != 0 {
		t.Errorf("unexpected recoveries: %v", res.Recoveries)
	}

	for _, ex := range lb.Executed() {
		if !strings.Contains(ex.Cmd.Line, ex.NodeID) {
			t.Errorf("template not rendered per node: %q for %s", ex.Cmd.Line, ex.NodeID)
		}
	}
}

func TestExecutor_RendersEveryTemplatePerNode(t *testing.T) {
	lb := transport.NewLoopback()
	e := newTestExecutor(lb, nil)

	b := lockBatch("b1")
	b.Templates = append(b.Templates, domain.CommandTemplate{
		ID: "audit", Body: "cmedit get ${node_id} lockState",
	})

	res := e.Run(context.Background(), "run-1", b, testNodes("ERBS001", "ERBS002"))

	if res.Dispatched != 4 {
		t.Fatalf("dispatched = %d, want 4", res.Dispatched)
	}
	if len(lb.Executed()) != 4 {
		t.Errorf("gateway saw %d commands", len(lb.Executed()))
	}
}

// =============================================================================
// Failure isolation
// =============================================================================

func TestExecutor_OneNodeFailingDoesNotAbortBatch(t *testing.T) {
	lb := transport.NewLoopback()
	lb.Fail = func(node *domain.Node, cmd *domain.Command) error {
		if node.ID == "ERBS002" {
			return errors.New("401 Unauthorized")
		}
		return nil
	}
	e := newTestExecutor(lb, nil)

	res := e.Run(context.Background(), "run-1", lockBatch("b1"), testNodes("ERBS001", "ERBS002", "ERBS003"))

	if res.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", res.Succeeded)
	}
	if res.Unrecovered != 1 {
		t.Errorf("unrecovered = %d, want 1", res.Unrecovered)
	}
	if len(res.Recoveries) != 1 || res.Recoveries[0].NodeID != "ERBS002" {
		t.Fatalf("unexpected recoveries %v", res.Recoveries)
	}
}

func TestExecutor_RecoveredFailureCountsAsRecovered(t *testing.T) {
	var failedOnce bool
	lb := transport.NewLoopback()
	lb.Fail = func(node *domain.Node, cmd *domain.Command) error {
		// First call fails, the retry succeeds.
		if !failedOnce {
			failedOnce = true
			return errors.New("request timed out")
		}
		return nil
	}
	e := newTestExecutor(lb, nil)

	b := lockBatch("b1")
	b.Parallel = false
	res := e.Run(context.Background(), "run-1", b, testNodes("ERBS001"))

	if res.RecoveredRetry != 1 {
		t.Fatalf("recovered_retry = %d, want 1 (%+v)", res.RecoveredRetry, res)
	}
	if res.Unrecovered != 0 {
		t.Errorf("unrecovered = %d", res.Unrecovered)
	}
}

func TestExecutor_FallbackSkipRecovers(t *testing.T) {
	lb := transport.NewLoopback()
	lb.Fail = func(node *domain.Node, cmd *domain.Command) error {
		return errors.New("401 Unauthorized") // permanent, never retried
	}
	e := newTestExecutor(lb, []domain.FallbackStrategy{
		{ID: "skip", Type: domain.FallbackSkip, Priority: 1},
	})

	res := e.Run(context.Background(), "run-1", lockBatch("b1"), testNodes("ERBS001"))

	if res.RecoveredFallback != 1 {
		t.Fatalf("recovered_fallback = %d (%+v)", res.RecoveredFallback, res)
	}
	if res.Recoveries[0].RecoveredBy != "skip" {
		t.Errorf("recovered by %q", res.Recoveries[0].RecoveredBy)
	}
}

// =============================================================================
// Timeouts
// =============================================================================

func TestExecutor_CommandTimeoutClassifiedAsTimeout(t *testing.T) {
	lb := transport.NewLoopback()
	lb.Latency = 500 * time.Millisecond
	e := newTestExecutor(lb, nil)

	b := lockBatch("b1")
	b.CommandTimeout = 50 * time.Millisecond
	res := e.Run(context.Background(), "run-1", b, testNodes("ERBS001"))

	if len(res.Recoveries) != 1 {
		t.Fatalf("expected one recovery, got %+v", res)
	}
	if res.Recoveries[0].Classification.Type != domain.ErrorNetworkTimeout {
		t.Errorf("classification = %s, want network_timeout", res.Recoveries[0].Classification.Type)
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestExecutor_SerialBatchRunsOneAtATime(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0

	lb := transport.NewLoopback()
	lb.Fail = func(node *domain.Node, cmd *domain.Command) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}
	e := newTestExecutor(lb, nil)

	b := lockBatch("b1")
	b.Parallel = false
	e.Run(context.Background(), "run-1", b, testNodes("A", "B", "C", "D"))

	if maxActive > 1 {
		t.Errorf("serial batch overlapped (max concurrent = %d)", maxActive)
	}
}
