package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/transport"
)

type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (o *orderRecorder) record(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, id)
}

func (o *orderRecorder) index(id string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, v := range o.order {
		if v == id {
			return i
		}
	}
	return -1
}

func staticLookup(nodes []*domain.Node) NodeLookup {
	return func(ctx context.Context, collectionID string) ([]*domain.Node, error) {
		return nodes, nil
	}
}

// recordingLookup notes when each batch resolves its collection, which
// happens at batch start.
func recordingLookup(rec *orderRecorder, nodes []*domain.Node) NodeLookup {
	return func(ctx context.Context, collectionID string) ([]*domain.Node, error) {
		rec.record(collectionID)
		return nodes, nil
	}
}

func batchWithDeps(id, collection string, deps ...string) *domain.BatchConfig {
	return &domain.BatchConfig{
		ID:         id,
		Collection: collection,
		Templates: []domain.CommandTemplate{
			{ID: "cmd", Body: "cmedit get ${node_id} lockState"},
		},
		DependsOn: deps,
	}
}

// =============================================================================
// DAG ordering
// =============================================================================

func TestScheduler_RespectsDependencies(t *testing.T) {
	rec := &orderRecorder{}
	lb := transport.NewLoopback()
	lb.Latency = 5 * time.Millisecond
	s := NewScheduler(newTestExecutor(lb, nil), recordingLookup(rec, testNodes("ERBS001")))

	batches := []*domain.BatchConfig{
		batchWithDeps("c", "col-c", "b"),
		batchWithDeps("a", "col-a"),
		batchWithDeps("b", "col-b", "a"),
	}

	results, err := s.Run(context.Background(), "run-1", batches)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	if rec.index("col-a") > rec.index("col-b") || rec.index("col-b") > rec.index("col-c") {
		t.Errorf("dependency order violated: %v", rec.order)
	}
}

func TestScheduler_IndependentBatchesBothRun(t *testing.T) {
	lb := transport.NewLoopback()
	s := NewScheduler(newTestExecutor(lb, nil), staticLookup(testNodes("ERBS001", "ERBS002")))

	results, err := s.Run(context.Background(), "run-1", []*domain.BatchConfig{
		batchWithDeps("a", "col-a"),
		batchWithDeps("b", "col-b"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"a", "b"} {
		res, ok := results[id]
		if !ok {
			t.Fatalf("no result for batch %s", id)
		}
		if res.Dispatched != 2 {
			t.Errorf("batch %s dispatched %d, want 2", id, res.Dispatched)
		}
	}
}

// =============================================================================
// Batch locking
// =============================================================================

// mockLocker denies the batches in the held set.
type mockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
	released []string
}

func (m *mockLocker) AcquireBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[batchID] {
		return false, nil
	}
	m.acquired = append(m.acquired, batchID)
	return true, nil
}

func (m *mockLocker) RefreshBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) error {
	return nil
}

func (m *mockLocker) ReleaseBatchLock(ctx context.Context, runID, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, batchID)
	return nil
}

func TestScheduler_SkipsBatchesLockedElsewhere(t *testing.T) {
	locker := &mockLocker{held: map[string]bool{"b": true}}
	lb := transport.NewLoopback()
	s := NewScheduler(newTestExecutor(lb, nil), staticLookup(testNodes("ERBS001"))).WithLocker(locker)

	results, err := s.Run(context.Background(), "run-1", []*domain.BatchConfig{
		batchWithDeps("a", "col-a"),
		batchWithDeps("b", "col-b"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := results["a"]; !ok {
		t.Error("unlocked batch did not run")
	}
	if _, ok := results["b"]; ok {
		t.Error("locked batch ran anyway")
	}
	if len(locker.released) != 1 || locker.released[0] != "a" {
		t.Errorf("released locks = %v, want [a]", locker.released)
	}
}

// =============================================================================
// DAG validation
// =============================================================================

func TestScheduler_RejectsUnknownDependency(t *testing.T) {
	s := NewScheduler(newTestExecutor(transport.NewLoopback(), nil), staticLookup(nil))

	_, err := s.Run(context.Background(), "run-1", []*domain.BatchConfig{
		batchWithDeps("a", "col-a", "ghost"),
	})
	if err == nil {
		t.Fatal("expected unknown-dependency error")
	}
}

func TestScheduler_RejectsCycle(t *testing.T) {
	s := NewScheduler(newTestExecutor(transport.NewLoopback(), nil), staticLookup(nil))

	_, err := s.Run(context.Background(), "run-1", []*domain.BatchConfig{
		batchWithDeps("a", "col-a", "b"),
		batchWithDeps("b", "col-b", "a"),
	})
	if err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestScheduler_RejectsDuplicateIDs(t *testing.T) {
	s := NewScheduler(newTestExecutor(transport.NewLoopback(), nil), staticLookup(nil))

	_, err := s.Run(context.Background(), "run-1", []*domain.BatchConfig{
		batchWithDeps("a", "col-a"),
		batchWithDeps("a", "col-a2"),
	})
	if err == nil {
		t.Fatal("expected duplicate-id error")
	}
}
