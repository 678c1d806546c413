package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// NodeLookup resolves the target node set for a batch's collection.
type NodeLookup func(ctx context.Context, collectionID string) ([]*domain.Node, error)

// Locker guards a batch against concurrent dispatch from another
// instance. Implemented by the redis client.
type Locker interface {
	AcquireBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) (bool, error)
	RefreshBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) error
	ReleaseBatchLock(ctx context.Context, runID, batchID string) error
}

// lockTTL must outlive one refresh interval with margin.
const (
	lockTTL     = 5 * time.Minute
	lockRefresh = 1 * time.Minute
)

// Scheduler runs a set of batches as a dependency DAG. Independent
// batches run concurrently; a batch starts only after every batch it
// depends on has finished.
type Scheduler struct {
	executor *Executor
	lookup   NodeLookup
	locker   Locker
	log      *slog.Logger
}

// NewScheduler creates a scheduler over one executor.
func NewScheduler(executor *Executor, lookup NodeLookup) *Scheduler {
	return &Scheduler{
		executor: executor,
		lookup:   lookup,
		log:      slog.With("component", "scheduler"),
	}
}

// WithLocker enables cross-instance batch locking.
func (s *Scheduler) WithLocker(l Locker) *Scheduler {
	s.locker = l
	return s
}

// Run executes the full DAG and returns per-batch results keyed by
// batch id. Unknown dependencies and cycles fail before anything runs.
func (s *Scheduler) Run(ctx context.Context, runID string, batches []*domain.BatchConfig) (map[string]*domain.BatchResult, error) {
	if err := validateDAG(batches); err != nil {
		return nil, err
	}

	// One done channel per batch; dependents wait on it.
	done := make(map[string]chan struct{}, len(batches))
	for _, b := range batches {
		done[b.ID] = make(chan struct{})
	}

	results := make(map[string]*domain.BatchResult, len(batches))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			defer close(done[b.ID])

			for _, dep := range b.DependsOn {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-done[dep]:
				}
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}

			release, ok, err := s.lockBatch(gctx, runID, b.ID)
			if err != nil {
				return fmt.Errorf("batch %s: lock: %w", b.ID, err)
			}
			if !ok {
				s.log.Warn("batch locked by another instance, skipping", "batch", b.ID)
				return nil
			}
			defer release()

			nodes, err := s.lookup(gctx, b.Collection)
			if err != nil {
				return fmt.Errorf("batch %s: resolve collection %s: %w", b.ID, b.Collection, err)
			}

			s.log.Info("batch started", "batch", b.ID, "nodes", len(nodes))
			res := s.executor.Run(gctx, runID, b, nodes)

			mu.Lock()
			results[b.ID] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// lockBatch claims one batch for this instance and keeps the lock
// refreshed until release is called. With no locker configured every
// claim succeeds.
func (s *Scheduler) lockBatch(ctx context.Context, runID, batchID string) (release func(), ok bool, err error) {
	if s.locker == nil {
		return func() {}, true, nil
	}

	ok, err = s.locker.AcquireBatchLock(ctx, runID, batchID, lockTTL)
	if err != nil || !ok {
		return nil, ok, err
	}

	refreshCtx, stop := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(lockRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := s.locker.RefreshBatchLock(refreshCtx, runID, batchID, lockTTL); err != nil {
					s.log.Warn("failed to refresh batch lock", "batch", batchID, "error", err)
				}
			}
		}
	}()

	release = func() {
		stop()
		if err := s.locker.ReleaseBatchLock(context.Background(), runID, batchID); err != nil {
			s.log.Warn("failed to release batch lock", "batch", batchID, "error", err)
		}
	}
	return release, true, nil
}

// validateDAG rejects unknown dependencies and cycles.
func validateDAG(batches []*domain.BatchConfig) error {
	byID := make(map[string]*domain.BatchConfig, len(batches))
	for _, b := range batches {
		if _, dup := byID[b.ID]; dup {
			return fmt.Errorf("duplicate batch id %q", b.ID)
		}
		byID[b.ID] = b
	}

	for _, b := range batches {
		for _, dep := range b.DependsOn {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("batch %q depends on unknown batch %q", b.ID, dep)
			}
		}
	}

	// Depth-first cycle check.
	const (
		unvisited = 0
		visiting  = 1
		finished  = 2
	)
	state := make(map[string]int, len(batches))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("dependency cycle through batch %q", id)
		case finished:
			return nil
		}
		state[id] = visiting
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = finished
		return nil
	}

	for _, b := range batches {
		if err := visit(b.ID); err != nil {
			return err
		}
	}
	return nil
}
