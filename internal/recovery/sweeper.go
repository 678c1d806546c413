package recovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/inventory"
	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// Sweeper periodically drains pending journal entries left behind by
// crashed or interrupted runs and pushes them back through the handler.
type Sweeper struct {
	journal    storage.JournalRepository
	inventory  inventory.Provider
	handler    *Handler
	strategies []domain.FallbackStrategy

	interval   time.Duration
	maxRetries int
	log        *slog.Logger
}

// NewSweeper creates a sweeper. interval defaults to one minute and
// maxRetries to 5 when zero.
func NewSweeper(journal storage.JournalRepository, inv inventory.Provider, handler *Handler, strategies []domain.FallbackStrategy, interval time.Duration, maxRetries int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Sweeper{
		journal:    journal,
		inventory:  inv,
		handler:    handler,
		strategies: strategies,
		interval:   interval,
		maxRetries: maxRetries,
		log:        slog.With("component", "sweeper"),
	}
}

// Start runs the sweep loop until the context ends.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("journal sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("journal sweeper stopped")
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("sweep failed", "error", err)
			}
		}
	}
}

// sweep processes pending entries one at a time until the journal is
// drained or the context ends.
func (s *Sweeper) sweep(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		entry, err := s.journal.GetNext(ctx)
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}

		if err := s.ProcessNext(ctx, entry); err != nil {
			return err
		}
	}

	count, err := s.journal.Count(ctx)
	if err == nil {
		metrics.JournalPending.Set(float64(count))
	}
	return nil
}

// ProcessNext re-runs recovery for one journal entry. Entries past the
// retry cap are marked ignored rather than looping forever.
func (s *Sweeper) ProcessNext(ctx context.Context, entry *domain.JournalEntry) error {
	if entry.RetryCount >= s.maxRetries {
		s.log.Warn("journal entry exceeded retry cap, ignoring",
			"id", entry.ID, "node", entry.NodeID, "retries", entry.RetryCount)
		return s.journal.Resolve(ctx, entry.ID, domain.JournalStatusIgnored)
	}

	node, err := s.lookupNode(ctx, entry.NodeID)
	if err != nil {
		s.log.Warn("journaled node no longer in inventory, ignoring",
			"id", entry.ID, "node", entry.NodeID)
		return s.journal.Resolve(ctx, entry.ID, domain.JournalStatusIgnored)
	}

	if err := s.journal.IncrementRetry(ctx, entry.ID); err != nil {
		return err
	}

	cmd := &domain.Command{ID: entry.CommandID, Line: entry.CommandLine}
	res := s.handler.Handle(ctx, node, cmd, errors.New(entry.Error), s.strategies)

	status := domain.JournalStatusUnrecovered
	if res.Outcome != domain.OutcomeUnrecovered {
		status = domain.JournalStatusRecovered
	}
	s.log.Info("swept journal entry",
		"id", entry.ID, "node", entry.NodeID, "outcome", res.Outcome)
	return s.journal.Resolve(ctx, entry.ID, status)
}

func (s *Sweeper) lookupNode(ctx context.Context, nodeID string) (*domain.Node, error) {
	nodes, err := s.inventory.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return nil, storage.ErrNotFound
}
