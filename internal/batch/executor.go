// Package batch dispatches rendered commands to selected nodes, batch by
// batch, honoring the dependency DAG between batches.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/infra/transport"
	"github.com/vietddude/dispatcher/internal/metrics"
	"github.com/vietddude/dispatcher/internal/recovery"
)

// defaultCommandTimeout bounds one command when the batch doesn't set one.
const defaultCommandTimeout = 2 * time.Minute

// Executor runs one batch: renders each template per node, ships the
// command, and hands failures to the recovery handler.
type Executor struct {
	gateway transport.Executor
	handler *recovery.Handler
	audit   storage.AuditRepository

	strategies []domain.FallbackStrategy
	log        *slog.Logger
}

// NewExecutor creates a batch executor. audit may be nil.
func NewExecutor(gateway transport.Executor, handler *recovery.Handler, audit storage.AuditRepository, strategies []domain.FallbackStrategy) *Executor {
	return &Executor{
		gateway:    gateway,
		handler:    handler,
		audit:      audit,
		strategies: strategies,
		log:        slog.With("component", "batch"),
	}
}

// Run executes every (node, template) pair of one batch. Node failures
// never abort the batch; each is recovered or recorded independently.
func (e *Executor) Run(ctx context.Context, runID string, batch *domain.BatchConfig, nodes []*domain.Node) *domain.BatchResult {
	start := time.Now()
	result := &domain.BatchResult{BatchID: batch.ID}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if batch.Parallel {
		limit := batch.MaxConcurrency
		if limit <= 0 {
			limit = 10
		}
		g.SetLimit(limit)
	} else {
		g.SetLimit(1)
	}

	for _, node := range nodes {
		node := node
		g.Go(func() error {
			for _, tpl := range batch.Templates {
				rec := e.dispatchOne(gctx, runID, batch, node, tpl)

				mu.Lock()
				result.Dispatched++
				if rec == nil {
					result.Succeeded++
				} else {
					result.Recoveries = append(result.Recoveries, rec)
					switch rec.Outcome {
					case domain.OutcomeRecoveredRetry:
						result.RecoveredRetry++
					case domain.OutcomeRecoveredFallback:
						result.RecoveredFallback++
					default:
						result.Unrecovered++
					}
				}
				mu.Unlock()

				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
			return nil
		})
	}

	// Per-node errors are already aggregated; the only group error is
	// context cancellation.
	_ = g.Wait()

	result.Duration = time.Since(start)
	e.log.Info("batch finished",
		"batch", batch.ID,
		"dispatched", result.Dispatched,
		"succeeded", result.Succeeded,
		"recovered", result.RecoveredRetry+result.RecoveredFallback,
		"unrecovered", result.Unrecovered,
		"duration", result.Duration,
	)
	return result
}

// dispatchOne renders and ships one command. Returns nil on success, or
// the recovery result when the command failed.
func (e *Executor) dispatchOne(ctx context.Context, runID string, batch *domain.BatchConfig, node *domain.Node, tpl domain.CommandTemplate) *domain.RecoveryResult {
	cmd := &domain.Command{
		ID:         tpl.ID + "@" + node.ID,
		Type:       tpl.Type,
		Target:     node.ID,
		Line:       tpl.Render(node),
		Parameters: tpl.Parameters,
		Options:    tpl.Options,
	}

	timeout := batch.CommandTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}

	started := time.Now()
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	res, err := e.gateway.Execute(cmdCtx, node, cmd)
	cancel()

	metrics.CommandsDispatched.WithLabelValues(batch.ID).Inc()

	if err == nil {
		e.recordAudit(ctx, runID, batch.ID, node.ID, cmd, res, string(domain.OutcomeSuccess), started)
		return nil
	}

	e.log.Warn("command failed, entering recovery",
		"batch", batch.ID, "node", node.ID, "command", cmd.ID, "error", err)

	rec := e.handler.Handle(ctx, node, cmd, err, e.strategies)
	metrics.CommandFailures.WithLabelValues(batch.ID, string(rec.Classification.Type)).Inc()
	e.recordAudit(ctx, runID, batch.ID, node.ID, cmd, res, string(rec.Outcome), started)
	return rec
}

func (e *Executor) recordAudit(ctx context.Context, runID, batchID, nodeID string, cmd *domain.Command, res *domain.CommandResult, outcome string, started time.Time) {
	if e.audit == nil {
		return
	}
	rec := &domain.AuditRecord{
		ID:        uuid.New().String(),
		RunID:     runID,
		BatchID:   batchID,
		NodeID:    nodeID,
		CommandID: cmd.ID,
		Line:      cmd.Line,
		Outcome:   domain.RecoveryOutcome(outcome),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if res != nil {
		rec.ExitCode = res.ExitCode
		rec.Error = res.Stderr
	}
	if err := e.audit.Record(ctx, rec); err != nil {
		e.log.Warn("failed to record audit entry", "error", err)
	}
}
