package recovery

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// Config tunes the handler beyond the retry policy. Pattern entries are
// matched as case-insensitive substrings of the error text.
type Config struct {
	Policy               RetryPolicy `yaml:"policy"`
	RetryablePatterns    []string    `yaml:"retryable_patterns"`
	NonRetryablePatterns []string    `yaml:"non_retryable_patterns"`
}

// JournalSink records command failures and their resolution. Optional.
type JournalSink interface {
	Add(ctx context.Context, e *domain.JournalEntry) error
	IncrementRetry(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string, status domain.JournalStatus) error
}

// Handler drives the per-command recovery state machine:
// Failed → Classifying → {Retrying → Recovered | Exhausted}
// → {FallbackTrying → Recovered | Unrecovered}.
type Handler struct {
	cfg        Config
	classifier *Classifier
	procedures ProcedureTable
	fallback   *FallbackRunner
	history    *History
	journal    JournalSink

	// inflight serializes recoveries for the same (node, command) key.
	// One command owns one retry lifecycle by construction; this guards
	// the invariant if it is ever violated.
	inflight sync.Map

	log *slog.Logger
}

// NewHandler creates a recovery handler. journal may be nil.
func NewHandler(cfg Config, procedures ProcedureTable, fallback *FallbackRunner, history *History, journal JournalSink) *Handler {
	if history == nil {
		history = NewHistory()
	}
	return &Handler{
		cfg:        cfg,
		classifier: NewClassifier(),
		procedures: procedures,
		fallback:   fallback,
		history:    history,
		journal:    journal,
		log:        slog.With("component", "recovery"),
	}
}

// History exposes the shared retry-history map.
func (h *Handler) History() *History {
	return h.history
}

// Handle runs the full recovery state machine for one failing command.
// The caller bounds total recovery time through ctx.
func (h *Handler) Handle(ctx context.Context, node *domain.Node, cmd *domain.Command, cmdErr error, strategies []domain.FallbackStrategy) *domain.RecoveryResult {
	key := historyKey(node.ID, cmd.ID)
	muIface, _ := h.inflight.LoadOrStore(key, &sync.Mutex{})
	mu := muIface.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	errText := cmdErr.Error()

	c := h.classifier.Classify(errText)
	res := &domain.RecoveryResult{
		NodeID:             node.ID,
		CommandID:          cmd.ID,
		Classification:     c,
		SuccessProbability: successProbability(c),
		Error:              errText,
	}

	journalID := h.journalFailure(ctx, node, cmd, errText, c)

	retryable := h.shouldRetry(errText, c)
	if retryable {
		if recovered := h.retryLoop(ctx, node, cmd, c, res, journalID); recovered {
			res.Outcome = domain.OutcomeRecoveredRetry
			h.finish(ctx, res, journalID, domain.JournalStatusRecovered, start)
			return res
		}
	} else {
		h.log.Info("error is not retryable, going straight to fallback",
			"node", node.ID, "command", cmd.ID, "type", c.Type)
	}

	out := h.fallback.Run(ctx, node, cmd, errText, c, retryable, strategies)
	res.StrategiesTried = out.Tried
	if out.Recovered {
		res.Outcome = domain.OutcomeRecoveredFallback
		res.RecoveredBy = out.Strategy
		h.finish(ctx, res, journalID, domain.JournalStatusRecovered, start)
		return res
	}

	res.Outcome = domain.OutcomeUnrecovered
	h.finish(ctx, res, journalID, domain.JournalStatusUnrecovered, start)
	return res
}

// retryLoop runs backoff-delayed recovery procedures until one succeeds,
// attempts exhaust, or the context's recovery ceiling expires.
func (h *Handler) retryLoop(ctx context.Context, node *domain.Node, cmd *domain.Command, c domain.Classification, res *domain.RecoveryResult, journalID string) bool {
	proc, ok := h.procedures.lookup(c.Type)
	if !ok {
		h.log.Warn("no recovery procedure available", "type", c.Type)
		return false
	}

	for attempt := 1; ; attempt++ {
		a := h.cfg.Policy.NextAttempt(attempt, c)
		if a.RetryStrategy == StrategyExhausted {
			h.log.Info("retries exhausted",
				"node", node.ID, "command", cmd.ID, "attempts", attempt-1)
			return false
		}

		h.history.Append(node.ID, cmd.ID, a)
		res.Attempts = append(res.Attempts, a)
		metrics.RetriesTotal.WithLabelValues(a.RetryStrategy).Inc()

		select {
		case <-ctx.Done():
			return false
		case <-time.After(a.NextRetryDelay):
		}

		if journalID != "" && h.journal != nil {
			_ = h.journal.IncrementRetry(ctx, journalID)
		}

		if err := proc(ctx, node, cmd); err == nil {
			h.log.Info("command recovered via retry",
				"node", node.ID, "command", cmd.ID, "attempt", attempt)
			return true
		} else if ctx.Err() != nil {
			return false
		} else {
			h.log.Debug("retry attempt failed",
				"node", node.ID, "command", cmd.ID, "attempt", attempt, "error", err)
		}
	}
}

// shouldRetry decides retryability: explicit non-retryable patterns win,
// then explicit retryable patterns, then category, then severity.
func (h *Handler) shouldRetry(errText string, c domain.Classification) bool {
	lower := strings.ToLower(errText)

	for _, p := range h.cfg.NonRetryablePatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	for _, p := range h.cfg.RetryablePatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}

	switch c.Category {
	case domain.CategoryPermanent:
		return false
	case domain.CategoryTemporary, domain.CategoryIntermittent:
		return true
	}
	return c.Severity != domain.SeverityCritical
}

func (h *Handler) journalFailure(ctx context.Context, node *domain.Node, cmd *domain.Command, errText string, c domain.Classification) string {
	if h.journal == nil {
		return ""
	}
	e := domain.NewJournalEntry(node.ID, cmd, errText, c)
	if err := h.journal.Add(ctx, e); err != nil {
		h.log.Warn("failed to journal command failure", "error", err)
		return ""
	}
	return e.ID
}

func (h *Handler) finish(ctx context.Context, res *domain.RecoveryResult, journalID string, status domain.JournalStatus, start time.Time) {
	res.Duration = time.Since(start)
	metrics.RecoveryDuration.WithLabelValues(string(res.Outcome)).Observe(res.Duration.Seconds())

	if journalID != "" && h.journal != nil {
		if err := h.journal.Resolve(ctx, journalID, status); err != nil {
			h.log.Warn("failed to resolve journal entry", "id", journalID, "error", err)
		}
	}
}
