package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/metrics"
	"github.com/vietddude/dispatcher/internal/notify"
)

// TemplateLookup resolves a named alternate template for the
// different_template strategy.
type TemplateLookup func(name string) (*domain.CommandTemplate, bool)

// FallbackRunner walks the fallback-strategy chain for one failed command.
type FallbackRunner struct {
	execute   ExecuteFunc
	templates TemplateLookup
	rollback  Synthesizer
	notifier  notify.Sink
	log       *slog.Logger
}

// NewFallbackRunner creates a runner. A nil synthesizer gets the textual
// default; a nil notifier gets the log sink.
func NewFallbackRunner(execute ExecuteFunc, templates TemplateLookup, rollback Synthesizer, notifier notify.Sink) *FallbackRunner {
	if rollback == nil {
		rollback = TextualSynthesizer{}
	}
	if notifier == nil {
		notifier = notify.NewLogSink()
	}
	if templates == nil {
		templates = func(string) (*domain.CommandTemplate, bool) { return nil, false }
	}
	return &FallbackRunner{
		execute:   execute,
		templates: templates,
		rollback:  rollback,
		notifier:  notifier,
		log:       slog.With("component", "fallback"),
	}
}

// FallbackOutcome reports how the chain ended.
type FallbackOutcome struct {
	Recovered bool
	Strategy  string // strategy id that succeeded
	Tried     []string
}

// Run iterates strategies in descending priority order, executes the
// first whose trigger matches, and stops at the first success. Strategies
// whose trigger doesn't match are skipped without counting as tried.
func (r *FallbackRunner) Run(ctx context.Context, node *domain.Node, cmd *domain.Command, errText string, c domain.Classification, retryable bool, strategies []domain.FallbackStrategy) FallbackOutcome {
	ordered := append([]domain.FallbackStrategy(nil), strategies...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	var out FallbackOutcome
	for _, s := range ordered {
		if !triggersMatch(s.TriggerConditions, errText, c, retryable) {
			continue
		}
		out.Tried = append(out.Tried, s.ID)

		ok, err := r.runStrategy(ctx, s, node, cmd, errText, c, out.Tried)
		if err != nil {
			r.log.Warn("fallback strategy failed",
				"strategy", s.ID, "type", s.Type, "node", node.ID, "error", err)
		}
		metrics.FallbackExecutions.WithLabelValues(string(s.Type), outcomeLabel(ok)).Inc()

		if ok {
			out.Recovered = true
			out.Strategy = s.ID
			return out
		}
		if ctx.Err() != nil {
			return out
		}
	}
	return out
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// triggersMatch checks the strategy's string tags against the error. An
// empty tag list matches unconditionally.
func triggersMatch(tags []string, errText string, c domain.Classification, retryable bool) bool {
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		if triggerMatches(tag, errText, c, retryable) {
			return true
		}
	}
	return false
}

func triggerMatches(tag, errText string, c domain.Classification, retryable bool) bool {
	switch tag {
	case "retryable_error":
		return retryable
	case "network_error":
		return c.Type == domain.ErrorNetwork
	case "timeout_error":
		return c.Type == domain.ErrorNetworkTimeout
	case "authentication_error":
		return c.Type == domain.ErrorAuthentication
	case "critical_error":
		return c.Severity == domain.SeverityCritical
	}
	return strings.Contains(strings.ToLower(errText), strings.ToLower(tag))
}

func (r *FallbackRunner) runStrategy(ctx context.Context, s domain.FallbackStrategy, node *domain.Node, cmd *domain.Command, errText string, c domain.Classification, tried []string) (bool, error) {
	switch s.Type {
	case domain.FallbackAlternativeCommand:
		return r.runAlternativeCommand(ctx, s, node, cmd)
	case domain.FallbackDifferentTemplate:
		return r.runDifferentTemplate(ctx, s, node, cmd)
	case domain.FallbackRollback:
		inverse := r.rollback.Synthesize(cmd)
		r.log.Info("executing synthesized rollback", "node", node.ID, "line", inverse.Line)
		if err := r.execute(ctx, node, inverse); err != nil {
			return false, err
		}
		return true, nil
	case domain.FallbackManualIntervention:
		// Alerts and reports unrecovered; the chain moves on.
		err := r.notifier.Notify(ctx, notify.Alert{
			Severity:        domain.SeverityHigh,
			NodeID:          node.ID,
			CommandID:       cmd.ID,
			CommandLine:     cmd.Line,
			Message:         errText,
			Classification:  c,
			StrategiesTried: tried,
			CreatedAt:       time.Now(),
		})
		return false, err
	case domain.FallbackSkip:
		// Succeeds by doing nothing.
		return true, nil
	}
	return false, fmt.Errorf("unknown fallback strategy type %q", s.Type)
}

func (r *FallbackRunner) runAlternativeCommand(ctx context.Context, s domain.FallbackStrategy, node *domain.Node, cmd *domain.Command) (bool, error) {
	line, ok := s.Config["command"]
	if !ok || strings.TrimSpace(line) == "" {
		return false, fmt.Errorf("alternative_command strategy %s has no command configured", s.ID)
	}

	alt := *cmd
	alt.ID = cmd.ID + "-alt"
	alt.Line = line
	if err := r.execute(ctx, node, &alt); err != nil {
		return false, err
	}
	return true, nil
}

func (r *FallbackRunner) runDifferentTemplate(ctx context.Context, s domain.FallbackStrategy, node *domain.Node, cmd *domain.Command) (bool, error) {
	name, ok := s.Config["template"]
	if !ok {
		return false, fmt.Errorf("different_template strategy %s has no template configured", s.ID)
	}
	tpl, ok := r.templates(name)
	if !ok {
		return false, fmt.Errorf("alternate template %q not found", name)
	}

	alt := *cmd
	alt.ID = cmd.ID + "-tpl"
	alt.Line = tpl.Render(node)
	if err := r.execute(ctx, node, &alt); err != nil {
		return false, err
	}
	return true, nil
}
