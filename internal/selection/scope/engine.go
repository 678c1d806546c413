// Package scope evaluates typed condition trees against node attributes,
// partitioning node sets into matched and non-matched.
package scope

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/perfmon"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// FilterTypeCustom dispatches to a registered predicate instead of an
// attribute accessor.
const FilterTypeCustom = "custom"

// FilterTypePerformance resolves attributes from the live metrics provider.
const FilterTypePerformance = "performance"

// Predicate is a registered custom filter check.
type Predicate func(ctx context.Context, node *domain.Node) (bool, error)

// Engine applies scope filters to node sets. Evaluation is side-effect
// free; a node that errors during evaluation is treated as non-matching
// with the error recorded in its trace.
type Engine struct {
	perf perfmon.Provider

	mu         sync.RWMutex
	predicates map[string]Predicate

	log *slog.Logger
}

// New creates a filter engine. perf may be nil when no performance
// filters are configured.
func New(perf perfmon.Provider) *Engine {
	return &Engine{
		perf:       perf,
		predicates: make(map[string]Predicate),
		log:        slog.With("component", "scope"),
	}
}

// RegisterPredicate registers a custom predicate under a name. Custom
// filters reference it through their condition's attribute field.
func (e *Engine) RegisterPredicate(name string, p Predicate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.predicates[name] = p
}

func (e *Engine) predicate(name string) (Predicate, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.predicates[name]
	return p, ok
}

// Apply partitions nodes against one filter. Action semantics belong to
// the caller; this engine only produces the partitions and traces.
func (e *Engine) Apply(ctx context.Context, nodes []*domain.Node, f domain.ScopeFilter) *domain.FilterResult {
	start := time.Now()
	res := &domain.FilterResult{FilterID: f.ID}

	for _, n := range nodes {
		matched, err := e.evaluate(ctx, n, f)
		detail := domain.EvaluationDetail{NodeID: n.ID, Matched: matched}
		if err != nil {
			// Errors demote to non-match instead of aborting the batch.
			detail.Matched = false
			detail.Error = err.Error()
			matched = false
		}
		res.Details = append(res.Details, detail)

		if matched {
			res.Matched = append(res.Matched, n)
		} else {
			res.NonMatched = append(res.NonMatched, n)
		}
	}

	res.Stats = domain.FilterStats{
		Total:      len(nodes),
		Matched:    len(res.Matched),
		NonMatched: len(res.NonMatched),
		Duration:   time.Since(start),
	}
	metrics.FiltersApplied.WithLabelValues(string(f.Action)).Inc()
	return res
}

// evaluate runs the filter's condition tree for one node.
func (e *Engine) evaluate(ctx context.Context, n *domain.Node, f domain.ScopeFilter) (bool, error) {
	if f.Type == FilterTypeCustom {
		return e.evalCustom(ctx, n, f.Condition)
	}
	return e.evalCondition(ctx, n, f, f.Condition)
}

// evalCustom dispatches to the predicate named by the condition's
// attribute (or, for composites, combines child predicates).
func (e *Engine) evalCustom(ctx context.Context, n *domain.Node, cond domain.Condition) (bool, error) {
	if cond.Composite() {
		return e.combine(ctx, n, domain.ScopeFilter{Type: FilterTypeCustom}, cond)
	}
	p, ok := e.predicate(cond.Attribute)
	if !ok {
		return false, fmt.Errorf("no custom predicate registered for %q", cond.Attribute)
	}
	return p(ctx, n)
}

// evalCondition walks the tree bottom-up.
func (e *Engine) evalCondition(ctx context.Context, n *domain.Node, f domain.ScopeFilter, cond domain.Condition) (bool, error) {
	if cond.Composite() {
		return e.combine(ctx, n, f, cond)
	}

	actual, err := e.resolveAttribute(ctx, n, f, cond.Attribute)
	if err != nil {
		return false, err
	}
	return compare(cond.Operator, actual, cond.Value)
}

func (e *Engine) combine(ctx context.Context, n *domain.Node, f domain.ScopeFilter, cond domain.Condition) (bool, error) {
	op := cond.LogicalOperator
	if op == "" {
		op = domain.LogicalAnd
	}

	switch op {
	case domain.LogicalAnd:
		for _, child := range cond.Conditions {
			ok, err := e.evalChild(ctx, n, f, child)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case domain.LogicalOr:
		for _, child := range cond.Conditions {
			ok, err := e.evalChild(ctx, n, f, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case domain.LogicalNot:
		// not applies to the first child only.
		ok, err := e.evalChild(ctx, n, f, cond.Conditions[0])
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return false, fmt.Errorf("unknown logical operator %q", op)
}

func (e *Engine) evalChild(ctx context.Context, n *domain.Node, f domain.ScopeFilter, child domain.Condition) (bool, error) {
	if f.Type == FilterTypeCustom && !child.Composite() && child.Operator == "" {
		return e.evalCustom(ctx, n, child)
	}
	return e.evalCondition(ctx, n, f, child)
}

// resolveAttribute maps an attribute name to its value for one node.
// Performance attributes query the external metrics provider.
func (e *Engine) resolveAttribute(ctx context.Context, n *domain.Node, f domain.ScopeFilter, attr string) (string, error) {
	if f.Type == FilterTypePerformance || isPerformanceAttr(attr) {
		if e.perf == nil {
			return "", fmt.Errorf("no metrics provider configured for performance filter")
		}
		m, err := e.perf.Metrics(ctx, n.ID)
		if err != nil {
			return "", fmt.Errorf("metrics query for %s failed: %w", n.ID, err)
		}
		v, err := m.Value(attr)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}

	v, ok := n.Attribute(attr)
	if !ok {
		return "", fmt.Errorf("unknown attribute %q", attr)
	}
	return v, nil
}

func isPerformanceAttr(attr string) bool {
	switch attr {
	case "cpu_usage", "memory_usage", "throughput", "latency", "error_rate":
		return true
	}
	return false
}
