// Package collection orchestrates the full node-selection pipeline for one
// named collection: pattern resolution, dedup, scope filtering, ranking
// and validation.
package collection

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/metrics"
	"github.com/vietddude/dispatcher/internal/selection/resolver"
	"github.com/vietddude/dispatcher/internal/selection/scope"
)

// Processor runs collections. Each Process call owns its own working
// state, so independent collections can run fully in parallel.
type Processor struct {
	resolver *resolver.Resolver
	scope    *scope.Engine
	log      *slog.Logger
}

// New creates a collection processor.
func New(r *resolver.Resolver, s *scope.Engine) *Processor {
	return &Processor{
		resolver: r,
		scope:    s,
		log:      slog.With("component", "collection"),
	}
}

// Process resolves, filters, ranks and validates one collection against an
// inventory snapshot. Per-item errors accumulate; only a structurally
// malformed collection short-circuits with a single critical error.
func (p *Processor) Process(ctx context.Context, col domain.Collection, filters []domain.ScopeFilter, inventory []*domain.Node) *domain.CollectionResult {
	start := time.Now()
	res := &domain.CollectionResult{
		CollectionID: col.ID,
		RunID:        uuid.New().String(),
	}

	if err := structuralCheck(col); err != "" {
		res.Errors = append(res.Errors, domain.ItemError{
			Ref:      col.ID,
			Stage:    "resolution",
			Message:  err,
			Critical: true,
		})
		res.Stats.Duration = time.Since(start)
		return res
	}

	// 1. Resolve patterns, skipping structural duplicates, and merge
	// candidates deduplicated by id in first-seen order.
	working := p.resolvePatterns(col, inventory, res)
	res.Stats.TotalCandidates = len(working)

	// 2. Apply scope filters highest priority first; filters compose.
	working = p.applyFilters(ctx, working, filters, res)
	res.Stats.RemovedByFilters = res.Stats.TotalCandidates - len(working)
	if res.Stats.RemovedByFilters > 0 {
		metrics.NodesRejected.WithLabelValues(col.ID, "filtering").Add(float64(res.Stats.RemovedByFilters))
	}

	// 3. Deterministic re-rank.
	rank(working)

	// 4. Validate the final set.
	working = p.validateNodes(col.ID, working, res)

	res.Nodes = working
	res.Stats.Survivors = len(working)
	res.Stats.Duration = time.Since(start)

	metrics.NodesSelected.WithLabelValues(col.ID).Add(float64(len(working)))
	p.log.Info("collection processed",
		"collection", col.ID,
		"run", res.RunID,
		"candidates", res.Stats.TotalCandidates,
		"survivors", res.Stats.Survivors,
		"errors", len(res.Errors),
	)
	return res
}

func structuralCheck(col domain.Collection) string {
	if col.ID == "" {
		return "collection is missing an id"
	}
	if len(col.NodePatterns) == 0 {
		return "collection has no node patterns"
	}
	for _, pat := range col.NodePatterns {
		if pat.Type == "" || strings.TrimSpace(pat.Pattern) == "" {
			return "collection contains a pattern without type or pattern string"
		}
	}
	return ""
}

func (p *Processor) resolvePatterns(col domain.Collection, inventory []*domain.Node, res *domain.CollectionResult) []*domain.Node {
	patterns := append([]domain.NodePattern(nil), col.NodePatterns...)
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Priority > patterns[j].Priority
	})

	seenPatterns := make(map[string]struct{}, len(patterns))
	seenNodes := make(map[string]struct{})
	var merged []*domain.Node

	for _, pat := range patterns {
		key := pat.Key()
		if _, dup := seenPatterns[key]; dup {
			p.log.Debug("skipping duplicate pattern", "pattern", pat.ID)
			continue
		}
		seenPatterns[key] = struct{}{}
		res.Stats.PatternsApplied++

		nodes, errs := p.resolver.Resolve(pat, inventory)
		res.Errors = append(res.Errors, errs...)

		for _, n := range nodes {
			if _, dup := seenNodes[n.ID]; dup {
				continue
			}
			seenNodes[n.ID] = struct{}{}
			merged = append(merged, n)
		}
	}
	return merged
}

func (p *Processor) applyFilters(ctx context.Context, working []*domain.Node, filters []domain.ScopeFilter, res *domain.CollectionResult) []*domain.Node {
	ordered := append([]domain.ScopeFilter(nil), filters...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for _, f := range ordered {
		fr := p.scope.Apply(ctx, working, f)
		res.Stats.FiltersApplied++

		for _, d := range fr.Details {
			if d.Error != "" {
				res.Errors = append(res.Errors, domain.ItemError{
					Ref:     f.ID,
					Stage:   "filtering",
					Message: d.NodeID + ": " + d.Error,
				})
			}
		}

		working = applyAction(f.Action, fr)
		for _, n := range working {
			n.Metadata.FilterTrace = append(n.Metadata.FilterTrace, f.ID+":"+string(f.Action))
		}
	}
	return working
}

// applyAction implements the filter action truth table: include keeps the
// matched partition, exclude keeps the non-matched one, prioritize keeps
// everything with matched nodes first.
func applyAction(action domain.FilterAction, fr *domain.FilterResult) []*domain.Node {
	switch action {
	case domain.ActionExclude:
		return fr.NonMatched
	case domain.ActionPrioritize:
		out := make([]*domain.Node, 0, len(fr.Matched)+len(fr.NonMatched))
		out = append(out, fr.Matched...)
		out = append(out, fr.NonMatched...)
		return out
	default: // include
		return fr.Matched
	}
}

func (p *Processor) validateNodes(colID string, working []*domain.Node, res *domain.CollectionResult) []*domain.Node {
	out := working[:0:0]
	for _, n := range working {
		reasons := validate(n)
		if len(reasons) == 0 {
			out = append(out, n)
			continue
		}
		res.Stats.RemovedByValidation++
		metrics.NodesRejected.WithLabelValues(colID, "validation").Inc()
		res.Errors = append(res.Errors, domain.ItemError{
			Ref:     n.ID,
			Stage:   "validation",
			Message: strings.Join(reasons, "; "),
		})
	}
	return out
}
