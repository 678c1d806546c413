// Package resolver expands node-selection patterns into candidate node sets.
package resolver

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/metrics"
)

// Resolver interprets pattern strings. Pattern strings are opaque to every
// other component.
type Resolver struct {
	scorer    Scorer
	threshold float64
	log       *slog.Logger
}

// New creates a resolver with the given cognitive scorer. A nil scorer
// falls back to the heuristic keyword/edit-distance scorer.
func New(scorer Scorer) *Resolver {
	if scorer == nil {
		scorer = NewHeuristicScorer()
	}
	return &Resolver{
		scorer:    scorer,
		threshold: defaultScoreThreshold,
		log:       slog.With("component", "resolver"),
	}
}

// Resolve expands one pattern against an inventory snapshot. Errors are
// per-pattern and recoverable: an invalid pattern yields an empty result
// plus a recorded error, never a panic or abort.
func (r *Resolver) Resolve(pattern domain.NodePattern, inventory []*domain.Node) ([]*domain.Node, []domain.ItemError) {
	var errs []domain.ItemError

	primary, err := r.resolvePrimary(pattern, inventory)
	if err != nil {
		metrics.PatternErrors.WithLabelValues(string(pattern.Type)).Inc()
		errs = append(errs, domain.ItemError{
			Ref:     pattern.ID,
			Stage:   "resolution",
			Message: err.Error(),
		})
		return nil, errs
	}

	if len(pattern.Exclusions) > 0 {
		primary, errs = r.applyExclusions(pattern, primary, inventory, errs)
	}
	if len(pattern.Inclusions) > 0 {
		primary, errs = r.applyInclusions(pattern, primary, inventory, errs)
	}

	now := time.Now()
	for _, n := range primary {
		n.Metadata.MatchedPattern = pattern.ID
		n.Metadata.ResolvedAt = now
	}

	metrics.PatternsResolved.WithLabelValues(string(pattern.Type)).Inc()
	return primary, errs
}

func (r *Resolver) resolvePrimary(pattern domain.NodePattern, inventory []*domain.Node) ([]*domain.Node, error) {
	switch pattern.Type {
	case domain.PatternWildcard:
		return r.resolveWildcard(pattern.Pattern, inventory)
	case domain.PatternRegex:
		return r.resolveRegex(pattern.Pattern, inventory)
	case domain.PatternList:
		return r.resolveList(pattern.Pattern, inventory), nil
	case domain.PatternQuery:
		return r.resolveQuery(pattern.Pattern, inventory)
	case domain.PatternCognitive:
		return r.resolveCognitive(pattern.Pattern, inventory), nil
	}
	return nil, fmt.Errorf("unknown pattern type %q", pattern.Type)
}

// resolveWildcard compiles * and ? into an anchored case-insensitive
// regex; all other metacharacters are escaped. Matches against id and name.
func (r *Resolver) resolveWildcard(pattern string, inventory []*domain.Node) ([]*domain.Node, error) {
	re, err := compileWildcard(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard pattern %q: %w", pattern, err)
	}

	var out []*domain.Node
	for _, n := range inventory {
		if re.MatchString(n.ID) || re.MatchString(n.Name) {
			out = append(out, n)
		}
	}
	return out, nil
}

func compileWildcard(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func (r *Resolver) resolveRegex(pattern string, inventory []*domain.Node) ([]*domain.Node, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}

	var out []*domain.Node
	for _, n := range inventory {
		if re.MatchString(n.ID) || re.MatchString(n.Name) {
			out = append(out, n)
		}
	}
	return out, nil
}

// resolveList matches comma-separated literal IDs. Missing IDs are logged
// and skipped, not fatal.
func (r *Resolver) resolveList(pattern string, inventory []*domain.Node) []*domain.Node {
	byID := make(map[string]*domain.Node, len(inventory))
	for _, n := range inventory {
		byID[n.ID] = n
	}

	var out []*domain.Node
	for _, raw := range strings.Split(pattern, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		n, ok := byID[id]
		if !ok {
			r.log.Warn("node not found in inventory", "id", id)
			continue
		}
		out = append(out, n)
	}
	return out
}

// resolveQuery matches a comma-separated key=value list. A node matches
// iff every key's attribute accessor returns exactly that value.
func (r *Resolver) resolveQuery(pattern string, inventory []*domain.Node) ([]*domain.Node, error) {
	pairs, err := parseQuery(pattern)
	if err != nil {
		return nil, err
	}

	var out []*domain.Node
	for _, n := range inventory {
		if queryMatches(n, pairs) {
			out = append(out, n)
		}
	}
	return out, nil
}

type queryPair struct {
	key, value string
}

func parseQuery(pattern string) ([]queryPair, error) {
	var pairs []queryPair
	for _, raw := range strings.Split(pattern, ",") {
		part := strings.TrimSpace(raw)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed query term %q: expected key=value", part)
		}
		pairs = append(pairs, queryPair{
			key:   strings.TrimSpace(kv[0]),
			value: strings.TrimSpace(kv[1]),
		})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("empty query pattern")
	}
	return pairs, nil
}

func queryMatches(n *domain.Node, pairs []queryPair) bool {
	for _, p := range pairs {
		v, ok := n.Attribute(p.key)
		if !ok || v != p.value {
			return false
		}
	}
	return true
}

// resolveCognitive scores every node against the free-form phrase and
// keeps those above the threshold. Best-effort only.
func (r *Resolver) resolveCognitive(pattern string, inventory []*domain.Node) []*domain.Node {
	var out []*domain.Node
	for _, n := range inventory {
		if r.scorer.Score(pattern, n) >= r.threshold {
			out = append(out, n)
		}
	}
	return out
}

// applyExclusions removes any node matching any exclusion sub-pattern.
func (r *Resolver) applyExclusions(parent domain.NodePattern, nodes []*domain.Node, inventory []*domain.Node, errs []domain.ItemError) ([]*domain.Node, []domain.ItemError) {
	excluded := make(map[string]struct{})
	for _, sub := range parent.Exclusions {
		matched, subErrs := r.Resolve(sub, inventory)
		errs = append(errs, subErrs...)
		for _, n := range matched {
			excluded[n.ID] = struct{}{}
		}
	}

	out := nodes[:0:0]
	for _, n := range nodes {
		if _, ok := excluded[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out, errs
}

// applyInclusions restricts to nodes matching at least one inclusion
// sub-pattern. Inclusions present means default-deny.
func (r *Resolver) applyInclusions(parent domain.NodePattern, nodes []*domain.Node, inventory []*domain.Node, errs []domain.ItemError) ([]*domain.Node, []domain.ItemError) {
	included := make(map[string]struct{})
	for _, sub := range parent.Inclusions {
		matched, subErrs := r.Resolve(sub, inventory)
		errs = append(errs, subErrs...)
		for _, n := range matched {
			included[n.ID] = struct{}{}
		}
	}

	out := nodes[:0:0]
	for _, n := range nodes {
		if _, ok := included[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out, errs
}
