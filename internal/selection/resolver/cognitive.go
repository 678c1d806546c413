package resolver

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// defaultScoreThreshold keeps nodes whose score reaches this value.
const defaultScoreThreshold = 0.6

// Scorer ranks how well a node matches a free-form selection phrase.
// Implementations are heuristic and best-effort: keyword and string
// similarity only, not a trained classifier. Results must never be
// treated as guaranteed-correct.
type Scorer interface {
	Score(pattern string, node *domain.Node) float64
}

// HeuristicScorer scores with substring hits plus Levenshtein similarity
// over the node's identifying fields.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the default scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

// Score averages per-token scores over the pattern's whitespace-separated
// tokens. Each token scores 1.0 on a substring hit against any candidate
// field, otherwise the best edit-distance similarity across fields.
func (s *HeuristicScorer) Score(pattern string, node *domain.Node) float64 {
	tokens := strings.Fields(strings.ToLower(pattern))
	if len(tokens) == 0 {
		return 0
	}

	fields := candidateFields(node)

	var total float64
	for _, tok := range tokens {
		total += tokenScore(tok, fields)
	}
	return total / float64(len(tokens))
}

func candidateFields(n *domain.Node) []string {
	fields := []string{
		strings.ToLower(n.ID),
		strings.ToLower(n.Name),
		strings.ToLower(n.NEType),
		strings.ToLower(n.NodeType),
		strings.ToLower(n.Vendor),
		strings.ToLower(n.Location),
	}
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func tokenScore(tok string, fields []string) float64 {
	var best float64
	for _, f := range fields {
		if strings.Contains(f, tok) {
			return 1.0
		}
		if sim := similarity(tok, f); sim > best {
			best = sim
		}
	}
	return best
}

// similarity is 1 - dist/maxLen, clamped to [0,1].
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	d := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(d)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}
