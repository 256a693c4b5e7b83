// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes per-node raw features, cross-node normalization,
// and the weighted composite relevance with structural boosts.
// Implements: prd007-graph-core R3 (scoring);
//
//	docs/ARCHITECTURE.md § Score Engine.
//
// Every function here is pure and total. Scores only change by re-running
// the full pipeline over the active node set; there is no incremental path.
package score

import (
	"math"
	"strings"
	"time"
	"unicode"

	"gonum.org/v1/gonum/floats"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// Engine computes the scoring pipeline with a fixed reference year and
// configurable boost caps.
type Engine struct {
	cfg  types.ScoreConfig
	year int
}

// NewEngine returns an engine anchored to the current calendar year.
// Zero-valued boost caps fall back to the documented defaults.
func NewEngine(cfg types.ScoreConfig) *Engine {
	return NewEngineAt(cfg, time.Now().Year())
}

// NewEngineAt returns an engine anchored to an explicit reference year,
// so tests and replays are reproducible.
func NewEngineAt(cfg types.ScoreConfig, year int) *Engine {
	def := types.DefaultCoreConfig().Score
	if cfg.AuthorBoostCap <= 0 {
		cfg.AuthorBoostCap = def.AuthorBoostCap
	}
	if cfg.ClusterBoostCap <= 0 {
		cfg.ClusterBoostCap = def.ClusterBoostCap
	}
	return &Engine{cfg: cfg, year: year}
}

// Influence is the log-scaled citation mass: ln(citations + 1).
func Influence(citationCount int) float64 {
	return math.Log(float64(citationCount) + 1)
}

// Recency decays exponentially with age and adds a small citation term.
// Papers with no known year score a neutral 0.5.
func (e *Engine) Recency(year, citationCount int) float64 {
	if year == 0 {
		return 0.5
	}
	age := float64(e.year - year)
	if age < 0 {
		age = 0
	}
	return math.Exp(-age/10) + math.Log(float64(citationCount)+1)/10
}

// Velocity is citations per year since publication. 0 with no year or no
// citations; the age divisor is floored at 1 to keep current-year papers
// finite.
func (e *Engine) Velocity(year, citationCount int) float64 {
	if year == 0 || citationCount == 0 {
		return 0
	}
	age := e.year - year
	if age < 1 {
		age = 1
	}
	return float64(citationCount) / float64(age)
}

// CosineSimilarity is dot(a,b) / (‖a‖·‖b‖). 0 when either vector is
// absent, empty, length-mismatched, or of zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// ComputeRawScores fills the raw value of every dimension for each node.
// centrality supplies the localCentrality dimension (missing ids score 0);
// queryEmbedding may be nil.
func (e *Engine) ComputeRawScores(nodes []*types.GraphNode, queryEmbedding []float64, centrality map[string]float64) {
	for _, n := range nodes {
		p := n.Paper
		n.Scores.Influence.Raw = Influence(p.CitationCount)
		n.Scores.Recency.Raw = e.Recency(p.Year, p.CitationCount)
		n.Scores.Velocity.Raw = e.Velocity(p.Year, p.CitationCount)
		n.Scores.SemanticSimilarity.Raw = CosineSimilarity(p.Embedding, queryEmbedding)
		n.Scores.LocalCentrality.Raw = centrality[n.ID]
	}
}

// NormalizeScores min-max normalizes each non-relevance dimension
// independently across the node set, in place. A dimension where all nodes
// share one value becomes 0.5 everywhere, avoiding both a zero division
// and a collapse to 0. Must be re-run whenever the active node set changes.
func NormalizeScores(nodes []*types.GraphNode) {
	if len(nodes) == 0 {
		return
	}
	dims := []func(*types.GraphNode) *types.DimensionScore{
		func(n *types.GraphNode) *types.DimensionScore { return &n.Scores.Influence },
		func(n *types.GraphNode) *types.DimensionScore { return &n.Scores.Recency },
		func(n *types.GraphNode) *types.DimensionScore { return &n.Scores.SemanticSimilarity },
		func(n *types.GraphNode) *types.DimensionScore { return &n.Scores.LocalCentrality },
		func(n *types.GraphNode) *types.DimensionScore { return &n.Scores.Velocity },
	}

	for _, dim := range dims {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, n := range nodes {
			v := dim(n).Raw
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		span := hi - lo
		for _, n := range nodes {
			d := dim(n)
			if span == 0 {
				d.Normalized = 0.5
			} else {
				d.Normalized = (d.Raw - lo) / span
			}
		}
	}
}

// Composite is the plain weighted sum over the five normalized dimensions.
// Not bounded to [0,1] by construction; the boost stage clamps.
func Composite(s types.NodeScores, w types.WeightConfig) float64 {
	return w.Influence*s.Influence.Normalized +
		w.Recency*s.Recency.Normalized +
		w.SemanticSimilarity*s.SemanticSimilarity.Normalized +
		w.LocalCentrality*s.LocalCentrality.Normalized +
		w.Velocity*s.Velocity.Normalized
}

// ApplyBoosts multiplies each node's relevance by its author-network and
// cluster-size boosts, then clamps to 1.0. Relevance must already hold the
// composite weighted sum.
func (e *Engine) ApplyBoosts(nodes []*types.GraphNode, clusters []types.Cluster) {
	authorCounts := countAuthors(nodes)
	clusterSizes := make(map[string]int, len(clusters))
	for _, c := range clusters {
		clusterSizes[c.ID] = len(c.Members)
	}

	for _, n := range nodes {
		boost := e.authorBoost(n, authorCounts) * e.clusterBoost(n, clusterSizes)
		n.Scores.Relevance = math.Min(n.Scores.Relevance*boost, 1.0)
	}
}

// Score runs the normalize → composite → boost stages over the node set.
// Raw features must already be filled (ComputeRawScores).
func (e *Engine) Score(nodes []*types.GraphNode, weights types.WeightConfig, clusters []types.Cluster) {
	NormalizeScores(nodes)
	for _, n := range nodes {
		n.Scores.Relevance = Composite(n.Scores, weights)
	}
	e.ApplyBoosts(nodes, clusters)
}

// countAuthors tallies, per normalized author name, the number of active
// nodes that carry the author.
func countAuthors(nodes []*types.GraphNode) map[string]int {
	counts := make(map[string]int)
	for _, n := range nodes {
		seen := make(map[string]struct{}, len(n.Paper.Authors))
		for _, a := range n.Paper.Authors {
			name := normalizeAuthorName(a.Name)
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			counts[name]++
		}
	}
	return counts
}

// authorBoost is 1 + min(log2(sharedCount)*0.1, cap) for the node's most
// shared author; 1.0 when no author appears in two or more nodes.
func (e *Engine) authorBoost(n *types.GraphNode, counts map[string]int) float64 {
	best := 1.0
	for _, a := range n.Paper.Authors {
		shared := counts[normalizeAuthorName(a.Name)]
		if shared < 2 {
			continue
		}
		m := 1 + math.Min(math.Log2(float64(shared))*0.1, e.cfg.AuthorBoostCap)
		best = math.Max(best, m)
	}
	return best
}

// clusterBoost is 1 + min(log2(size)*0.08, cap) for clusters of three or
// more members; 1.0 otherwise.
func (e *Engine) clusterBoost(n *types.GraphNode, sizes map[string]int) float64 {
	if n.ClusterID == "" {
		return 1.0
	}
	size := sizes[n.ClusterID]
	if size < 3 {
		return 1.0
	}
	return 1 + math.Min(math.Log2(float64(size))*0.08, e.cfg.ClusterBoostCap)
}

// normalizeAuthorName lowercases and collapses whitespace.
func normalizeAuthorName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
