// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// NodeState is the lifecycle state of a graph node.
// Per prd007-graph-core R2.1: discovered → enriched → materialized →
// archived; archived is terminal and excluded from analytics and rendering.
type NodeState string

const (
	StateDiscovered   NodeState = "discovered"
	StateEnriched     NodeState = "enriched"
	StateMaterialized NodeState = "materialized"
	StateArchived     NodeState = "archived"
)

// EdgeType classifies a graph edge.
type EdgeType string

const (
	// Citation-like types, directional.
	EdgeCites   EdgeType = "cites"
	EdgeCitedBy EdgeType = "cited-by"

	// Relational types, treated as bidirectional by analytics.
	EdgeSemanticSimilarity      EdgeType = "semantic-similarity"
	EdgeSameAuthor              EdgeType = "same-author"
	EdgeSameVenue               EdgeType = "same-venue"
	EdgeMethodologicallySimilar EdgeType = "methodologically-similar"
	EdgeContradicts             EdgeType = "contradicts"
	EdgeExtends                 EdgeType = "extends"
)

// IsCitation reports whether the type is citation-like (directional).
func (t EdgeType) IsCitation() bool {
	return t == EdgeCites || t == EdgeCitedBy
}

// TrustLevel records edge provenance: derived from an authoritative
// citation graph versus inferred from similarity heuristics.
type TrustLevel string

const (
	TrustSourceBacked TrustLevel = "source-backed"
	TrustInferred     TrustLevel = "inferred"
)

// Position is a 2D layout coordinate.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DimensionScore holds one scoring dimension's raw value and its
// min-max-normalized value across the active node set.
type DimensionScore struct {
	Raw        float64 `json:"raw" yaml:"raw"`
	Normalized float64 `json:"normalized" yaml:"normalized"`
}

// NodeScores holds the five scoring dimensions plus the derived composite.
type NodeScores struct {
	Influence          DimensionScore `json:"influence" yaml:"influence"`
	Recency            DimensionScore `json:"recency" yaml:"recency"`
	SemanticSimilarity DimensionScore `json:"semantic_similarity" yaml:"semantic_similarity"`
	LocalCentrality    DimensionScore `json:"local_centrality" yaml:"local_centrality"`
	Velocity           DimensionScore `json:"velocity" yaml:"velocity"`

	// Relevance is the boosted, clamped composite driving sort order
	// and visual prominence.
	Relevance float64 `json:"relevance" yaml:"relevance"`
}

// GraphNode wraps a resolved PaperRecord with mutable session state.
// Nodes have exactly one logical writer; no internal locking.
type GraphNode struct {
	// ID is the paper's canonical id, the node's primary key.
	ID string `json:"id" yaml:"id"`

	// Paper is the resolved bibliographic record.
	Paper PaperRecord `json:"paper" yaml:"paper"`

	// State is the lifecycle state.
	State NodeState `json:"state" yaml:"state"`

	// Position is the current 2D layout coordinate.
	Position Position `json:"position" yaml:"position"`

	// Scores holds the raw/normalized dimensions and composite relevance.
	Scores NodeScores `json:"scores" yaml:"scores"`

	// ClusterID is the community the node belongs to; "" if unassigned.
	ClusterID string `json:"cluster_id,omitempty" yaml:"cluster_id,omitempty"`

	// AddedAt records when the node entered the graph.
	AddedAt time.Time `json:"added_at" yaml:"added_at"`

	// ExpandedAt records when the node was last expanded; zero if never.
	ExpandedAt time.Time `json:"expanded_at,omitzero" yaml:"expanded_at,omitempty"`

	// Notes is free-text attached by the user.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Tags lists user-assigned tags.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Active reports whether the node participates in analytics and rendering.
func (n *GraphNode) Active() bool {
	return n.State != StateArchived
}

// GraphEdge connects two nodes.
type GraphEdge struct {
	// ID is the edge's stable key.
	ID string `json:"id" yaml:"id"`

	// Source and Target are node ids. For citation-like edges the
	// direction is meaningful; relational edges are symmetric.
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`

	// Type classifies the relationship.
	Type EdgeType `json:"type" yaml:"type"`

	// Trust records provenance: source-backed or inferred.
	Trust TrustLevel `json:"trust" yaml:"trust"`

	// Weight in [0,1], used by layout and centrality.
	Weight float64 `json:"weight" yaml:"weight"`

	// Evidence optionally explains why an inferred edge exists.
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`

	// Metadata carries provider-specific extras.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Cluster is a detected or user-arranged community of nodes.
type Cluster struct {
	// ID is the cluster's stable key.
	ID string `json:"id" yaml:"id"`

	// Label is the human-readable name derived from member titles.
	Label string `json:"label" yaml:"label"`

	// Members lists member node ids.
	Members []string `json:"members" yaml:"members"`

	// Color is the display color (hex).
	Color string `json:"color" yaml:"color"`

	// Centroid is the cluster's current layout centroid, when computed.
	Centroid *Position `json:"centroid,omitempty" yaml:"centroid,omitempty"`
}

// AnnotationKind classifies a free-standing annotation.
type AnnotationKind string

const (
	AnnotationNote     AnnotationKind = "note"
	AnnotationInsight  AnnotationKind = "insight"
	AnnotationQuestion AnnotationKind = "question"
	AnnotationDeadEnd  AnnotationKind = "dead-end"
	AnnotationSummary  AnnotationKind = "summary"
)

// Annotation is a note attached to a node, a cluster, or floating free.
// Annotations have an independent lifecycle and never feed analytics.
type Annotation struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      AnnotationKind `json:"kind" yaml:"kind"`
	Text      string         `json:"text" yaml:"text"`
	NodeID    string         `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	ClusterID string         `json:"cluster_id,omitempty" yaml:"cluster_id,omitempty"`
	Position  Position       `json:"position" yaml:"position"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// WeightConfig holds the five independent composite-score weights. Each is
// intended to lie in [0,1]; no normalization across the five is enforced —
// the composite is a plain weighted sum, not a convex combination.
type WeightConfig struct {
	Influence          float64 `json:"influence" yaml:"influence" mapstructure:"influence"`
	Recency            float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
	SemanticSimilarity float64 `json:"semantic_similarity" yaml:"semantic_similarity" mapstructure:"semantic_similarity"`
	LocalCentrality    float64 `json:"local_centrality" yaml:"local_centrality" mapstructure:"local_centrality"`
	Velocity           float64 `json:"velocity" yaml:"velocity" mapstructure:"velocity"`
}

// DefaultWeights returns the session-default weight profile.
func DefaultWeights() WeightConfig {
	return WeightConfig{
		Influence:          0.25,
		Recency:            0.20,
		SemanticSimilarity: 0.25,
		LocalCentrality:    0.15,
		Velocity:           0.15,
	}
}
