package types

// IdentityConfig holds duplicate-detection thresholds.
// Per prd007-graph-core R1.3. The Jaccard thresholds are hand-tuned
// defaults, kept configurable pending calibration against a labeled set.
type IdentityConfig struct {
	// TitleSimilarityAuthor is the Jaccard threshold that, combined with
	// a matching year and first author, declares a duplicate (default 0.85).
	TitleSimilarityAuthor float64 `json:"title_similarity_author" yaml:"title_similarity_author" mapstructure:"title_similarity_author"`

	// TitleSimilarityStrong is the Jaccard threshold that declares a
	// duplicate on a matching year alone (default 0.95).
	TitleSimilarityStrong float64 `json:"title_similarity_strong" yaml:"title_similarity_strong" mapstructure:"title_similarity_strong"`
}

// ScoreConfig holds composite-score boost parameters.
// Per prd007-graph-core R3.4. The caps are hand-tuned defaults.
type ScoreConfig struct {
	// AuthorBoostCap bounds the author-network multiplier above 1.0
	// (default 0.25, i.e. at most 1.25x).
	AuthorBoostCap float64 `json:"author_boost_cap" yaml:"author_boost_cap" mapstructure:"author_boost_cap"`

	// ClusterBoostCap bounds the cluster-size multiplier above 1.0
	// (default 0.2, i.e. at most 1.2x).
	ClusterBoostCap float64 `json:"cluster_boost_cap" yaml:"cluster_boost_cap" mapstructure:"cluster_boost_cap"`
}

// CentralityConfig holds PageRank parameters.
type CentralityConfig struct {
	// Damping is the PageRank damping factor (default 0.85).
	Damping float64 `json:"damping" yaml:"damping" mapstructure:"damping"`

	// Iterations is the fixed iteration count (default 20).
	Iterations int `json:"iterations" yaml:"iterations" mapstructure:"iterations"`
}

// CommunityConfig holds label-propagation parameters.
type CommunityConfig struct {
	// MaxIterations caps label-propagation passes (default 15).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations"`

	// Seed pins the pseudo-random visit order for reproducibility.
	Seed int64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// LayoutConfig holds force-simulation parameters for the three layout modes.
type LayoutConfig struct {
	// FullIterations is the synchronous tick count for a full relayout
	// (default 100).
	FullIterations int `json:"full_iterations" yaml:"full_iterations" mapstructure:"full_iterations"`

	// IncrementalIterations is the tick count when inserting new nodes
	// with existing nodes pinned (default 60).
	IncrementalIterations int `json:"incremental_iterations" yaml:"incremental_iterations" mapstructure:"incremental_iterations"`

	// EgoCleanupIterations is the collision/radial relaxation tick count
	// for ego-centric layout (default 40).
	EgoCleanupIterations int `json:"ego_cleanup_iterations" yaml:"ego_cleanup_iterations" mapstructure:"ego_cleanup_iterations"`

	// EgoMaxHops bounds the BFS from the focus node (default 3).
	EgoMaxHops int `json:"ego_max_hops" yaml:"ego_max_hops" mapstructure:"ego_max_hops"`

	// RingRadius is the per-hop radius step in ego-centric layout
	// (default 160).
	RingRadius float64 `json:"ring_radius" yaml:"ring_radius" mapstructure:"ring_radius"`

	// Seed pins jitter and initial placement for reproducibility.
	Seed int64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// StoreConfig holds durable-store settings.
type StoreConfig struct {
	// Path is the SQLite database file (default "rabbithole.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// CoreConfig groups all component configurations.
type CoreConfig struct {
	Weights    WeightConfig     `json:"weights" yaml:"weights" mapstructure:"weights"`
	Identity   IdentityConfig   `json:"identity" yaml:"identity" mapstructure:"identity"`
	Score      ScoreConfig      `json:"score" yaml:"score" mapstructure:"score"`
	Centrality CentralityConfig `json:"centrality" yaml:"centrality" mapstructure:"centrality"`
	Community  CommunityConfig  `json:"community" yaml:"community" mapstructure:"community"`
	Layout     LayoutConfig     `json:"layout" yaml:"layout" mapstructure:"layout"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
}

// DefaultCoreConfig returns the documented defaults for every component.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Weights: DefaultWeights(),
		Identity: IdentityConfig{
			TitleSimilarityAuthor: 0.85,
			TitleSimilarityStrong: 0.95,
		},
		Score: ScoreConfig{
			AuthorBoostCap:  0.25,
			ClusterBoostCap: 0.2,
		},
		Centrality: CentralityConfig{
			Damping:    0.85,
			Iterations: 20,
		},
		Community: CommunityConfig{
			MaxIterations: 15,
			Seed:          1,
		},
		Layout: LayoutConfig{
			FullIterations:        100,
			IncrementalIterations: 60,
			EgoCleanupIterations:  40,
			EgoMaxHops:            3,
			RingRadius:            160,
			Seed:                  1,
		},
		Store: StoreConfig{
			Path: "rabbithole.db",
		},
	}
}
