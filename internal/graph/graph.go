// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph owns the in-memory research graph for one rabbit hole:
// nodes, edges, clusters, and annotations, plus the recompute pipeline
// that keeps scores and centrality current.
// Implements: prd007-graph-core R1, R2;
//
//	docs/ARCHITECTURE.md § Graph Store.
//
// A Store is a plain handle, not a global. It is not safe for concurrent
// use; the owning session serializes all access.
package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/pdiddy/rabbithole/internal/centrality"
	"github.com/pdiddy/rabbithole/internal/community"
	"github.com/pdiddy/rabbithole/internal/score"
	"github.com/pdiddy/rabbithole/pkg/types"
)

// Store holds the graph for a single rabbit hole and the analysis engines
// configured for it.
type Store struct {
	nodes       map[string]*types.GraphNode
	edges       map[string]*types.GraphEdge
	clusters    []types.Cluster
	annotations map[string]*types.Annotation

	weights        types.WeightConfig
	query          string
	queryEmbedding []float64

	scores   *score.Engine
	prOpts   centrality.Options
	detector *community.Detector
}

// New creates an empty Store with engines built from cfg. Zero-valued
// config fields fall back to their documented defaults.
func New(cfg types.CoreConfig) *Store {
	weights := cfg.Weights
	if weights == (types.WeightConfig{}) {
		weights = types.DefaultWeights()
	}
	return &Store{
		nodes:       make(map[string]*types.GraphNode),
		edges:       make(map[string]*types.GraphEdge),
		annotations: make(map[string]*types.Annotation),
		weights:     weights,
		scores:      score.NewEngine(cfg.Score),
		prOpts:      centrality.FromConfig(cfg.Centrality),
		detector:    community.FromConfig(cfg.Community),
	}
}

// Weights returns the active composite-score weights.
func (s *Store) Weights() types.WeightConfig { return s.weights }

// SetWeights replaces the composite-score weights. The caller is expected
// to Recompute afterwards; weights alone never touch stored scores.
func (s *Store) SetWeights(w types.WeightConfig) { s.weights = w }

// Query returns the free-text query driving semantic similarity.
func (s *Store) Query() string { return s.query }

// SetQuery records the session query and its embedding. An empty embedding
// zeroes the semantic-similarity dimension on the next recompute.
func (s *Store) SetQuery(query string, embedding []float64) {
	s.query = query
	s.queryEmbedding = embedding
}

// AddNode inserts a node. It reports false if a node with the same ID is
// already present; duplicates are the identity resolver's job, not the
// store's. A zero AddedAt is stamped with the current time.
func (s *Store) AddNode(n *types.GraphNode) bool {
	if n == nil || n.ID == "" {
		return false
	}
	if _, ok := s.nodes[n.ID]; ok {
		return false
	}
	if n.AddedAt.IsZero() {
		n.AddedAt = time.Now().UTC()
	}
	s.nodes[n.ID] = n
	return true
}

// Node returns the node with the given ID.
func (s *Store) Node(id string) (*types.GraphNode, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns every node, including archived ones, sorted by ID.
func (s *Store) Nodes() []*types.GraphNode {
	out := make([]*types.GraphNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveNodes returns the analysis set: every non-archived node, sorted
// by ID. Archived nodes are invisible to scoring, centrality, community
// detection, and layout.
func (s *Store) ActiveNodes() []*types.GraphNode {
	out := make([]*types.GraphNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		if n.Active() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeCount returns the total node count, archived included.
func (s *Store) NodeCount() int { return len(s.nodes) }

// RemoveNode deletes a node and every edge touching it. It returns the IDs
// of the removed edges so the caller can mirror the cascade downstream.
func (s *Store) RemoveNode(id string) ([]string, bool) {
	if _, ok := s.nodes[id]; !ok {
		return nil, false
	}
	delete(s.nodes, id)

	var removed []string
	for edgeID, e := range s.edges {
		if e.Source == id || e.Target == id {
			removed = append(removed, edgeID)
		}
	}
	sort.Strings(removed)
	for _, edgeID := range removed {
		delete(s.edges, edgeID)
	}
	return removed, true
}

// UpsertEdge inserts or replaces an edge. Both endpoints must already be
// present and distinct.
func (s *Store) UpsertEdge(e *types.GraphEdge) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("edge missing id")
	}
	if e.Source == e.Target {
		return fmt.Errorf("edge %s: self-loop on %s", e.ID, e.Source)
	}
	if _, ok := s.nodes[e.Source]; !ok {
		return fmt.Errorf("edge %s: unknown source node %s", e.ID, e.Source)
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return fmt.Errorf("edge %s: unknown target node %s", e.ID, e.Target)
	}
	s.edges[e.ID] = e
	return nil
}

// Edge returns the edge with the given ID.
func (s *Store) Edge(id string) (*types.GraphEdge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// Edges returns every edge sorted by ID.
func (s *Store) Edges() []types.GraphEdge {
	out := make([]types.GraphEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoveEdge deletes an edge by ID.
func (s *Store) RemoveEdge(id string) bool {
	if _, ok := s.edges[id]; !ok {
		return false
	}
	delete(s.edges, id)
	return true
}

// activeEdges returns edges whose endpoints are both in the active set,
// sorted by ID.
func (s *Store) activeEdges() []types.GraphEdge {
	out := make([]types.GraphEdge, 0, len(s.edges))
	for _, e := range s.edges {
		src, okS := s.nodes[e.Source]
		tgt, okT := s.nodes[e.Target]
		if okS && okT && src.Active() && tgt.Active() {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetNodeState advances a node's lifecycle state. Archived is terminal:
// any transition away from it is rejected.
func (s *Store) SetNodeState(id string, state types.NodeState) error {
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("unknown node %s", id)
	}
	if n.State == types.StateArchived && state != types.StateArchived {
		return fmt.Errorf("node %s: archived is terminal", id)
	}
	n.State = state
	return nil
}

// SetNodePosition moves a node. Unknown IDs are ignored so stale layout
// callbacks cannot resurrect removed nodes.
func (s *Store) SetNodePosition(id string, pos types.Position) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.Position = pos
	return true
}

// UpdateNodeData replaces a node's paper record, e.g. after enrichment or
// a duplicate merge.
func (s *Store) UpdateNodeData(id string, paper types.PaperRecord) bool {
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.Paper = paper
	return true
}

// SetClusters replaces cluster assignments wholesale and restamps each
// node's ClusterID. Members referencing unknown nodes are kept in the
// cluster record but stamp nothing.
func (s *Store) SetClusters(clusters []types.Cluster) {
	s.clusters = clusters
	for _, n := range s.nodes {
		n.ClusterID = ""
	}
	for _, c := range clusters {
		for _, member := range c.Members {
			if n, ok := s.nodes[member]; ok {
				n.ClusterID = c.ID
			}
		}
	}
}

// Clusters returns the current cluster assignments.
func (s *Store) Clusters() []types.Cluster { return s.clusters }

// AddAnnotation inserts or replaces an annotation. A zero CreatedAt is
// stamped with the current time. Annotations never feed analytics.
func (s *Store) AddAnnotation(a *types.Annotation) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("annotation missing id")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.annotations[a.ID] = a
	return nil
}

// Annotation returns the annotation with the given ID.
func (s *Store) Annotation(id string) (*types.Annotation, bool) {
	a, ok := s.annotations[id]
	return a, ok
}

// RemoveAnnotation deletes an annotation by ID.
func (s *Store) RemoveAnnotation(id string) bool {
	if _, ok := s.annotations[id]; !ok {
		return false
	}
	delete(s.annotations, id)
	return true
}

// Annotations returns every annotation sorted by ID.
func (s *Store) Annotations() []types.Annotation {
	out := make([]types.Annotation, 0, len(s.annotations))
	for _, a := range s.annotations {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear wipes nodes, edges, clusters, annotations, and the query. Weights
// and engine configuration survive; the next rabbit hole inherits them.
func (s *Store) Clear() {
	s.nodes = make(map[string]*types.GraphNode)
	s.edges = make(map[string]*types.GraphEdge)
	s.annotations = make(map[string]*types.Annotation)
	s.clusters = nil
	s.query = ""
	s.queryEmbedding = nil
}

// Recompute re-runs the full scoring pipeline over the active set:
// PageRank centrality, raw features, min-max normalization, composite,
// and structural boosts. Archived nodes keep their last scores.
func (s *Store) Recompute() {
	active := s.ActiveNodes()
	if len(active) == 0 {
		return
	}
	edges := s.activeEdges()

	ids := make([]string, len(active))
	for i, n := range active {
		ids[i] = n.ID
	}
	pr := centrality.PageRank(ids, edges, s.prOpts)

	s.scores.ComputeRawScores(active, s.queryEmbedding, pr)
	s.scores.Score(active, s.weights, s.clusters)
}

// DetectCommunities runs label propagation over the active set and
// installs the resulting clusters.
func (s *Store) DetectCommunities() []types.Cluster {
	clusters := s.detector.Detect(s.ActiveNodes(), s.activeEdges())
	s.SetClusters(clusters)
	return clusters
}

// Refresh detects communities and then recomputes scores, so cluster
// boosts see the fresh assignments.
func (s *Store) Refresh() {
	s.DetectCommunities()
	s.Recompute()
}

// Export serializes the full graph into a version-stamped snapshot.
func (s *Store) Export() types.Snapshot {
	snap := types.EmptySnapshot()
	for _, n := range s.Nodes() {
		snap.Nodes = append(snap.Nodes, *n)
	}
	snap.Edges = s.Edges()
	snap.Clusters = append(snap.Clusters, s.clusters...)
	snap.Weights = s.weights
	snap.Query = s.query
	snap.AnnotationNodes = s.Annotations()
	return snap
}

// Load replaces the store contents with a parsed snapshot. Edges whose
// endpoints are missing from the snapshot are dropped rather than failing
// the whole load.
func (s *Store) Load(snap types.Snapshot) {
	s.Clear()
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		s.AddNode(&n)
	}
	for i := range snap.Edges {
		e := snap.Edges[i]
		_ = s.UpsertEdge(&e)
	}
	s.SetClusters(snap.Clusters)
	s.weights = snap.Weights
	s.query = snap.Query
	for i := range snap.AnnotationNodes {
		a := snap.AnnotationNodes[i]
		s.AddAnnotation(&a)
	}
}
