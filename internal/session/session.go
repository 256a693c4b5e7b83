// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session drives one rabbit hole: it owns the graph store, mirrors
// every mutation into the durable write queue, and manages the remote
// attach/detach lifecycle.
// Implements: prd007-graph-core R5; prd008-persistence R2, R3;
//
//	docs/ARCHITECTURE.md § Session.
//
// A Session has exactly one logical writer. The queue flushes
// asynchronously, but all graph access goes through the owning caller.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/rabbithole/internal/graph"
	"github.com/pdiddy/rabbithole/internal/identity"
	"github.com/pdiddy/rabbithole/internal/layout"
	"github.com/pdiddy/rabbithole/internal/queue"
	"github.com/pdiddy/rabbithole/pkg/types"
)

// AttachState is the remote-handle lifecycle. Attach and Detach are the
// only transitions; the overlap window during a handle swap is explicit
// rather than an ad hoc subscribe-then-unsubscribe ordering.
type AttachState string

const (
	StateDetached  AttachState = "detached"
	StateAttaching AttachState = "attaching"
	StateActive    AttachState = "active"
	StateDetaching AttachState = "detaching"
)

// Session is one rabbit hole workspace: the authoritative local graph plus
// the write queue that trails it.
type Session struct {
	id       string
	graph    *graph.Store
	queue    *queue.Queue
	resolver *identity.Resolver
	layout   *layout.Engine
	log      *slog.Logger
	state    AttachState
}

// New creates a detached session for the given rabbit hole id.
func New(id string, cfg types.CoreConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       id,
		graph:    graph.New(cfg),
		queue:    queue.New(nil, logger),
		resolver: identity.NewResolver(cfg.Identity),
		layout:   layout.NewEngine(cfg.Layout),
		log:      logger,
		state:    StateDetached,
	}
}

// ID returns the rabbit hole id.
func (s *Session) ID() string { return s.id }

// Graph exposes the owned graph store for read access.
func (s *Session) Graph() *graph.Store { return s.graph }

// State returns the current remote-handle state.
func (s *Session) State() AttachState { return s.state }

// Pending returns the number of queued, unflushed operations.
func (s *Session) Pending() int { return s.queue.Pending() }

// Attach swaps in a remote store handle and starts draining the queue.
// Re-attaching while active replaces the old handle; operations queued
// during the swap keep their order.
func (s *Session) Attach(remote queue.Remote) error {
	if remote == nil {
		return fmt.Errorf("attach: nil remote")
	}
	s.state = StateAttaching
	s.queue.SetRemote(remote)
	s.queue.SetConnected(true)
	s.state = StateActive
	return nil
}

// Detach drains what it can synchronously, then releases the remote
// handle. Operations dispatched afterwards queue up for the next Attach.
func (s *Session) Detach(ctx context.Context) {
	if s.state == StateDetached {
		return
	}
	s.state = StateDetaching
	s.queue.Flush(ctx)
	s.queue.SetConnected(false)
	s.queue.SetRemote(nil)
	s.state = StateDetached
}

// Flush forces a synchronous queue drain attempt.
func (s *Session) Flush(ctx context.Context) { s.queue.Flush(ctx) }

func (s *Session) dispatch(op queue.Op) {
	op.RabbitHoleID = s.id
	op.EnqueuedAt = time.Now().UTC()
	s.queue.Dispatch(op)
}

// AddPaper resolves an incoming record and either inserts a new node or
// merges into the duplicate it matches. It returns the canonical node id
// and whether a merge happened. The graph mutation always succeeds; the
// remote write trails it through the queue.
func (s *Session) AddPaper(rec types.PaperRecord, state types.NodeState) (string, bool) {
	identity.ResolvePaper(&rec)

	for _, n := range s.graph.Nodes() {
		if !s.resolver.IsDuplicate(n.Paper, rec) {
			continue
		}
		merged := identity.MergePapers(n.Paper, rec)
		s.graph.UpdateNodeData(n.ID, merged)
		s.dispatch(queue.Op{
			Kind:   queue.OpUpdateNodeData,
			NodeID: n.ID,
			Node:   s.mustNode(n.ID),
		})
		return n.ID, true
	}

	node := &types.GraphNode{
		ID:      rec.ID,
		Paper:   rec,
		State:   state,
		AddedAt: time.Now().UTC(),
	}
	if !s.graph.AddNode(node) {
		// Same canonical id already present; treat as an enrichment merge.
		existing, _ := s.graph.Node(rec.ID)
		merged := identity.MergePapers(existing.Paper, rec)
		s.graph.UpdateNodeData(rec.ID, merged)
		s.dispatch(queue.Op{
			Kind:   queue.OpUpdateNodeData,
			NodeID: rec.ID,
			Node:   s.mustNode(rec.ID),
		})
		return rec.ID, true
	}
	s.dispatch(queue.Op{Kind: queue.OpAddNode, NodeID: node.ID, Node: node})
	return node.ID, false
}

func (s *Session) mustNode(id string) *types.GraphNode {
	n, _ := s.graph.Node(id)
	return n
}

// RemovePaper deletes a node and its incident edges, mirroring each
// removal downstream.
func (s *Session) RemovePaper(nodeID string) bool {
	removedEdges, ok := s.graph.RemoveNode(nodeID)
	if !ok {
		return false
	}
	for _, edgeID := range removedEdges {
		s.dispatch(queue.Op{Kind: queue.OpRemoveEdge, EdgeID: edgeID})
	}
	s.dispatch(queue.Op{Kind: queue.OpRemoveNode, NodeID: nodeID})
	return true
}

// Connect adds an edge between two resolved nodes and returns its id.
func (s *Session) Connect(source, target string, edgeType types.EdgeType, trust types.TrustLevel, weight float64) (string, error) {
	edge := &types.GraphEdge{
		ID:     uuid.NewString(),
		Source: source,
		Target: target,
		Type:   edgeType,
		Trust:  trust,
		Weight: weight,
	}
	if err := s.graph.UpsertEdge(edge); err != nil {
		return "", err
	}
	s.dispatch(queue.Op{Kind: queue.OpAddEdge, EdgeID: edge.ID, Edge: edge})
	return edge.ID, nil
}

// Disconnect removes an edge by id.
func (s *Session) Disconnect(edgeID string) bool {
	if !s.graph.RemoveEdge(edgeID) {
		return false
	}
	s.dispatch(queue.Op{Kind: queue.OpRemoveEdge, EdgeID: edgeID})
	return true
}

// SetNodeState advances a node's lifecycle state.
func (s *Session) SetNodeState(nodeID string, state types.NodeState) error {
	if err := s.graph.SetNodeState(nodeID, state); err != nil {
		return err
	}
	s.dispatch(queue.Op{Kind: queue.OpUpdateNodeState, NodeID: nodeID, State: state})
	return nil
}

// MoveNode records a node position, typically from a layout pass or a
// user drag.
func (s *Session) MoveNode(nodeID string, pos types.Position) bool {
	if !s.graph.SetNodePosition(nodeID, pos) {
		return false
	}
	s.dispatch(queue.Op{Kind: queue.OpUpdateNodePosition, NodeID: nodeID, Position: pos})
	return true
}

// SetWeights replaces the scoring weights and recomputes. Weight changes
// are local session state; they are not mirrored to the remote store.
func (s *Session) SetWeights(w types.WeightConfig) {
	s.graph.SetWeights(w)
	s.graph.Recompute()
}

// SetQuery records the session query and recomputes semantic similarity.
func (s *Session) SetQuery(query string, embedding []float64) {
	s.graph.SetQuery(query, embedding)
	s.graph.Recompute()
}

// Recompute re-runs the scoring pipeline over the active set.
func (s *Session) Recompute() { s.graph.Recompute() }

// Refresh re-detects communities, recomputes scores, and mirrors the new
// cluster set downstream.
func (s *Session) Refresh() {
	s.graph.Refresh()
	s.dispatch(queue.Op{Kind: queue.OpSetClusters, Clusters: s.graph.Clusters()})
}

// LayoutFull recomputes every active node's position and mirrors the moves.
func (s *Session) LayoutFull() map[string]types.Position {
	positions := s.layout.Full(s.graph.ActiveNodes(), s.graph.Edges(), s.graph.Clusters())
	s.applyPositions(positions)
	return positions
}

// LayoutIncremental places only the named new nodes, keeping everything
// else pinned.
func (s *Session) LayoutIncremental(newNodeIDs []string) map[string]types.Position {
	existing := make(map[string]types.Position)
	isNew := make(map[string]bool, len(newNodeIDs))
	for _, id := range newNodeIDs {
		isNew[id] = true
	}
	var newNodes []*types.GraphNode
	for _, n := range s.graph.ActiveNodes() {
		if isNew[n.ID] {
			newNodes = append(newNodes, n)
		} else {
			existing[n.ID] = n.Position
		}
	}
	positions := s.layout.Incremental(existing, newNodes, s.graph.Edges())
	s.applyPositions(positions)
	return positions
}

// LayoutEgo arranges the graph around a focus node.
func (s *Session) LayoutEgo(focusID string) map[string]types.Position {
	positions := s.layout.Ego(focusID, s.graph.ActiveNodes(), s.graph.Edges())
	s.applyPositions(positions)
	return positions
}

func (s *Session) applyPositions(positions map[string]types.Position) {
	for _, n := range s.graph.ActiveNodes() {
		if pos, ok := positions[n.ID]; ok {
			s.MoveNode(n.ID, pos)
		}
	}
}

// Annotate attaches a free-standing note. Annotations live in the local
// snapshot only; they are never queued.
func (s *Session) Annotate(a types.Annotation) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.graph.AddAnnotation(&a); err != nil {
		return "", err
	}
	return a.ID, nil
}

// RemoveAnnotation deletes an annotation by id.
func (s *Session) RemoveAnnotation(id string) bool {
	return s.graph.RemoveAnnotation(id)
}

// Republish dispatches the entire graph as a fresh reducer stream: a
// clear, then every node, every edge, and the cluster set. Replaying the
// stream converges the remote store to the local graph.
func (s *Session) Republish() {
	s.dispatch(queue.Op{Kind: queue.OpClearRabbitHole})
	for _, n := range s.graph.Nodes() {
		s.dispatch(queue.Op{Kind: queue.OpAddNode, NodeID: n.ID, Node: n})
	}
	for _, e := range s.graph.Edges() {
		edge := e
		s.dispatch(queue.Op{Kind: queue.OpAddEdge, EdgeID: edge.ID, Edge: &edge})
	}
	if clusters := s.graph.Clusters(); len(clusters) > 0 {
		s.dispatch(queue.Op{Kind: queue.OpSetClusters, Clusters: clusters})
	}
}

// ClearAll wipes the rabbit hole locally and remotely.
func (s *Session) ClearAll() {
	s.graph.Clear()
	s.dispatch(queue.Op{Kind: queue.OpClearRabbitHole})
}

// SaveSnapshot serializes the graph to the persisted snapshot format.
func (s *Session) SaveSnapshot() ([]byte, error) {
	return s.graph.Export().Encode()
}

// LoadSnapshot replaces the graph from persisted bytes. A corrupt or
// foreign object falls back to an empty graph with a logged warning; the
// session never fails to open.
func (s *Session) LoadSnapshot(data []byte) {
	snap, err := types.ParseSnapshot(data)
	if err != nil {
		s.log.Warn("snapshot rejected, starting empty", "rabbitHole", s.id, "error", err)
	}
	s.graph.Load(snap)
	s.graph.Recompute()
}
