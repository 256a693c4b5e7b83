// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package queue turns in-memory graph mutations into ordered, idempotent
// operations against an injected remote persistence interface.
// Implements: prd008-persistence R3 (durable write queue);
//
//	docs/ARCHITECTURE.md § Durable Write Queue.
//
// The local graph is always authoritative: no queue failure ever reaches
// the mutating caller. The queue's job is best-effort eventual durability.
package queue

import (
	"time"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// OpKind names a reducer accepted by the remote store.
type OpKind string

const (
	OpAddNode            OpKind = "addNode"
	OpRemoveNode         OpKind = "removeNode"
	OpAddEdge            OpKind = "addEdge"
	OpRemoveEdge         OpKind = "removeEdge"
	OpUpdateNodeState    OpKind = "updateNodeState"
	OpUpdateNodePosition OpKind = "updateNodePosition"
	OpUpdateNodeData     OpKind = "updateNodeData"
	OpSetClusters        OpKind = "setClusters"
	OpClearRabbitHole    OpKind = "clearRabbitHole"
)

// Op is one named remote operation. Every Op carries the rabbit hole id
// plus the stable entity key for its kind, making replay idempotent.
// Only the fields relevant to Kind are set.
type Op struct {
	Kind         OpKind
	RabbitHoleID string

	// NodeID keys node-scoped reducers.
	NodeID string

	// EdgeID keys edge-scoped reducers.
	EdgeID string

	// Node carries the full node for addNode and updateNodeData.
	Node *types.GraphNode

	// Edge carries the full edge for addEdge.
	Edge *types.GraphEdge

	// State carries the new lifecycle state for updateNodeState.
	State types.NodeState

	// Position carries the new coordinate for updateNodePosition.
	Position types.Position

	// Clusters carries the full cluster set for setClusters.
	Clusters []types.Cluster

	// EnqueuedAt records when the mutation happened locally.
	EnqueuedAt time.Time
}

// clone detaches the payload from live graph memory so the drain
// goroutine never reads an entity the session is still mutating. Nested
// slices are copied too: the graph reuses their backing arrays.
func (o Op) clone() Op {
	if o.Node != nil {
		n := *o.Node
		n.Paper = clonePaper(o.Node.Paper)
		n.Tags = append([]string(nil), o.Node.Tags...)
		o.Node = &n
	}
	if o.Edge != nil {
		e := *o.Edge
		if o.Edge.Metadata != nil {
			e.Metadata = make(map[string]string, len(o.Edge.Metadata))
			for k, v := range o.Edge.Metadata {
				e.Metadata[k] = v
			}
		}
		o.Edge = &e
	}
	if o.Clusters != nil {
		clusters := make([]types.Cluster, len(o.Clusters))
		for i, c := range o.Clusters {
			c.Members = append([]string(nil), c.Members...)
			if c.Centroid != nil {
				centroid := *c.Centroid
				c.Centroid = &centroid
			}
			clusters[i] = c
		}
		o.Clusters = clusters
	}
	return o
}

func clonePaper(p types.PaperRecord) types.PaperRecord {
	p.Authors = append([]types.Author(nil), p.Authors...)
	p.FieldsOfStudy = append([]string(nil), p.FieldsOfStudy...)
	p.PublicationTypes = append([]string(nil), p.PublicationTypes...)
	p.Embedding = append([]float64(nil), p.Embedding...)
	return p
}

// Key returns the stable entity key the operation targets, for logging
// and idempotent replay.
func (o Op) Key() string {
	switch o.Kind {
	case OpAddEdge, OpRemoveEdge:
		return o.RabbitHoleID + "/" + o.EdgeID
	case OpSetClusters, OpClearRabbitHole:
		return o.RabbitHoleID
	default:
		return o.RabbitHoleID + "/" + o.NodeID
	}
}
