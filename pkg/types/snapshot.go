// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the only snapshot format version this core reads.
const SnapshotVersion = 1

// Snapshot is the persisted form of one rabbit hole graph.
// Per prd008-persistence R2.1: version, the four collections, the active
// weight profile, the session query, and the update timestamp.
type Snapshot struct {
	Version         int          `json:"version"`
	Nodes           []GraphNode  `json:"nodes"`
	Edges           []GraphEdge  `json:"edges"`
	Clusters        []Cluster    `json:"clusters"`
	Weights         WeightConfig `json:"weights"`
	Query           string       `json:"query"`
	AnnotationNodes []Annotation `json:"annotationNodes"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// EmptySnapshot returns a valid, empty version-1 snapshot.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Version:         SnapshotVersion,
		Nodes:           []GraphNode{},
		Edges:           []GraphEdge{},
		Clusters:        []Cluster{},
		Weights:         DefaultWeights(),
		AnnotationNodes: []Annotation{},
	}
}

// snapshotProbe detects which fields are present in the raw JSON, so a
// foreign or corrupt object can be rejected instead of half-parsed.
type snapshotProbe struct {
	Version         *int             `json:"version"`
	Nodes           *json.RawMessage `json:"nodes"`
	Edges           *json.RawMessage `json:"edges"`
	Clusters        *json.RawMessage `json:"clusters"`
	AnnotationNodes *json.RawMessage `json:"annotationNodes"`
}

// ParseSnapshot decodes and validates a persisted snapshot. Any object
// missing version==1 or any of the four array-typed collections is treated
// as corrupt or foreign (R2.3); callers fall back to an empty graph.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var probe snapshotProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return EmptySnapshot(), fmt.Errorf("decoding snapshot: %w", err)
	}
	if probe.Version == nil || *probe.Version != SnapshotVersion {
		return EmptySnapshot(), fmt.Errorf("snapshot version missing or unsupported")
	}
	for name, field := range map[string]*json.RawMessage{
		"nodes":           probe.Nodes,
		"edges":           probe.Edges,
		"clusters":        probe.Clusters,
		"annotationNodes": probe.AnnotationNodes,
	} {
		if field == nil || string(*field) == "null" {
			return EmptySnapshot(), fmt.Errorf("snapshot missing %q collection", name)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return EmptySnapshot(), fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Encode serializes the snapshot with UpdatedAt stamped to now.
func (s Snapshot) Encode() ([]byte, error) {
	s.Version = SnapshotVersion
	s.UpdatedAt = time.Now().UTC()
	if s.Nodes == nil {
		s.Nodes = []GraphNode{}
	}
	if s.Edges == nil {
		s.Edges = []GraphEdge{}
	}
	if s.Clusters == nil {
		s.Clusters = []Cluster{}
	}
	if s.AnnotationNodes == nil {
		s.AnnotationNodes = []Annotation{}
	}
	return json.MarshalIndent(s, "", "  ")
}
