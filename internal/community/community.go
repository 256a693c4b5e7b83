// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package community groups nodes into clusters with weighted label
// propagation and labels each cluster from its members' titles.
// Implements: prd007-graph-core R5 (community detection);
//
//	docs/ARCHITECTURE.md § Community Detector.
//
// Visit order is drawn from a seeded generator so repeated runs on the
// same graph converge identically.
package community

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// Detector runs label propagation with a pinned random sequence. Each
// Detect call draws its visit order from a fresh generator at the
// configured seed, so repeated runs on the same graph agree.
type Detector struct {
	maxIterations int
	seed          int64
}

// NewDetector returns a detector seeded for reproducible visit order.
// maxIterations <= 0 falls back to the default of 15 passes.
func NewDetector(maxIterations int, seed int64) *Detector {
	if maxIterations <= 0 {
		maxIterations = types.DefaultCoreConfig().Community.MaxIterations
	}
	return &Detector{
		maxIterations: maxIterations,
		seed:          seed,
	}
}

// FromConfig builds a detector from a CommunityConfig.
func FromConfig(cfg types.CommunityConfig) *Detector {
	return NewDetector(cfg.MaxIterations, cfg.Seed)
}

// Detect partitions the nodes into clusters. Each node starts in its own
// singleton community; on every pass each node adopts the neighboring
// community with the highest total incident edge weight, keeping its
// current community on ties to damp oscillation. Propagation stops early
// once a full pass changes nothing. Archived nodes never reach here; the
// caller passes the active set.
func (d *Detector) Detect(nodes []*types.GraphNode, edges []types.GraphEdge) []types.Cluster {
	if len(nodes) == 0 {
		return []types.Cluster{}
	}

	ids := make([]string, 0, len(nodes))
	byID := make(map[string]*types.GraphNode, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
	}
	sort.Strings(ids)

	type neighbor struct {
		id     string
		weight float64
	}
	adj := make(map[string][]neighbor, len(nodes))
	for _, e := range edges {
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], neighbor{e.Target, e.Weight})
		adj[e.Target] = append(adj[e.Target], neighbor{e.Source, e.Weight})
	}

	// Singleton initialization.
	label := make(map[string]string, len(nodes))
	for _, id := range ids {
		label[id] = id
	}

	order := make([]string, len(ids))
	copy(order, ids)

	rng := rand.New(rand.NewSource(d.seed))
	for iter := 0; iter < d.maxIterations; iter++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		changed := false
		for _, id := range order {
			current := label[id]

			weights := make(map[string]float64)
			for _, nb := range adj[id] {
				weights[label[nb.id]] += nb.weight
			}
			if len(weights) == 0 {
				continue
			}

			best, bestWeight := current, weights[current]
			// Deterministic candidate order so equal-weight outcomes
			// do not depend on map iteration.
			candidates := make([]string, 0, len(weights))
			for c := range weights {
				candidates = append(candidates, c)
			}
			sort.Strings(candidates)
			for _, c := range candidates {
				if weights[c] > bestWeight {
					best, bestWeight = c, weights[c]
				}
			}

			if best != current {
				label[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// Group members by final label, deterministically ordered.
	groups := make(map[string][]string)
	for _, id := range ids {
		groups[label[id]] = append(groups[label[id]], id)
	}
	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	clusters := make([]types.Cluster, 0, len(groups))
	for i, root := range roots {
		members := groups[root]
		titles := make([]string, 0, len(members))
		for _, id := range members {
			titles = append(titles, byID[id].Paper.Title)
		}
		clusters = append(clusters, types.Cluster{
			ID:      fmt.Sprintf("cluster-%s", root),
			Label:   LabelFromTitles(titles),
			Members: members,
			Color:   PaletteColor(i),
		})
	}
	return clusters
}

// MergeClusters combines two clusters into one, relabeling from the joint
// membership. No member is dropped.
func MergeClusters(a, b types.Cluster, titlesByNode map[string]string) types.Cluster {
	members := append(append([]string{}, a.Members...), b.Members...)
	sort.Strings(members)
	members = dedupeSorted(members)

	titles := make([]string, 0, len(members))
	for _, id := range members {
		titles = append(titles, titlesByNode[id])
	}
	return types.Cluster{
		ID:      a.ID,
		Label:   LabelFromTitles(titles),
		Members: members,
		Color:   a.Color,
	}
}

// SplitCluster divides c into the named subset and the remainder, each
// relabeled from its own membership. Members not listed in subset stay in
// the remainder, so total membership is preserved.
func SplitCluster(c types.Cluster, subset []string, titlesByNode map[string]string) (types.Cluster, types.Cluster) {
	inSubset := make(map[string]struct{}, len(subset))
	for _, id := range subset {
		inSubset[id] = struct{}{}
	}

	var extracted, remainder []string
	for _, id := range c.Members {
		if _, ok := inSubset[id]; ok {
			extracted = append(extracted, id)
		} else {
			remainder = append(remainder, id)
		}
	}

	labelFor := func(members []string) string {
		titles := make([]string, 0, len(members))
		for _, id := range members {
			titles = append(titles, titlesByNode[id])
		}
		return LabelFromTitles(titles)
	}

	first := types.Cluster{
		ID:      c.ID + "-a",
		Label:   labelFor(extracted),
		Members: extracted,
		Color:   c.Color,
	}
	second := types.Cluster{
		ID:      c.ID + "-b",
		Label:   labelFor(remainder),
		Members: remainder,
		Color:   ColorFor(c.ID + "-b"),
	}
	return first, second
}

func dedupeSorted(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}
