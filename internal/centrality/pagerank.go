// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package centrality derives graph-structural importance from the current
// edge set with an iterative PageRank variant.
// Implements: prd007-graph-core R4 (centrality);
//
//	docs/ARCHITECTURE.md § Centrality Analyzer.
//
// The output is an unnormalized score map; the score engine min-max
// normalizes it as the localCentrality dimension.
package centrality

import "github.com/pdiddy/rabbithole/pkg/types"

// Options configures the iterative computation.
type Options struct {
	// Damping is the teleport damping factor (default 0.85).
	Damping float64

	// Iterations is the fixed pass count (default 20).
	Iterations int
}

// DefaultOptions returns damping 0.85 over 20 iterations.
func DefaultOptions() Options {
	return Options{Damping: 0.85, Iterations: 20}
}

// FromConfig maps a CentralityConfig onto Options, filling defaults.
func FromConfig(cfg types.CentralityConfig) Options {
	opts := DefaultOptions()
	if cfg.Damping > 0 {
		opts.Damping = cfg.Damping
	}
	if cfg.Iterations > 0 {
		opts.Iterations = cfg.Iterations
	}
	return opts
}

// PageRank scores every listed node over the given edges. Citation edges
// contribute directionally ("cites" source→target, "cited-by" reversed);
// relational edge types contribute both directions. Edges that reference
// ids outside nodeIDs are ignored. Dangling nodes redistribute their mass
// uniformly each iteration. An empty node set yields an empty map.
func PageRank(nodeIDs []string, edges []types.GraphEdge, opts Options) map[string]float64 {
	n := len(nodeIDs)
	if n == 0 {
		return map[string]float64{}
	}
	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = DefaultOptions().Damping
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultOptions().Iterations
	}

	known := make(map[string]struct{}, n)
	for _, id := range nodeIDs {
		known[id] = struct{}{}
	}

	// out[u] lists v for each directed link u→v.
	out := make(map[string][]string, n)
	addLink := func(u, v string) {
		if _, ok := known[u]; !ok {
			return
		}
		if _, ok := known[v]; !ok {
			return
		}
		out[u] = append(out[u], v)
	}
	for _, e := range edges {
		switch e.Type {
		case types.EdgeCites:
			addLink(e.Source, e.Target)
		case types.EdgeCitedBy:
			addLink(e.Target, e.Source)
		default:
			addLink(e.Source, e.Target)
			addLink(e.Target, e.Source)
		}
	}

	nf := float64(n)
	base := (1 - opts.Damping) / nf

	rank := make(map[string]float64, n)
	for _, id := range nodeIDs {
		rank[id] = 1 / nf
	}

	for iter := 0; iter < opts.Iterations; iter++ {
		var danglingMass float64
		for _, id := range nodeIDs {
			if len(out[id]) == 0 {
				danglingMass += rank[id]
			}
		}
		danglingShare := opts.Damping * danglingMass / nf

		next := make(map[string]float64, n)
		for _, id := range nodeIDs {
			next[id] = base + danglingShare
		}
		for u, targets := range out {
			share := opts.Damping * rank[u] / float64(len(targets))
			for _, v := range targets {
				next[v] += share
			}
		}
		rank = next
	}

	return rank
}
