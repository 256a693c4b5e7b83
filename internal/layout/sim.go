// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout computes force-directed node placement in three modes:
// full relayout, incremental insertion, and ego-centric navigation.
// Implements: prd007-graph-core R6 (layout);
//
//	docs/ARCHITECTURE.md § Layout Engine.
//
// All layouts are deterministic given deterministic inputs: jitter comes
// from the engine's seeded generator and the simulation visits nodes in
// stable index order.
package layout

import (
	"math"
	"math/rand"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// simNode is one body in the force system.
type simNode struct {
	id     string
	x, y   float64
	vx, vy float64
	radius float64

	// fixed pins the node: forces accumulate nowhere and the position
	// never changes.
	fixed bool

	// hop is the BFS distance used by the radial force; -1 disables it.
	hop int

	// clusterTarget, when set, pulls the node toward its cluster
	// centroid.
	clusterTarget *types.Position
}

// simLink is a spring between two bodies, scaled by edge weight.
type simLink struct {
	source, target int
	weight         float64
}

// simConfig tunes the individual forces. Zero values disable a force.
type simConfig struct {
	repulsion       float64 // pairwise charge strength
	linkDistance    float64 // spring rest length
	linkStrength    float64 // spring stiffness multiplier
	centerStrength  float64 // pull toward the origin
	clusterStrength float64 // pull toward cluster centroids
	collide         bool    // resolve radius overlaps
	radialStrength  float64 // pull toward hop-based rings
	ringRadius      float64 // radius step per hop for the radial force
	startAlpha      float64 // initial alpha; 0 means a full reheat (1.0)
}

// simulation integrates the force system synchronously. The cadence
// mirrors a cooperative ticker: alpha decays each tick toward zero.
type simulation struct {
	nodes []*simNode
	links []simLink
	cfg   simConfig

	alpha         float64
	alphaDecay    float64
	velocityDecay float64
}

func newSimulation(nodes []*simNode, links []simLink, cfg simConfig) *simulation {
	alpha := cfg.startAlpha
	if alpha <= 0 {
		alpha = 1.0
	}
	return &simulation{
		nodes:         nodes,
		links:         links,
		cfg:           cfg,
		alpha:         alpha,
		alphaDecay:    0.028,
		velocityDecay: 0.6,
	}
}

// run advances the system a fixed number of ticks.
func (s *simulation) run(iterations int) {
	for i := 0; i < iterations; i++ {
		s.tick()
	}
}

// tick applies every enabled force once and integrates velocities.
func (s *simulation) tick() {
	s.alpha += (0 - s.alpha) * s.alphaDecay

	if s.cfg.repulsion > 0 {
		s.applyRepulsion()
	}
	if s.cfg.linkStrength > 0 {
		s.applyLinks()
	}
	if s.cfg.centerStrength > 0 {
		s.applyCentering()
	}
	if s.cfg.clusterStrength > 0 {
		s.applyClusterPull()
	}
	if s.cfg.radialStrength > 0 {
		s.applyRadial()
	}

	for _, n := range s.nodes {
		if n.fixed {
			n.vx, n.vy = 0, 0
			continue
		}
		n.vx *= s.velocityDecay
		n.vy *= s.velocityDecay
		n.x += n.vx
		n.y += n.vy
	}

	if s.cfg.collide {
		s.resolveCollisions()
	}
}

func (s *simulation) applyRepulsion() {
	for i := 0; i < len(s.nodes); i++ {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := s.nodes[i], s.nodes[j]
			dx := b.x - a.x
			dy := b.y - a.y
			distSq := dx*dx + dy*dy
			if distSq == 0 {
				// Coincident bodies: separate along a stable axis.
				dx, dy = 1e-3*float64(j-i), 1e-3
				distSq = dx*dx + dy*dy
			}
			f := s.cfg.repulsion * s.alpha / distSq
			fx := dx * f
			fy := dy * f
			if !a.fixed {
				a.vx -= fx
				a.vy -= fy
			}
			if !b.fixed {
				b.vx += fx
				b.vy += fy
			}
		}
	}
}

func (s *simulation) applyLinks() {
	for _, l := range s.links {
		a := s.nodes[l.source]
		b := s.nodes[l.target]
		dx := b.x + b.vx - a.x - a.vx
		dy := b.y + b.vy - a.y - a.vy
		dist := math.Hypot(dx, dy)
		if dist == 0 {
			dist = 1e-6
			dx = 1e-6
		}
		k := (dist - s.cfg.linkDistance) / dist * s.alpha * s.cfg.linkStrength * l.weight
		fx := dx * k
		fy := dy * k
		if !b.fixed {
			b.vx -= fx
			b.vy -= fy
		}
		if !a.fixed {
			a.vx += fx
			a.vy += fy
		}
	}
}

func (s *simulation) applyCentering() {
	for _, n := range s.nodes {
		if n.fixed {
			continue
		}
		n.vx -= n.x * s.cfg.centerStrength * s.alpha
		n.vy -= n.y * s.cfg.centerStrength * s.alpha
	}
}

func (s *simulation) applyClusterPull() {
	for _, n := range s.nodes {
		if n.fixed || n.clusterTarget == nil {
			continue
		}
		n.vx += (n.clusterTarget.X - n.x) * s.cfg.clusterStrength * s.alpha
		n.vy += (n.clusterTarget.Y - n.y) * s.cfg.clusterStrength * s.alpha
	}
}

// applyRadial pulls each node toward the ring radius for its hop.
func (s *simulation) applyRadial() {
	for _, n := range s.nodes {
		if n.fixed || n.hop < 0 {
			continue
		}
		r := math.Hypot(n.x, n.y)
		if r == 0 {
			continue
		}
		target := s.cfg.ringRadius * float64(n.hop)
		k := (target - r) / r * s.cfg.radialStrength * s.alpha
		n.vx += n.x * k
		n.vy += n.y * k
	}
}

// resolveCollisions pushes overlapping bodies apart directly in position
// space, splitting the correction between movable endpoints.
func (s *simulation) resolveCollisions() {
	for i := 0; i < len(s.nodes); i++ {
		for j := i + 1; j < len(s.nodes); j++ {
			a, b := s.nodes[i], s.nodes[j]
			minDist := a.radius + b.radius
			dx := b.x - a.x
			dy := b.y - a.y
			dist := math.Hypot(dx, dy)
			if dist >= minDist {
				continue
			}
			if dist == 0 {
				dx, dy, dist = 1e-3, 1e-3*float64(j-i+1), 1e-3
			}
			overlap := (minDist - dist) / dist
			shiftX := dx * overlap * 0.5
			shiftY := dy * overlap * 0.5
			switch {
			case a.fixed && b.fixed:
				// Both pinned: leave the overlap.
			case a.fixed:
				b.x += 2 * shiftX
				b.y += 2 * shiftY
			case b.fixed:
				a.x -= 2 * shiftX
				a.y -= 2 * shiftY
			default:
				a.x -= shiftX
				a.y -= shiftY
				b.x += shiftX
				b.y += shiftY
			}
		}
	}
}

// reheat resets alpha so the system moves again after convergence.
func (s *simulation) reheat() {
	s.alpha = 1.0
}

// positions copies the final coordinates into a rendering map.
func (s *simulation) positions() map[string]types.Position {
	out := make(map[string]types.Position, len(s.nodes))
	for _, n := range s.nodes {
		out[n.id] = types.Position{X: n.x, Y: n.y}
	}
	return out
}

// nodeRadius derives a collision radius from the node's rendered size,
// itself a function of citation count and relevance.
func nodeRadius(n *types.GraphNode) float64 {
	return 6 + math.Log1p(float64(n.Paper.CitationCount))*1.5 + n.Scores.Relevance*6
}

// jitter returns a small deterministic offset in [-scale, scale).
func jitter(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2 - 1) * scale
}
