// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// gridSpacing separates nodes in the zero-edge fallback grid.
const gridSpacing = 90.0

// Engine computes layouts with configured iteration counts and a seeded
// generator for jitter.
type Engine struct {
	cfg  types.LayoutConfig
	seed int64
}

// NewEngine returns an engine. Zero-valued config fields fall back to the
// documented defaults.
func NewEngine(cfg types.LayoutConfig) *Engine {
	def := types.DefaultCoreConfig().Layout
	if cfg.FullIterations <= 0 {
		cfg.FullIterations = def.FullIterations
	}
	if cfg.IncrementalIterations <= 0 {
		cfg.IncrementalIterations = def.IncrementalIterations
	}
	if cfg.EgoCleanupIterations <= 0 {
		cfg.EgoCleanupIterations = def.EgoCleanupIterations
	}
	if cfg.EgoMaxHops <= 0 {
		cfg.EgoMaxHops = def.EgoMaxHops
	}
	if cfg.RingRadius <= 0 {
		cfg.RingRadius = def.RingRadius
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	return &Engine{cfg: cfg, seed: cfg.Seed}
}

// rng returns a fresh seeded generator so each layout call is independent
// of how many layouts ran before it.
func (e *Engine) rng() *rand.Rand {
	return rand.New(rand.NewSource(e.seed))
}

// Full computes a complete relayout. With zero edges the simulation is
// skipped and nodes land on a compact ceil(√n)-column grid, which keeps a
// bare graph stable instead of scattering. Cluster centroids, when
// supplied, add an attraction force on members.
func (e *Engine) Full(nodes []*types.GraphNode, edges []types.GraphEdge, clusters []types.Cluster) map[string]types.Position {
	if len(nodes) == 0 {
		return map[string]types.Position{}
	}

	ordered := sortedByID(nodes)

	if len(edges) == 0 {
		return gridPositions(ordered)
	}

	simNodes, index := e.seedRadial(ordered)
	attachClusterTargets(simNodes, index, clusters)
	links := buildLinks(edges, index)

	sim := newSimulation(simNodes, links, simConfig{
		repulsion:       900,
		linkDistance:    80,
		linkStrength:    0.7,
		centerStrength:  0.05,
		clusterStrength: 0.12,
		collide:         true,
	})
	sim.run(e.cfg.FullIterations)
	return sim.positions()
}

// Incremental places newNodes into a graph whose existing nodes keep their
// positions. New nodes with an edge to a positioned node seed near the
// centroid of those neighbors; unconnected newcomers seed near the overall
// graph centroid at a random angle, never at a far periphery. Existing
// nodes are pinned throughout; the returned map covers only the new nodes.
//
// The simulation runs in centroid-relative coordinates so the centering
// force pulls toward the graph's own center, and starts cool so seeded
// positions settle instead of scattering.
func (e *Engine) Incremental(existing map[string]types.Position, newNodes []*types.GraphNode, edges []types.GraphEdge) map[string]types.Position {
	if len(newNodes) == 0 {
		return map[string]types.Position{}
	}
	rng := e.rng()

	center := centroidOf(existing)

	// Neighbor adjacency restricted to positioned nodes.
	neighborPos := make(map[string][]types.Position)
	for _, edge := range edges {
		if p, ok := existing[edge.Source]; ok {
			neighborPos[edge.Target] = append(neighborPos[edge.Target], p)
		}
		if p, ok := existing[edge.Target]; ok {
			neighborPos[edge.Source] = append(neighborPos[edge.Source], p)
		}
	}

	var simNodes []*simNode
	index := make(map[string]int)

	existingIDs := make([]string, 0, len(existing))
	for id := range existing {
		existingIDs = append(existingIDs, id)
	}
	sort.Strings(existingIDs)
	for _, id := range existingIDs {
		p := existing[id]
		index[id] = len(simNodes)
		simNodes = append(simNodes, &simNode{id: id, x: p.X - center.X, y: p.Y - center.Y, fixed: true, radius: 10, hop: -1})
	}
	// New nodes seed in sorted order so jitter assignment is reproducible.
	for _, n := range sortedByID(newNodes) {
		if _, dup := index[n.ID]; dup {
			continue
		}
		var x, y float64
		if ps := neighborPos[n.ID]; len(ps) > 0 {
			var cx, cy float64
			for _, p := range ps {
				cx += p.X
				cy += p.Y
			}
			cx /= float64(len(ps))
			cy /= float64(len(ps))
			x = cx - center.X + jitter(rng, 18)
			y = cy - center.Y + jitter(rng, 18)
		} else {
			angle := rng.Float64() * 2 * math.Pi
			radius := 60 + rng.Float64()*60
			x = math.Cos(angle) * radius
			y = math.Sin(angle) * radius
		}
		index[n.ID] = len(simNodes)
		simNodes = append(simNodes, &simNode{id: n.ID, x: x, y: y, radius: nodeRadius(n), hop: -1})
	}

	sim := newSimulation(simNodes, buildLinks(edges, index), simConfig{
		repulsion:      700,
		linkDistance:   80,
		linkStrength:   0.7,
		centerStrength: 0.02,
		collide:        true,
		startAlpha:     0.3,
	})
	sim.run(e.cfg.IncrementalIterations)

	out := make(map[string]types.Position, len(newNodes))
	for _, n := range newNodes {
		if i, ok := index[n.ID]; ok {
			out[n.ID] = types.Position{X: simNodes[i].x + center.X, Y: simNodes[i].y + center.Y}
		}
	}
	return out
}

// seedRadial places nodes deterministically on a phyllotaxis spiral so the
// simulation starts from a reproducible arrangement.
func (e *Engine) seedRadial(ordered []*types.GraphNode) ([]*simNode, map[string]int) {
	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	simNodes := make([]*simNode, 0, len(ordered))
	index := make(map[string]int, len(ordered))
	for i, n := range ordered {
		r := 12 * math.Sqrt(float64(i)+0.5)
		a := goldenAngle * float64(i)
		index[n.ID] = i
		simNodes = append(simNodes, &simNode{
			id:     n.ID,
			x:      r * math.Cos(a),
			y:      r * math.Sin(a),
			radius: nodeRadius(n),
			hop:    -1,
		})
	}
	return simNodes, index
}

// gridPositions lays nodes on a ceil(√n)-column grid centered on the
// origin. Deterministic: same node set, same result.
func gridPositions(ordered []*types.GraphNode) map[string]types.Position {
	n := len(ordered)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))
	offsetX := float64(cols-1) * gridSpacing / 2
	offsetY := float64(rows-1) * gridSpacing / 2

	out := make(map[string]types.Position, n)
	for i, node := range ordered {
		col := i % cols
		row := i / cols
		out[node.ID] = types.Position{
			X: float64(col)*gridSpacing - offsetX,
			Y: float64(row)*gridSpacing - offsetY,
		}
	}
	return out
}

func attachClusterTargets(simNodes []*simNode, index map[string]int, clusters []types.Cluster) {
	for _, c := range clusters {
		if c.Centroid == nil {
			continue
		}
		target := *c.Centroid
		for _, id := range c.Members {
			if i, ok := index[id]; ok {
				simNodes[i].clusterTarget = &target
			}
		}
	}
}

func buildLinks(edges []types.GraphEdge, index map[string]int) []simLink {
	links := make([]simLink, 0, len(edges))
	for _, e := range edges {
		si, ok := index[e.Source]
		if !ok {
			continue
		}
		ti, ok := index[e.Target]
		if !ok || si == ti {
			continue
		}
		w := e.Weight
		if w <= 0 {
			w = 0.1
		}
		links = append(links, simLink{source: si, target: ti, weight: w})
	}
	return links
}

func sortedByID(nodes []*types.GraphNode) []*types.GraphNode {
	ordered := make([]*types.GraphNode, len(nodes))
	copy(ordered, nodes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	return ordered
}

func centroidOf(positions map[string]types.Position) types.Position {
	if len(positions) == 0 {
		return types.Position{}
	}
	var cx, cy float64
	for _, p := range positions {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(positions))
	return types.Position{X: cx / n, Y: cy / n}
}
