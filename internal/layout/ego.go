// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"math"
	"sort"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// Arc spans for hop-1 neighbor groups, in radians. Screen convention:
// negative y is up.
const (
	parentArcSpan  = math.Pi * 0.8
	siblingArcSpan = math.Pi * 0.5
)

// Ego computes a focus-centric layout. The focus sits at the origin;
// hop-1 neighbors fan into arcs by role (parents above, children below,
// siblings split left/right); deeper hops ring outward near the neighbor
// that reached them; unreachable nodes land beyond the last ring. A short
// collision/radial pass then relaxes overlaps, after which the focus is
// re-pinned to the origin. For an unknown focus id every node is
// unreachable, still yielding well-defined positions.
func (e *Engine) Ego(focusID string, nodes []*types.GraphNode, edges []types.GraphEdge) map[string]types.Position {
	if len(nodes) == 0 {
		return map[string]types.Position{}
	}
	rng := e.rng()
	ring := e.cfg.RingRadius
	maxHops := e.cfg.EgoMaxHops

	ordered := sortedByID(nodes)
	known := make(map[string]*types.GraphNode, len(ordered))
	for _, n := range ordered {
		known[n.ID] = n
	}

	hop := bfsHops(focusID, known, edges, maxHops)

	pos := make(map[string]types.Position, len(ordered))
	pos[focusID] = types.Position{}

	placeHopOne(focusID, ordered, edges, hop, ring, pos)
	placeOuterHops(ordered, edges, hop, maxHops, ring, pos, rng)

	// Unreachable nodes go far out, evenly spread.
	var unreachable []*types.GraphNode
	for _, n := range ordered {
		if _, ok := hop[n.ID]; !ok && n.ID != focusID {
			unreachable = append(unreachable, n)
		}
	}
	farRadius := ring * float64(maxHops+1)
	for i, n := range unreachable {
		angle := 2 * math.Pi * float64(i) / float64(len(unreachable))
		pos[n.ID] = types.Position{X: math.Cos(angle) * farRadius, Y: math.Sin(angle) * farRadius}
	}

	// Relaxation pass: collisions plus a radial pull to each hop ring.
	simNodes := make([]*simNode, 0, len(ordered))
	for _, n := range ordered {
		p := pos[n.ID]
		h, reachable := hop[n.ID]
		if !reachable {
			h = maxHops + 1
		}
		simNodes = append(simNodes, &simNode{
			id:     n.ID,
			x:      p.X,
			y:      p.Y,
			radius: nodeRadius(n),
			hop:    h,
			fixed:  n.ID == focusID,
		})
	}
	sim := newSimulation(simNodes, nil, simConfig{
		collide:        true,
		radialStrength: 0.6,
		ringRadius:     ring,
	})
	sim.run(e.cfg.EgoCleanupIterations)

	out := sim.positions()
	// The focus overrides any simulation drift.
	out[focusID] = types.Position{}
	return out
}

// neighborRole classifies a hop-1 neighbor relative to the focus.
type neighborRole int

const (
	roleParent neighborRole = iota // cites the focus
	roleChild                      // cited by the focus
	roleSibling                    // relational link, either direction
)

// roleOf classifies the far endpoint of an edge incident to the focus.
func roleOf(focusID string, e types.GraphEdge) (string, neighborRole, bool) {
	if !e.Type.IsCitation() {
		switch focusID {
		case e.Source:
			return e.Target, roleSibling, true
		case e.Target:
			return e.Source, roleSibling, true
		}
		return "", 0, false
	}

	// Normalize cited-by to the cites direction.
	src, tgt := e.Source, e.Target
	if e.Type == types.EdgeCitedBy {
		src, tgt = tgt, src
	}
	switch focusID {
	case tgt:
		return src, roleParent, true
	case src:
		return tgt, roleChild, true
	}
	return "", 0, false
}

// placeHopOne fans the immediate neighbors into their role arcs.
func placeHopOne(focusID string, ordered []*types.GraphNode, edges []types.GraphEdge, hop map[string]int, ring float64, pos map[string]types.Position) {
	roles := make(map[string]neighborRole)
	for _, e := range edges {
		id, role, ok := roleOf(focusID, e)
		if !ok || hop[id] != 1 {
			continue
		}
		// A parent/child classification outranks sibling when several
		// edges connect the same pair.
		if existing, seen := roles[id]; seen && existing != roleSibling {
			continue
		}
		roles[id] = role
	}

	var parents, children, siblings []string
	for _, n := range ordered {
		if hop[n.ID] != 1 {
			continue
		}
		switch roles[n.ID] {
		case roleParent:
			parents = append(parents, n.ID)
		case roleChild:
			children = append(children, n.ID)
		default:
			siblings = append(siblings, n.ID)
		}
	}

	placeArc(parents, -math.Pi/2, parentArcSpan, ring, pos)
	placeArc(children, math.Pi/2, parentArcSpan, ring, pos)

	// Siblings alternate left and right.
	var left, right []string
	for i, id := range siblings {
		if i%2 == 0 {
			right = append(right, id)
		} else {
			left = append(left, id)
		}
	}
	placeArc(right, 0, siblingArcSpan, ring, pos)
	placeArc(left, math.Pi, siblingArcSpan, ring, pos)
}

// placeArc spaces members evenly across an arc centered on centerAngle.
func placeArc(ids []string, centerAngle, span, radius float64, pos map[string]types.Position) {
	n := len(ids)
	if n == 0 {
		return
	}
	for i, id := range ids {
		angle := centerAngle
		if n > 1 {
			angle = centerAngle - span/2 + span*float64(i)/float64(n-1)
		}
		pos[id] = types.Position{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}
	}
}

// placeOuterHops positions hop ≥ 2 nodes near an already-placed neighbor
// one hop closer, at increasing radius with angular jitter.
func placeOuterHops(ordered []*types.GraphNode, edges []types.GraphEdge, hop map[string]int, maxHops int, ring float64, pos map[string]types.Position, rng interface{ Float64() float64 }) {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for _, ids := range adj {
		sort.Strings(ids)
	}

	for h := 2; h <= maxHops; h++ {
		for _, n := range ordered {
			if hop[n.ID] != h {
				continue
			}
			var anchor *types.Position
			for _, nb := range adj[n.ID] {
				if hop[nb] == h-1 {
					if p, ok := pos[nb]; ok {
						anchor = &p
						break
					}
				}
			}
			radius := ring * float64(h)
			var angle float64
			if anchor != nil {
				angle = math.Atan2(anchor.Y, anchor.X)
			} else {
				angle = rng.Float64() * 2 * math.Pi
			}
			angle += (rng.Float64() - 0.5) * 0.6
			pos[n.ID] = types.Position{X: math.Cos(angle) * radius, Y: math.Sin(angle) * radius}
		}
	}
}

// bfsHops returns hop distance from the focus for every node reachable
// within maxHops, treating all edge types as traversable both ways.
func bfsHops(focusID string, known map[string]*types.GraphNode, edges []types.GraphEdge, maxHops int) map[string]int {
	hop := make(map[string]int)
	if _, ok := known[focusID]; !ok {
		return hop
	}

	adj := make(map[string][]string)
	for _, e := range edges {
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	for _, ids := range adj {
		sort.Strings(ids)
	}

	hop[focusID] = 0
	frontier := []string{focusID}
	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, nb := range adj[id] {
				if _, seen := hop[nb]; seen {
					continue
				}
				hop[nb] = depth
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return hop
}
