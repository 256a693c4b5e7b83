// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/pdiddy/rabbithole/pkg/types"
)

func testEngine() *Engine {
	return NewEngine(types.LayoutConfig{Seed: 1})
}

func layoutNode(id string) *types.GraphNode {
	return &types.GraphNode{ID: id, State: types.StateMaterialized}
}

func layoutNodes(ids ...string) []*types.GraphNode {
	out := make([]*types.GraphNode, 0, len(ids))
	for _, id := range ids {
		out = append(out, layoutNode(id))
	}
	return out
}

func citesEdge(src, tgt string) types.GraphEdge {
	return types.GraphEdge{ID: src + ">" + tgt, Source: src, Target: tgt, Type: types.EdgeCites, Weight: 1}
}

func relEdge(a, b string) types.GraphEdge {
	return types.GraphEdge{ID: a + "~" + b, Source: a, Target: b, Type: types.EdgeSameAuthor, Weight: 0.5}
}

// --- full layout ---

func TestFullLayoutEmptyGraph(t *testing.T) {
	got := testEngine().Full(nil, nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("empty graph must yield an empty map, got %v", got)
	}
}

func TestFullLayoutZeroEdgesIsDeterministicGrid(t *testing.T) {
	nodes := layoutNodes("a", "b", "c", "d", "e")

	first := testEngine().Full(nodes, nil, nil)
	second := testEngine().Full(nodes, nil, nil)

	if !reflect.DeepEqual(first, second) {
		t.Error("zero-edge layout must be deterministic across runs")
	}

	// 5 nodes → ceil(√5) = 3 columns: distinct grid positions.
	seen := make(map[types.Position]bool)
	for _, p := range first {
		if seen[p] {
			t.Errorf("grid positions must be distinct, %v repeated", p)
		}
		seen[p] = true
	}

	// Row structure: a, b, c share a row; d, e the next.
	if first["a"].Y != first["b"].Y || first["b"].Y != first["c"].Y {
		t.Error("first three nodes should share the top grid row")
	}
	if first["d"].Y != first["e"].Y || first["d"].Y == first["a"].Y {
		t.Error("fourth and fifth nodes should share the second row")
	}
}

func TestFullLayoutDeterministicWithEdges(t *testing.T) {
	nodes := layoutNodes("a", "b", "c", "d")
	edges := []types.GraphEdge{citesEdge("a", "b"), citesEdge("b", "c"), relEdge("c", "d")}

	first := testEngine().Full(nodes, edges, nil)
	second := testEngine().Full(nodes, edges, nil)

	if !reflect.DeepEqual(first, second) {
		t.Error("full layout must be reproducible for identical inputs")
	}
	if len(first) != 4 {
		t.Errorf("len(positions) = %d, want 4", len(first))
	}
}

func TestFullLayoutConnectedCloserThanDisconnected(t *testing.T) {
	nodes := layoutNodes("a", "b", "z")
	edges := []types.GraphEdge{citesEdge("a", "b")}

	pos := testEngine().Full(nodes, edges, nil)

	ab := dist(pos["a"], pos["b"])
	az := dist(pos["a"], pos["z"])
	if ab >= az {
		t.Errorf("linked nodes should sit closer: |ab|=%f |az|=%f", ab, az)
	}
}

func TestFullLayoutClusterPull(t *testing.T) {
	nodes := layoutNodes("a", "b", "c", "d")
	edges := []types.GraphEdge{relEdge("a", "b"), relEdge("c", "d")}
	centroid := types.Position{X: 300, Y: 300}
	clusters := []types.Cluster{{ID: "c1", Members: []string{"a", "b"}, Centroid: &centroid}}

	pos := testEngine().Full(nodes, edges, clusters)

	// Cluster members should end up on the centroid side of the graph.
	if pos["a"].X <= pos["c"].X && pos["a"].Y <= pos["c"].Y {
		t.Errorf("cluster members should drift toward their centroid: a=%v c=%v", pos["a"], pos["c"])
	}
}

// --- incremental layout ---

func TestIncrementalPinsExistingNodes(t *testing.T) {
	existing := map[string]types.Position{
		"a": {X: -50, Y: 0},
		"b": {X: 50, Y: 0},
	}
	newNodes := layoutNodes("c")
	edges := []types.GraphEdge{citesEdge("c", "a"), citesEdge("c", "b")}

	got := testEngine().Incremental(existing, newNodes, edges)

	if _, moved := got["a"]; moved {
		t.Error("result must cover only new nodes")
	}
	if _, ok := got["c"]; !ok {
		t.Fatal("new node missing from result")
	}
}

func TestIncrementalSeedsNearConnectedNeighbors(t *testing.T) {
	existing := map[string]types.Position{
		"a": {X: -40, Y: 0},
		"b": {X: 40, Y: 0},
		"far": {X: 2000, Y: 2000},
	}
	newNodes := layoutNodes("c")
	edges := []types.GraphEdge{citesEdge("c", "a"), citesEdge("c", "b")}

	got := testEngine().Incremental(existing, newNodes, edges)

	// Neighbor centroid is (0,0); the new node should land near it,
	// nowhere near the far outlier.
	if d := math.Hypot(got["c"].X, got["c"].Y); d > 120 {
		t.Errorf("connected newcomer should sit near its neighbors, got distance %f", d)
	}
}

func TestIncrementalUnconnectedSeedsNearGraphCentroid(t *testing.T) {
	existing := map[string]types.Position{
		"a": {X: 100, Y: 100},
		"b": {X: 140, Y: 100},
	}
	newNodes := layoutNodes("loner")

	got := testEngine().Incremental(existing, newNodes, nil)

	center := types.Position{X: 120, Y: 100}
	if d := dist(got["loner"], center); d > 300 {
		t.Errorf("unconnected newcomer must stay near the graph centroid, got distance %f", d)
	}
}

func TestIncrementalUnconnectedStaysNearOffsetCentroid(t *testing.T) {
	// A graph living far from the origin: the centering force must pull
	// toward the graph's own centroid, not back toward (0,0).
	existing := map[string]types.Position{
		"a": {X: 900, Y: 900},
		"b": {X: 940, Y: 900},
		"c": {X: 920, Y: 940},
	}
	newNodes := layoutNodes("loner")

	got := testEngine().Incremental(existing, newNodes, nil)

	center := centroidOf(existing)
	if d := dist(got["loner"], center); d > 200 {
		t.Errorf("newcomer must settle near the graph centroid, got distance %f", d)
	}
}

func TestIncrementalNoNewNodes(t *testing.T) {
	got := testEngine().Incremental(map[string]types.Position{"a": {}}, nil, nil)
	if len(got) != 0 {
		t.Errorf("no new nodes → empty result, got %v", got)
	}
}

// --- ego layout ---

func TestEgoFocusAlwaysAtOrigin(t *testing.T) {
	graphs := []struct {
		name  string
		nodes []*types.GraphNode
		edges []types.GraphEdge
	}{
		{"single node", layoutNodes("f"), nil},
		{"star", layoutNodes("f", "a", "b", "c"), []types.GraphEdge{citesEdge("a", "f"), citesEdge("f", "b"), relEdge("f", "c")}},
		{"disconnected", layoutNodes("f", "x", "y"), []types.GraphEdge{relEdge("x", "y")}},
	}
	for _, g := range graphs {
		t.Run(g.name, func(t *testing.T) {
			pos := testEngine().Ego("f", g.nodes, g.edges)
			f := pos["f"]
			if f.X != 0 || f.Y != 0 {
				t.Errorf("focus position = %v, want origin", f)
			}
		})
	}
}

func TestEgoParentsAboveChildrenBelow(t *testing.T) {
	// p cites f (parent); f cites c (child). Screen up is negative y.
	nodes := layoutNodes("f", "p", "c")
	edges := []types.GraphEdge{citesEdge("p", "f"), citesEdge("f", "c")}

	pos := testEngine().Ego("f", nodes, edges)

	if pos["p"].Y >= 0 {
		t.Errorf("parent should sit above the focus, got y=%f", pos["p"].Y)
	}
	if pos["c"].Y <= 0 {
		t.Errorf("child should sit below the focus, got y=%f", pos["c"].Y)
	}
}

func TestEgoCitedByCountsAsParentReversed(t *testing.T) {
	// "f cited-by p" means p cites f — p is a parent.
	nodes := layoutNodes("f", "p")
	edges := []types.GraphEdge{{ID: "e", Source: "f", Target: "p", Type: types.EdgeCitedBy, Weight: 1}}

	pos := testEngine().Ego("f", nodes, edges)

	if pos["p"].Y >= 0 {
		t.Errorf("cited-by neighbor should classify as parent (above), got y=%f", pos["p"].Y)
	}
}

func TestEgoSiblingsOnTheSides(t *testing.T) {
	nodes := layoutNodes("f", "s1", "s2")
	edges := []types.GraphEdge{relEdge("f", "s1"), relEdge("f", "s2")}

	pos := testEngine().Ego("f", nodes, edges)

	if math.Abs(pos["s1"].X) < math.Abs(pos["s1"].Y) {
		t.Errorf("sibling should sit to the side, got %v", pos["s1"])
	}
	// The two siblings split across sides.
	if pos["s1"].X*pos["s2"].X > 0 {
		t.Errorf("siblings should split left/right: %v and %v", pos["s1"], pos["s2"])
	}
}

func TestEgoHopsRingOutward(t *testing.T) {
	nodes := layoutNodes("f", "h1", "h2")
	edges := []types.GraphEdge{citesEdge("f", "h1"), citesEdge("h1", "h2")}

	pos := testEngine().Ego("f", nodes, edges)

	r1 := math.Hypot(pos["h1"].X, pos["h1"].Y)
	r2 := math.Hypot(pos["h2"].X, pos["h2"].Y)
	if r2 <= r1 {
		t.Errorf("hop-2 should sit further out: r1=%f r2=%f", r1, r2)
	}
}

func TestEgoUnreachableNodesFarOut(t *testing.T) {
	e := NewEngine(types.LayoutConfig{Seed: 1, EgoMaxHops: 2, RingRadius: 100})
	nodes := layoutNodes("f", "n", "island")
	edges := []types.GraphEdge{citesEdge("f", "n")}

	pos := e.Ego("f", nodes, edges)

	rIsland := math.Hypot(pos["island"].X, pos["island"].Y)
	rN := math.Hypot(pos["n"].X, pos["n"].Y)
	if rIsland <= rN {
		t.Errorf("unreachable node must sit beyond reachable ones: %f vs %f", rIsland, rN)
	}
	// Seeded at ringRadius*(maxHops+1); cleanup may relax it slightly.
	if rIsland < 200 {
		t.Errorf("unreachable radius = %f, want ≥ 2 rings out", rIsland)
	}
}

func TestEgoPositionsEveryNode(t *testing.T) {
	nodes := layoutNodes("f", "a", "b", "c", "d")
	edges := []types.GraphEdge{citesEdge("a", "f"), relEdge("b", "c")}

	pos := testEngine().Ego("f", nodes, edges)

	if len(pos) != len(nodes) {
		t.Errorf("len(positions) = %d, want %d", len(pos), len(nodes))
	}
}

// --- animator ---

// manualScheduler runs callbacks only when the test pumps them.
type manualScheduler struct {
	pending  []func()
	released int
}

func (m *manualScheduler) schedule(_ time.Duration, f func()) func() {
	m.pending = append(m.pending, f)
	return func() { m.released++ }
}

func (m *manualScheduler) pump() bool {
	if len(m.pending) == 0 {
		return false
	}
	f := m.pending[0]
	m.pending = m.pending[1:]
	f()
	return true
}

func TestAnimatorTicksAndReportsPositions(t *testing.T) {
	var ticks int
	a := NewAnimator(testEngine(), layoutNodes("a", "b"), []types.GraphEdge{relEdge("a", "b")}, nil,
		func(map[string]types.Position) { ticks++ })
	ms := &manualScheduler{}
	a.SetScheduler(ms.schedule)

	a.Start()
	for i := 0; i < 5; i++ {
		if !ms.pump() {
			break
		}
	}

	if ticks != 5 {
		t.Errorf("ticks = %d, want 5", ticks)
	}
	if len(a.Positions()) != 2 {
		t.Errorf("positions = %d nodes, want 2", len(a.Positions()))
	}
}

func TestAnimatorStopReleasesHandle(t *testing.T) {
	a := NewAnimator(testEngine(), layoutNodes("a"), nil, nil, nil)
	ms := &manualScheduler{}
	a.SetScheduler(ms.schedule)

	a.Start()
	a.Stop()

	if ms.released == 0 {
		t.Error("Stop must cancel the outstanding schedule handle")
	}
	if a.Running() {
		t.Error("animator should report stopped")
	}

	// A stale callback firing after Stop must not tick or reschedule.
	before := len(ms.pending)
	ms.pump()
	if len(ms.pending) >= before && before > 0 {
		t.Error("stopped animator must not reschedule")
	}
}

func TestAnimatorReheatRestarts(t *testing.T) {
	a := NewAnimator(testEngine(), layoutNodes("a", "b"), nil, nil, nil)
	ms := &manualScheduler{}
	a.SetScheduler(ms.schedule)

	a.Start()
	a.Stop()
	a.Reheat()

	if !a.Running() {
		t.Error("Reheat on a stopped animator must restart it")
	}
}

func dist(a, b types.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
