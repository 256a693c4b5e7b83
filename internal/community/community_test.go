// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package community

import (
	"reflect"
	"sort"
	"testing"

	"github.com/pdiddy/rabbithole/pkg/types"
)

func paperNode(id, title string) *types.GraphNode {
	return &types.GraphNode{
		ID:    id,
		Paper: types.PaperRecord{Title: title},
		State: types.StateMaterialized,
	}
}

func simEdge(a, b string, w float64) types.GraphEdge {
	return types.GraphEdge{ID: a + "~" + b, Source: a, Target: b, Type: types.EdgeSemanticSimilarity, Weight: w}
}

func fullyConnect(ids ...string) []types.GraphEdge {
	var edges []types.GraphEdge
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			edges = append(edges, simEdge(ids[i], ids[j], 1.0))
		}
	}
	return edges
}

func TestDetectEmptyGraph(t *testing.T) {
	got := NewDetector(0, 1).Detect(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("empty input must yield an empty (non-nil) cluster list, got %v", got)
	}
}

func TestDetectTwoDenseSubgraphs(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "graph layout"), paperNode("B", "graph layout"), paperNode("C", "graph layout"),
		paperNode("D", "protein folding"), paperNode("E", "protein folding"), paperNode("F", "protein folding"),
	}
	edges := append(fullyConnect("A", "B", "C"), fullyConnect("D", "E", "F")...)

	clusters := NewDetector(15, 42).Detect(nodes, edges)

	if len(clusters) != 2 {
		t.Fatalf("len(clusters) = %d, want 2: %+v", len(clusters), clusters)
	}

	var memberships [][]string
	for _, c := range clusters {
		m := append([]string{}, c.Members...)
		sort.Strings(m)
		memberships = append(memberships, m)
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i][0] < memberships[j][0] })

	if !reflect.DeepEqual(memberships[0], []string{"A", "B", "C"}) {
		t.Errorf("first cluster = %v, want [A B C]", memberships[0])
	}
	if !reflect.DeepEqual(memberships[1], []string{"D", "E", "F"}) {
		t.Errorf("second cluster = %v, want [D E F]", memberships[1])
	}
}

func TestDetectIsSeedReproducible(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "t"), paperNode("B", "t"), paperNode("C", "t"),
		paperNode("D", "t"), paperNode("E", "t"),
	}
	edges := append(fullyConnect("A", "B", "C"), simEdge("C", "D", 0.4), simEdge("D", "E", 0.9))

	first := NewDetector(15, 7).Detect(nodes, edges)
	second := NewDetector(15, 7).Detect(nodes, edges)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed must reproduce identical clusters:\n%v\n%v", first, second)
	}
}

func TestDetectRepeatedRunsOnSameDetectorAgree(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "t"), paperNode("B", "t"), paperNode("C", "t"),
		paperNode("D", "t"), paperNode("E", "t"),
	}
	edges := append(fullyConnect("A", "B", "C"), simEdge("C", "D", 0.4), simEdge("D", "E", 0.9))

	d := NewDetector(15, 7)
	first := d.Detect(nodes, edges)
	second := d.Detect(nodes, edges)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("one detector must reproduce identical clusters across runs:\n%v\n%v", first, second)
	}
}

func TestDetectIsolatedNodesStaySingleton(t *testing.T) {
	nodes := []*types.GraphNode{paperNode("A", "alpha"), paperNode("B", "beta")}

	clusters := NewDetector(15, 1).Detect(nodes, nil)

	if len(clusters) != 2 {
		t.Fatalf("len(clusters) = %d, want 2 singletons", len(clusters))
	}
}

func TestDetectWeightBeatsDegree(t *testing.T) {
	// X has two weak neighbors in one community and one strong neighbor
	// in another; the strong incident weight must win.
	nodes := []*types.GraphNode{
		paperNode("L1", "t"), paperNode("L2", "t"),
		paperNode("X", "t"), paperNode("S", "t"),
	}
	edges := []types.GraphEdge{
		simEdge("L1", "L2", 1.0),
		simEdge("X", "L1", 0.1),
		simEdge("X", "L2", 0.1),
		simEdge("X", "S", 0.9),
	}

	clusters := NewDetector(15, 3).Detect(nodes, edges)

	var xCluster, sCluster string
	for _, c := range clusters {
		for _, m := range c.Members {
			if m == "X" {
				xCluster = c.ID
			}
			if m == "S" {
				sCluster = c.ID
			}
		}
	}
	if xCluster != sCluster {
		t.Errorf("X should join its strongest neighbor's community: %+v", clusters)
	}
}

func TestDetectMembershipCoversAllNodes(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "t"), paperNode("B", "t"), paperNode("C", "t"), paperNode("D", "t"),
	}
	edges := []types.GraphEdge{simEdge("A", "B", 0.5), simEdge("C", "D", 0.5)}

	clusters := NewDetector(15, 1).Detect(nodes, edges)

	var all []string
	for _, c := range clusters {
		all = append(all, c.Members...)
	}
	sort.Strings(all)
	if !reflect.DeepEqual(all, []string{"A", "B", "C", "D"}) {
		t.Errorf("clusters must cover every node exactly once, got %v", all)
	}
}

// --- labeling ---

func TestLabelFromTitles(t *testing.T) {
	tests := []struct {
		name   string
		titles []string
		want   string
	}{
		{
			"dominant tokens",
			[]string{
				"Graph Neural Networks for Molecules",
				"Graph Neural Networks in Practice",
				"Scaling Graph Transformers",
			},
			"Graph / Networks / Neural",
		},
		{
			"per-title dedup",
			// "graph graph graph" counts once for this title.
			[]string{"Graph graph GRAPH", "Neural Advances", "Neural Advances Continued"},
			"Advances / Neural / Continued",
		},
		{
			"stop words and short tokens removed",
			[]string{"The and for of it"},
			DefaultLabel,
		},
		{
			"empty input",
			nil,
			DefaultLabel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelFromTitles(tt.titles); got != tt.want {
				t.Errorf("LabelFromTitles = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaletteColorCycles(t *testing.T) {
	if PaletteColor(0) != PaletteColor(len(palette)) {
		t.Error("palette must cycle by index")
	}
	if PaletteColor(3) == "" {
		t.Error("palette color must be non-empty")
	}
}

func TestColorForDeterministic(t *testing.T) {
	if ColorFor("cluster-x") != ColorFor("cluster-x") {
		t.Error("hash color must be deterministic")
	}
}

// --- merge / split ---

func titleMap(nodes []*types.GraphNode) map[string]string {
	m := make(map[string]string)
	for _, n := range nodes {
		m[n.ID] = n.Paper.Title
	}
	return m
}

func TestMergeClustersPreservesMembership(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "quantum computing"), paperNode("B", "quantum error"),
		paperNode("C", "quantum supremacy"),
	}
	a := types.Cluster{ID: "c1", Members: []string{"A", "B"}, Color: "#111111"}
	b := types.Cluster{ID: "c2", Members: []string{"B", "C"}}

	merged := MergeClusters(a, b, titleMap(nodes))

	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(merged.Members, want) {
		t.Errorf("merged members = %v, want %v", merged.Members, want)
	}
	if merged.Label == DefaultLabel || merged.Label == "" {
		t.Errorf("merge must relabel from joint membership, got %q", merged.Label)
	}
	if merged.Color != "#111111" {
		t.Errorf("merge keeps the first cluster's color, got %q", merged.Color)
	}
}

func TestSplitClusterPreservesMembership(t *testing.T) {
	nodes := []*types.GraphNode{
		paperNode("A", "transformers scaling"), paperNode("B", "transformers attention"),
		paperNode("C", "protein folding"), paperNode("D", "protein design"),
	}
	c := types.Cluster{ID: "c1", Members: []string{"A", "B", "C", "D"}, Color: "#222222"}

	first, second := SplitCluster(c, []string{"C", "D"}, titleMap(nodes))

	var all []string
	all = append(all, first.Members...)
	all = append(all, second.Members...)
	sort.Strings(all)
	if !reflect.DeepEqual(all, []string{"A", "B", "C", "D"}) {
		t.Errorf("split must not drop members, got %v", all)
	}
	if len(first.Members) != 2 || len(second.Members) != 2 {
		t.Errorf("split sizes = %d/%d, want 2/2", len(first.Members), len(second.Members))
	}
	if first.Label == second.Label {
		t.Errorf("each side should relabel from its own titles, both %q", first.Label)
	}
}

func TestSplitClusterUnknownSubsetIDs(t *testing.T) {
	c := types.Cluster{ID: "c1", Members: []string{"A", "B"}}

	first, second := SplitCluster(c, []string{"ghost"}, map[string]string{})

	if len(first.Members) != 0 {
		t.Errorf("unknown subset ids must extract nothing, got %v", first.Members)
	}
	if len(second.Members) != 2 {
		t.Errorf("remainder must keep all members, got %v", second.Members)
	}
}
