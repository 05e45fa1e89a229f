package graph

import (
	"testing"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/distance_matrix/pkg/osm"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	if !uf.Union(0, 1) {
		t.Error("Union(0, 1) = false, want true")
	}
	uf.Union(2, 3)
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}
	if uf.Union(1, 0) {
		t.Error("Union(1, 0) on joined sets = true, want false")
	}

	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
	if uf.Size(2) != 4 {
		t.Errorf("Size(2) = %d, want 4", uf.Size(2))
	}
	if uf.Size(4) != 1 {
		t.Errorf("Size(4) = %d, want 1", uf.Size(4))
	}
}

// twoIslands is a triangle 10-20-30 plus a separate pair 40-50.
func twoIslands() *osmparser.ParseResult {
	return &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, Length: 100, Cost: 10},
			{FromNodeID: 20, ToNodeID: 30, Length: 200, Cost: 20},
			{FromNodeID: 30, ToNodeID: 10, Length: 300, Cost: 30},
			{FromNodeID: 40, ToNodeID: 50, Length: 400, Cost: 40},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1, 30: 1.2, 40: 2.0, 50: 2.1},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2, 40: 104.0, 50: 104.1},
	}
}

func TestLargestComponent(t *testing.T) {
	g := Build(twoIslands())
	nodes := LargestComponent(g)
	if len(nodes) != 3 {
		t.Fatalf("LargestComponent has %d nodes, want 3", len(nodes))
	}
	for i := 1; i < len(nodes); i++ {
		if nodes[i] <= nodes[i-1] {
			t.Errorf("nodes not ascending: %v", nodes)
		}
	}
}

func TestFilterToComponent(t *testing.T) {
	g := Build(twoIslands())
	filtered := FilterToComponent(g, LargestComponent(g))

	if filtered.NumNodes != 3 || filtered.NumEdges != 3 {
		t.Fatalf("filtered = %d nodes, %d edges, want 3/3", filtered.NumNodes, filtered.NumEdges)
	}
	checkCSR(t, filtered)

	var length, cost uint32
	for i := range filtered.Head {
		length += filtered.Length[i]
		cost += filtered.Cost[i]
	}
	if length != 600 || cost != 60 {
		t.Errorf("totals = (%d, %d), want (600, 60)", length, cost)
	}
	for _, lat := range filtered.NodeLat {
		if lat >= 2.0 {
			t.Errorf("node from the small island survived: lat=%f", lat)
		}
	}
}

func TestFilterToComponentEmptyGraph(t *testing.T) {
	g := &Graph{}
	if nodes := LargestComponent(g); nodes != nil {
		t.Errorf("expected nil for empty graph, got %v", nodes)
	}
	filtered := FilterToComponent(g, nil)
	if filtered.NumNodes != 0 || filtered.NumEdges != 0 {
		t.Errorf("expected empty graph, got %d nodes, %d edges", filtered.NumNodes, filtered.NumEdges)
	}
}
