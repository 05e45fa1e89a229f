package routing

import (
	"math"
	"testing"

	"github.com/paulmach/osm"

	"github.com/azybler/distance_matrix/pkg/ch"
	"github.com/azybler/distance_matrix/pkg/graph"
	osmparser "github.com/azybler/distance_matrix/pkg/osm"
)

func twoWay(from, to osm.NodeID, cost, length uint32) []osmparser.RawEdge {
	return []osmparser.RawEdge{
		{FromNodeID: from, ToNodeID: to, Cost: cost, Length: length},
		{FromNodeID: to, ToNodeID: from, Cost: cost, Length: length},
	}
}

var testNodes = map[osm.NodeID][2]float64{
	10: {1.0, 103.0}, 20: {1.0, 103.1}, 30: {1.0, 103.2},
	40: {1.1, 103.0}, 50: {1.1, 103.1}, 60: {1.1, 103.2},
}

// buildTestCH creates a test graph and its CH overlay.
//
//	10 ---100--- 20 ---200--- 30
//	 |         ^              |
//	300       150 (one way)   400
//	 |       /                |
//	40 ---500--- 50 ---600--- 60
//
// Costs are milliseconds, lengths millimeters.
func buildTestCH(t testing.TB) *graph.CHGraph {
	t.Helper()
	var edges []osmparser.RawEdge
	edges = append(edges, twoWay(10, 20, 100, 1000)...)
	edges = append(edges, twoWay(20, 30, 200, 1500)...)
	edges = append(edges, twoWay(10, 40, 300, 2500)...)
	edges = append(edges, twoWay(30, 60, 400, 3000)...)
	edges = append(edges, twoWay(40, 50, 500, 4000)...)
	edges = append(edges, twoWay(50, 60, 600, 5500)...)
	edges = append(edges, osmparser.RawEdge{FromNodeID: 40, ToNodeID: 20, Cost: 150, Length: 900})

	result := &osmparser.ParseResult{
		Edges:   edges,
		NodeLat: make(map[osm.NodeID]float64),
		NodeLon: make(map[osm.NodeID]float64),
	}
	for id, ll := range testNodes {
		result.NodeLat[id] = ll[0]
		result.NodeLon[id] = ll[1]
	}
	return ch.Contract(graph.Build(result))
}

// plainDijkstra runs standard Dijkstra on the base graph and returns the
// cost and length of the fastest path.
func plainDijkstra(g *graph.Graph, source, target uint32) (uint32, uint64) {
	cost := make([]uint32, g.NumNodes)
	length := make([]uint64, g.NumNodes)
	for i := range cost {
		cost[i] = math.MaxUint32
	}
	cost[source] = 0

	var h MinHeap
	h.Push(source, 0)
	for h.Len() > 0 {
		cur := h.Pop()
		if cur.Cost > cost[cur.Node] {
			continue
		}
		start, end := g.EdgesFrom(cur.Node)
		for e := start; e < end; e++ {
			v := g.Head[e]
			if c := cur.Cost + g.Cost[e]; c < cost[v] {
				cost[v] = c
				length[v] = length[cur.Node] + uint64(g.Length[e])
				h.Push(v, c)
			}
		}
	}
	return cost[target], length[target]
}

func TestMinHeap(t *testing.T) {
	var h MinHeap

	h.Push(1, 30)
	h.Push(2, 10)
	h.Push(3, 20)

	if h.PeekCost() != 10 {
		t.Errorf("PeekCost = %d, want 10", h.PeekCost())
	}

	for _, want := range []PQItem{{2, 10}, {3, 20}, {1, 30}} {
		if got := h.Pop(); got != want {
			t.Errorf("Pop = %+v, want %+v", got, want)
		}
	}

	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
	if h.PeekCost() != infCost {
		t.Errorf("PeekCost on empty heap = %d, want infCost", h.PeekCost())
	}
}

func TestQueryStateReset(t *testing.T) {
	qs := NewQueryState(4)
	qs.seedFwd(1, 10, 100)
	qs.seedBwd(2, 20, 200)
	qs.seedFwd(1, 15, 150) // worse, ignored

	if qs.CostFwd[1] != 10 || qs.LenFwd[1] != 100 {
		t.Fatalf("fwd seed = (%d, %d), want (10, 100)", qs.CostFwd[1], qs.LenFwd[1])
	}
	if len(qs.Touched) != 2 {
		t.Fatalf("touched = %v, want 2 nodes", qs.Touched)
	}

	qs.Reset()
	for i := range 4 {
		if qs.CostFwd[i] != infCost || qs.CostBwd[i] != infCost || qs.LenFwd[i] != 0 || qs.LenBwd[i] != 0 {
			t.Errorf("node %d not cleared", i)
		}
	}
	if len(qs.Touched) != 0 || qs.FwdPQ.Len() != 0 || qs.BwdPQ.Len() != 0 {
		t.Error("Reset left queued state behind")
	}
}
