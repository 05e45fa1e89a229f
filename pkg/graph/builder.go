package graph

import (
	"cmp"
	"slices"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/distance_matrix/pkg/osm"
)

// csrEdge is an edge with compact node indices, used while assembling CSR arrays.
type csrEdge struct {
	from, to     uint32
	length, cost uint32
}

// Build creates a CSR Graph from parsed OSM edges. Node indices are assigned
// in order of first appearance. When several edges join the same ordered pair
// only the cheapest one is kept.
func Build(result *osmparser.ParseResult) *Graph {
	if len(result.Edges) == 0 {
		return &Graph{}
	}

	index := make(map[osm.NodeID]uint32)
	var ids []osm.NodeID
	nodeIndex := func(id osm.NodeID) uint32 {
		if idx, ok := index[id]; ok {
			return idx
		}
		idx := uint32(len(ids))
		index[id] = idx
		ids = append(ids, id)
		return idx
	}

	edges := make([]csrEdge, 0, len(result.Edges))
	for _, e := range result.Edges {
		from, to := nodeIndex(e.FromNodeID), nodeIndex(e.ToNodeID)
		if from == to {
			continue
		}
		edges = append(edges, csrEdge{from: from, to: to, length: e.Length, cost: e.Cost})
	}

	lat := make([]float64, len(ids))
	lon := make([]float64, len(ids))
	for i, id := range ids {
		lat[i] = result.NodeLat[id]
		lon[i] = result.NodeLon[id]
	}

	return assemble(uint32(len(ids)), edges, lat, lon)
}

// assemble sorts edges, drops parallel duplicates and lays them out as CSR.
func assemble(numNodes uint32, edges []csrEdge, lat, lon []float64) *Graph {
	slices.SortFunc(edges, func(a, b csrEdge) int {
		return cmp.Or(
			cmp.Compare(a.from, b.from),
			cmp.Compare(a.to, b.to),
			cmp.Compare(a.cost, b.cost),
		)
	})
	edges = slices.CompactFunc(edges, func(a, b csrEdge) bool {
		return a.from == b.from && a.to == b.to
	})

	g := &Graph{
		NumNodes: numNodes,
		NumEdges: uint32(len(edges)),
		FirstOut: make([]uint32, numNodes+1),
		Head:     make([]uint32, len(edges)),
		Length:   make([]uint32, len(edges)),
		Cost:     make([]uint32, len(edges)),
		NodeLat:  lat,
		NodeLon:  lon,
	}
	for i, e := range edges {
		g.FirstOut[e.from+1]++
		g.Head[i] = e.to
		g.Length[i] = e.length
		g.Cost[i] = e.cost
	}
	for i := uint32(1); i <= numNodes; i++ {
		g.FirstOut[i] += g.FirstOut[i-1]
	}
	return g
}
