package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/graph"
)

// DefaultMaxSnapMeters is the furthest a query point may be from a road.
const DefaultMaxSnapMeters = 500.0

const noEdge = ^uint32(0)

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("point too far from road")

// SnapResult is a point projected onto a road segment U->V.
type SnapResult struct {
	Edge  uint32  // edge U->V in the base graph
	Rev   uint32  // edge V->U, or noEdge for one-way roads
	U, V  uint32
	Ratio float64 // 0.0 = at U, 1.0 = at V
	Dist  float64 // meters from the query point to the projection
}

// Snapper finds the nearest road segment with an R-tree over edge bounding
// boxes. A two-way road is indexed once, on the edge whose tail has the
// lower index, with its reverse edge recorded alongside.
type Snapper struct {
	g       *graph.Graph
	tail    []uint32
	tree    rtree.RTreeG[SnapResult]
	maxDist float64
}

// NewSnapper indexes every road segment of g.
func NewSnapper(g *graph.Graph, maxDistMeters float64) *Snapper {
	if maxDistMeters <= 0 {
		maxDistMeters = DefaultMaxSnapMeters
	}
	s := &Snapper{
		g:       g,
		tail:    make([]uint32, g.NumEdges),
		maxDist: maxDistMeters,
	}
	for u := range g.NumNodes {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			s.tail[e] = u
		}
	}

	for e := range g.NumEdges {
		u, v := s.tail[e], g.Head[e]
		rev := findEdge(g, v, u)
		if rev != noEdge && v < u {
			continue // indexed from the other direction
		}
		lo, hi := segmentBounds(g, u, v)
		s.tree.Insert(lo, hi, SnapResult{Edge: e, Rev: rev, U: u, V: v})
	}
	return s
}

// Len returns the number of indexed segments.
func (s *Snapper) Len() int { return s.tree.Len() }

// Snap finds the road segment nearest to p within the snap radius.
func (s *Snapper) Snap(p geo.LatLng) (SnapResult, error) {
	dLat, dLng := geo.MetersToDegrees(p.Lat, s.maxDist)
	lo := [2]float64{p.Lng - dLng, p.Lat - dLat}
	hi := [2]float64{p.Lng + dLng, p.Lat + dLat}

	best := SnapResult{Dist: math.Inf(1)}
	s.tree.Search(lo, hi, func(_, _ [2]float64, cand SnapResult) bool {
		dist, ratio := geo.PointToSegmentDist(p.Lat, p.Lng,
			s.g.NodeLat[cand.U], s.g.NodeLon[cand.U],
			s.g.NodeLat[cand.V], s.g.NodeLon[cand.V])
		if dist < best.Dist {
			cand.Ratio = ratio
			cand.Dist = dist
			best = cand
		}
		return true
	})

	if best.Dist > s.maxDist {
		return SnapResult{}, ErrPointTooFar
	}
	return best, nil
}

// segmentBounds returns the lng/lat bounding box of the segment u->v.
func segmentBounds(g *graph.Graph, u, v uint32) (lo, hi [2]float64) {
	lo = [2]float64{math.Min(g.NodeLon[u], g.NodeLon[v]), math.Min(g.NodeLat[u], g.NodeLat[v])}
	hi = [2]float64{math.Max(g.NodeLon[u], g.NodeLon[v]), math.Max(g.NodeLat[u], g.NodeLat[v])}
	return lo, hi
}

// findEdge returns the index of edge source->target in g, or noEdge.
func findEdge(g *graph.Graph, source, target uint32) uint32 {
	start, end := g.EdgesFrom(source)
	for e := start; e < end; e++ {
		if g.Head[e] == target {
			return e
		}
	}
	return noEdge
}
