// Package graph holds the road network in CSR (compressed sparse row) form
// and its contraction-hierarchy overlay.
package graph

// Graph is a directed road graph in CSR format. Every edge carries two
// metrics: its physical length and the time it takes to drive it.
type Graph struct {
	NumNodes uint32
	NumEdges uint32
	FirstOut []uint32  // len NumNodes+1; FirstOut[i]..FirstOut[i+1] are edges leaving node i
	Head     []uint32  // len NumEdges; target node of each edge
	Length   []uint32  // len NumEdges; millimeters
	Cost     []uint32  // len NumEdges; milliseconds
	NodeLat  []float64 // len NumNodes
	NodeLon  []float64 // len NumNodes
}

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Graph) EdgesFrom(u uint32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

// Overlay is one direction of the upward CH search graph.
type Overlay struct {
	FirstOut []uint32
	Head     []uint32
	Cost     []uint32
	Length   []uint32
	Middle   []int32 // contracted node a shortcut bypasses, -1 for original edges
}

// NumEdges returns the number of overlay edges.
func (o *Overlay) NumEdges() int { return len(o.Head) }

// CHGraph is the output of contraction hierarchies preprocessing.
//
// Fwd holds edges u->v with rank[u] < rank[v]. Bwd holds reversed edges:
// an entry u->v in Bwd stands for the original edge v->u with rank[u] < rank[v].
// Base is the uncontracted graph, used for snapping query points.
type CHGraph struct {
	Base *Graph
	Rank []uint32
	Fwd  Overlay
	Bwd  Overlay
}

// NumNodes returns the node count shared by the base graph and the overlay.
func (c *CHGraph) NumNodes() uint32 {
	if c.Base == nil {
		return 0
	}
	return c.Base.NumNodes
}

// Shortcuts counts overlay edges that are shortcuts rather than original edges.
func (c *CHGraph) Shortcuts() int {
	n := 0
	for _, m := range c.Fwd.Middle {
		if m >= 0 {
			n++
		}
	}
	for _, m := range c.Bwd.Middle {
		if m >= 0 {
			n++
		}
	}
	return n
}
