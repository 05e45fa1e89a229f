package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient — max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in x's set.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the node indices of the largest weakly connected
// component, in ascending order. Restricting the graph to it keeps most
// location pairs routable; points snapped onto islands would otherwise
// come back unreachable.
func LargestComponent(g *Graph) []uint32 {
	if g.NumNodes == 0 {
		return nil
	}

	uf := NewUnionFind(g.NumNodes)
	for u := range g.NumNodes {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			uf.Union(u, g.Head[e])
		}
	}

	var best uint32
	for i := range g.NumNodes {
		if uf.Size(i) > uf.Size(best) {
			best = i
		}
	}
	root := uf.Find(best)

	nodes := make([]uint32, 0, uf.Size(root))
	for i := range g.NumNodes {
		if uf.Find(i) == root {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent returns a new graph containing only the given nodes,
// renumbered in the order they are listed, and the edges between them.
func FilterToComponent(g *Graph, nodes []uint32) *Graph {
	if len(nodes) == 0 {
		return &Graph{}
	}

	oldToNew := make(map[uint32]uint32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = uint32(newIdx)
	}

	var edges []csrEdge
	lat := make([]float64, len(nodes))
	lon := make([]float64, len(nodes))
	for newU, oldU := range nodes {
		lat[newU] = g.NodeLat[oldU]
		lon[newU] = g.NodeLon[oldU]

		start, end := g.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			newV, ok := oldToNew[g.Head[e]]
			if !ok {
				continue
			}
			edges = append(edges, csrEdge{
				from:   uint32(newU),
				to:     newV,
				length: g.Length[e],
				cost:   g.Cost[e],
			})
		}
	}

	return assemble(uint32(len(nodes)), edges, lat, lon)
}
