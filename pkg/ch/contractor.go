// Package ch builds a contraction-hierarchy overlay over a road graph.
//
// Nodes are contracted in order of a lazily updated priority; every
// contraction inserts shortcuts that preserve travel times between the
// remaining neighbours. Travel time (Cost) is the optimised metric, and each
// shortcut carries the summed physical Length of the edges it replaces so a
// single query yields both.
package ch

import (
	"container/heap"
	"log/slog"

	"github.com/azybler/distance_matrix/pkg/graph"
)

// maxShortcutsPerNode caps the shortcuts one contraction may create. The
// first node above it stops contraction and the rest form an uncontracted
// core at the top of the hierarchy.
const maxShortcutsPerNode = 1000

// arc is an edge in the mutable adjacency lists used during contraction.
type arc struct {
	to     uint32
	cost   uint32
	length uint32
	middle int32 // -1 for original edges
}

// shortcut is an arc to be inserted when a node is contracted.
type shortcut struct {
	from, to     uint32
	cost, length uint32
}

// contraction holds the mutable state of one Contract run.
type contraction struct {
	out, in    [][]arc
	contracted []bool
	rank       []uint32
	deleted    []int // contracted neighbours per node
	level      []int
	witness    *witnessState
}

// Contract performs contraction hierarchies preprocessing on g.
func Contract(g *graph.Graph) *graph.CHGraph {
	logger := slog.Default()
	n := g.NumNodes
	if n == 0 {
		return &graph.CHGraph{Base: g}
	}

	c := &contraction{
		out:        make([][]arc, n),
		in:         make([][]arc, n),
		contracted: make([]bool, n),
		rank:       make([]uint32, n),
		deleted:    make([]int, n),
		level:      make([]int, n),
		witness:    newWitnessState(n),
	}
	for u := range n {
		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			c.out[u] = append(c.out[u], arc{to: v, cost: g.Cost[e], length: g.Length[e], middle: -1})
			c.in[v] = append(c.in[v], arc{to: u, cost: g.Cost[e], length: g.Length[e], middle: -1})
		}
	}

	pq := make(priorityQueue, n)
	for i := range n {
		pq[i] = &pqEntry{node: i, priority: c.priority(i), index: int(i)}
	}
	heap.Init(&pq)

	logger.Info("contraction started", "nodes", n)

	var order uint32
	var totalShortcuts int
	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		node := entry.node
		if c.contracted[node] {
			continue
		}

		// Lazy update: neighbours contracted since the entry was queued may have
		// raised this node's priority.
		if p := c.priority(node); p > entry.priority && pq.Len() > 0 && p > pq[0].priority {
			entry.priority = p
			heap.Push(&pq, entry)
			continue
		}

		shortcuts := c.shortcutsFor(node)
		if len(shortcuts) > maxShortcutsPerNode {
			logger.Info("contraction stopped at core",
				"node", node, "shortcuts", len(shortcuts), "limit", maxShortcutsPerNode, "core_nodes", n-order)
			break
		}

		c.contracted[node] = true
		c.rank[node] = order
		order++
		totalShortcuts += len(shortcuts)

		for _, sc := range shortcuts {
			c.out[sc.from] = append(c.out[sc.from], arc{to: sc.to, cost: sc.cost, length: sc.length, middle: int32(node)})
			c.in[sc.to] = append(c.in[sc.to], arc{to: sc.from, cost: sc.cost, length: sc.length, middle: int32(node)})
		}
		c.touchNeighbours(node)

		if order%progressInterval(n-order) == 0 {
			logger.Debug("contraction progress", "contracted", order, "nodes", n, "shortcuts", totalShortcuts)
		}
	}

	core := 0
	for i := range n {
		if !c.contracted[i] {
			c.contracted[i] = true
			c.rank[i] = order
			order++
			core++
		}
	}

	logger.Info("contraction complete",
		"shortcuts", totalShortcuts,
		"shortcut_ratio", float64(totalShortcuts)/float64(max(g.NumEdges, 1)),
		"core_nodes", core)

	return c.overlay(g)
}

// progressInterval logs more often as contraction nears the end, where each
// node is slower to contract.
func progressInterval(remaining uint32) uint32 {
	switch {
	case remaining < 1000:
		return 100
	case remaining < 10_000:
		return 1000
	case remaining < 100_000:
		return 10_000
	default:
		return 50_000
	}
}

// touchNeighbours updates the deleted-neighbour count and level of every
// uncontracted neighbour of a freshly contracted node.
func (c *contraction) touchNeighbours(node uint32) {
	bump := func(v uint32) {
		if c.contracted[v] {
			return
		}
		c.deleted[v]++
		c.level[v] = max(c.level[v], c.level[node]+1)
	}
	for _, a := range c.out[node] {
		bump(a.to)
	}
	for _, a := range c.in[node] {
		bump(a.to)
	}
}

// active returns the arcs of list that lead to uncontracted nodes.
func (c *contraction) active(list []arc) []arc {
	var res []arc
	for _, a := range list {
		if !c.contracted[a.to] {
			res = append(res, a)
		}
	}
	return res
}

// shortcutsFor returns the shortcuts needed to contract node. One bounded
// Dijkstra runs per incoming neighbour and is checked against every outgoing
// target, so the search count is O(|in|) rather than O(|in|*|out|).
func (c *contraction) shortcutsFor(node uint32) []shortcut {
	incoming := c.active(c.in[node])
	outgoing := c.active(c.out[node])
	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []shortcut
	for _, in := range incoming {
		var maxOut uint32
		for _, out := range outgoing {
			if out.to != in.to {
				maxOut = max(maxOut, out.cost)
			}
		}
		if maxOut == 0 {
			continue
		}

		c.witness.search(c.out, in.to, node, in.cost+maxOut, c.contracted)

		for _, out := range outgoing {
			if out.to == in.to {
				continue
			}
			via := in.cost + out.cost
			if c.witness.dist[out.to] > via {
				shortcuts = append(shortcuts, shortcut{
					from:   in.to,
					to:     out.to,
					cost:   via,
					length: in.length + out.length,
				})
			}
		}
	}
	return shortcuts
}

// priority orders contraction (lower first): a cheap edge-difference
// estimate plus terms that spread contraction evenly over the graph.
func (c *contraction) priority(node uint32) int {
	in := len(c.active(c.in[node]))
	out := len(c.active(c.out[node]))
	edgeDifference := in*out - (in + out)
	return edgeDifference + 2*c.deleted[node] + c.level[node]
}

// overlay splits the final adjacency lists into forward and backward upward
// CSR graphs by rank.
func (c *contraction) overlay(base *graph.Graph) *graph.CHGraph {
	n := base.NumNodes
	var fwd, bwd []overlayEdge
	for u := range n {
		for _, a := range c.out[u] {
			if c.rank[u] < c.rank[a.to] {
				fwd = append(fwd, overlayEdge{from: u, arc: a})
			}
		}
		// Reversed: in[u] holds v->u; keep it as u->v when u ranks below v.
		for _, a := range c.in[u] {
			if c.rank[u] < c.rank[a.to] {
				bwd = append(bwd, overlayEdge{from: u, arc: a})
			}
		}
	}

	slog.Default().Info("overlay built", "fwd_edges", len(fwd), "bwd_edges", len(bwd))

	return &graph.CHGraph{
		Base: base,
		Rank: c.rank,
		Fwd:  buildCSR(n, fwd),
		Bwd:  buildCSR(n, bwd),
	}
}

type overlayEdge struct {
	from uint32
	arc
}

func buildCSR(n uint32, edges []overlayEdge) graph.Overlay {
	o := graph.Overlay{
		FirstOut: make([]uint32, n+1),
		Head:     make([]uint32, len(edges)),
		Cost:     make([]uint32, len(edges)),
		Length:   make([]uint32, len(edges)),
		Middle:   make([]int32, len(edges)),
	}
	for _, e := range edges {
		o.FirstOut[e.from+1]++
	}
	for i := uint32(1); i <= n; i++ {
		o.FirstOut[i] += o.FirstOut[i-1]
	}

	pos := make([]uint32, n)
	copy(pos, o.FirstOut[:n])
	for _, e := range edges {
		idx := pos[e.from]
		o.Head[idx] = e.to
		o.Cost[idx] = e.cost
		o.Length[idx] = e.length
		o.Middle[idx] = e.middle
		pos[e.from]++
	}
	return o
}

type pqEntry struct {
	node     uint32
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	entry := x.(*pqEntry)
	entry.index = len(*pq)
	*pq = append(*pq, entry)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*pq = old[:n-1]
	return entry
}
