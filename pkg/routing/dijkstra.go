package routing

import "math"

const infCost = math.MaxUint32

// MinHeap is a concrete-typed min-heap for the CH search queues.
// Avoids the interface boxing of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry keyed on Cost.
type PQItem struct {
	Node uint32
	Cost uint32
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node, cost uint32) {
	h.items = append(h.items, PQItem{node, cost})
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Cost >= h.items[parent].Cost {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items) - 1
	item := h.items[0]
	h.items[0] = h.items[n]
	h.items = h.items[:n]

	i := 0
	for {
		smallest := i
		if l := 2*i + 1; l < n && h.items[l].Cost < h.items[smallest].Cost {
			smallest = l
		}
		if r := 2*i + 2; r < n && h.items[r].Cost < h.items[smallest].Cost {
			smallest = r
		}
		if smallest == i {
			return item
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// PeekCost returns the smallest queued cost, or infCost when empty.
func (h *MinHeap) PeekCost() uint32 {
	if len(h.items) == 0 {
		return infCost
	}
	return h.items[0].Cost
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

// QueryState holds per-query arrays for bidirectional CH search. It is sized
// to the graph once and reset by clearing only the nodes a query touched.
type QueryState struct {
	CostFwd []uint32
	CostBwd []uint32
	LenFwd  []uint64 // millimeters along the best forward path
	LenBwd  []uint64
	Touched []uint32
	FwdPQ   MinHeap
	BwdPQ   MinHeap
}

// NewQueryState creates a QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	qs := &QueryState{
		CostFwd: make([]uint32, n),
		CostBwd: make([]uint32, n),
		LenFwd:  make([]uint64, n),
		LenBwd:  make([]uint64, n),
		Touched: make([]uint32, 0, 1024),
		FwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
		BwdPQ:   MinHeap{items: make([]PQItem, 0, 256)},
	}
	for i := range qs.CostFwd {
		qs.CostFwd[i] = infCost
		qs.CostBwd[i] = infCost
	}
	return qs
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.CostFwd[node] = infCost
		qs.CostBwd[node] = infCost
		qs.LenFwd[node] = 0
		qs.LenBwd[node] = 0
	}
	qs.Touched = qs.Touched[:0]
	qs.FwdPQ.Reset()
	qs.BwdPQ.Reset()
}

func (qs *QueryState) touch(node uint32) {
	if qs.CostFwd[node] == infCost && qs.CostBwd[node] == infCost {
		qs.Touched = append(qs.Touched, node)
	}
}

// seedFwd offers node as a forward start with the given cost and length.
func (qs *QueryState) seedFwd(node, cost uint32, length uint64) {
	if cost >= qs.CostFwd[node] {
		return
	}
	qs.touch(node)
	qs.CostFwd[node] = cost
	qs.LenFwd[node] = length
	qs.FwdPQ.Push(node, cost)
}

// seedBwd offers node as a backward start with the given cost and length.
func (qs *QueryState) seedBwd(node, cost uint32, length uint64) {
	if cost >= qs.CostBwd[node] {
		return
	}
	qs.touch(node)
	qs.CostBwd[node] = cost
	qs.LenBwd[node] = length
	qs.BwdPQ.Push(node, cost)
}
