// Package routing answers point-to-point travel queries on a
// contraction-hierarchy road graph.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// ctxCheckInterval is how many settled nodes pass between context checks.
const ctxCheckInterval = 256

// Travel is the cost of driving from one point to another.
type Travel struct {
	Meters   float64
	Duration time.Duration
}

// Traveler is the interface for travel queries.
type Traveler interface {
	Travel(ctx context.Context, from, to geo.LatLng) (Travel, error)
}

// Options configures an Engine.
type Options struct {
	// MaxSnapMeters bounds how far a query point may lie from the road
	// network. Zero means DefaultMaxSnapMeters.
	MaxSnapMeters float64
}

// Stats describes the loaded network.
type Stats struct {
	Nodes       uint32
	Edges       uint32
	FwdEdges    int
	BwdEdges    int
	Shortcuts   int
	SnapIndexed int
}

// Engine implements Traveler on a CH graph. It is safe for concurrent use;
// each query borrows a pooled QueryState.
type Engine struct {
	chg     *graph.CHGraph
	snapper *Snapper
	states  sync.Pool
}

// NewEngine builds the snapping index and returns a ready engine.
func NewEngine(chg *graph.CHGraph, opts ...Options) *Engine {
	var opt Options
	if len(opts) > 0 {
		opt = opts[0]
	}
	n := chg.NumNodes()
	e := &Engine{
		chg:     chg,
		snapper: NewSnapper(chg.Base, opt.MaxSnapMeters),
	}
	e.states.New = func() any { return NewQueryState(n) }
	return e
}

// Stats reports the size of the loaded network.
func (e *Engine) Stats() Stats {
	return Stats{
		Nodes:       e.chg.NumNodes(),
		Edges:       e.chg.Base.NumEdges,
		FwdEdges:    e.chg.Fwd.NumEdges(),
		BwdEdges:    e.chg.Bwd.NumEdges(),
		Shortcuts:   e.chg.Shortcuts(),
		SnapIndexed: e.snapper.Len(),
	}
}

// Travel computes the fastest drive from one point to another and reports
// its duration and length. Both points are first snapped onto the nearest
// road; travel along the snapped segments is charged pro rata.
func (e *Engine) Travel(ctx context.Context, from, to geo.LatLng) (Travel, error) {
	if err := ctx.Err(); err != nil {
		return Travel{}, err
	}
	src, err := e.snapper.Snap(from)
	if err != nil {
		return Travel{}, fmt.Errorf("origin: %w", err)
	}
	dst, err := e.snapper.Snap(to)
	if err != nil {
		return Travel{}, fmt.Errorf("destination: %w", err)
	}

	qs := e.states.Get().(*QueryState)
	defer func() {
		qs.Reset()
		e.states.Put(qs)
	}()

	cost, length := e.direct(src, dst)
	e.seed(qs, src, dst)
	cost, length, err = e.search(ctx, qs, cost, length)
	if err != nil {
		return Travel{}, err
	}
	if cost == infCost {
		return Travel{}, ErrNoRoute
	}

	return Travel{
		Meters:   float64(length) / 1000,
		Duration: time.Duration(cost) * time.Millisecond,
	}, nil
}

// direct returns the cost of staying on the snapped segment when both points
// lie on the same road and the direction of travel allows it.
func (e *Engine) direct(src, dst SnapResult) (uint32, uint64) {
	if src.Edge != dst.Edge {
		return infCost, 0
	}
	base := e.chg.Base
	switch {
	case dst.Ratio >= src.Ratio:
		frac := dst.Ratio - src.Ratio
		return partCost(base.Cost[src.Edge], frac), partLength(base.Length[src.Edge], frac)
	case src.Rev != noEdge:
		frac := src.Ratio - dst.Ratio
		return partCost(base.Cost[src.Rev], frac), partLength(base.Length[src.Rev], frac)
	}
	return infCost, 0
}

// seed starts the forward search from the nodes reachable off the origin
// segment and the backward search from the nodes that reach the destination
// segment.
func (e *Engine) seed(qs *QueryState, src, dst SnapResult) {
	base := e.chg.Base

	qs.seedFwd(src.V, partCost(base.Cost[src.Edge], 1-src.Ratio), partLength(base.Length[src.Edge], 1-src.Ratio))
	if src.Rev != noEdge {
		qs.seedFwd(src.U, partCost(base.Cost[src.Rev], src.Ratio), partLength(base.Length[src.Rev], src.Ratio))
	} else if src.Ratio == 0 {
		qs.seedFwd(src.U, 0, 0) // standing on the tail of a one-way road
	}

	qs.seedBwd(dst.U, partCost(base.Cost[dst.Edge], dst.Ratio), partLength(base.Length[dst.Edge], dst.Ratio))
	if dst.Rev != noEdge {
		qs.seedBwd(dst.V, partCost(base.Cost[dst.Rev], 1-dst.Ratio), partLength(base.Length[dst.Rev], 1-dst.Ratio))
	} else if dst.Ratio == 1 {
		qs.seedBwd(dst.V, 0, 0)
	}
}

// search runs bidirectional CH Dijkstra on cost. mu and muLen carry the best
// answer known before the search (the direct same-segment trip).
func (e *Engine) search(ctx context.Context, qs *QueryState, mu uint32, muLen uint64) (uint32, uint64, error) {
	fwd, bwd := &e.chg.Fwd, &e.chg.Bwd
	settled := 0

	for qs.FwdPQ.PeekCost() < mu || qs.BwdPQ.PeekCost() < mu {
		settled++
		if settled%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return infCost, 0, err
			}
		}

		if qs.FwdPQ.PeekCost() < mu {
			item := qs.FwdPQ.Pop()
			u, d := item.Node, item.Cost
			if d <= qs.CostFwd[u] {
				if qs.CostBwd[u] != infCost && d+qs.CostBwd[u] < mu {
					mu = d + qs.CostBwd[u]
					muLen = qs.LenFwd[u] + qs.LenBwd[u]
				}
				for ei := fwd.FirstOut[u]; ei < fwd.FirstOut[u+1]; ei++ {
					v := fwd.Head[ei]
					if c := d + fwd.Cost[ei]; c < qs.CostFwd[v] {
						qs.touch(v)
						qs.CostFwd[v] = c
						qs.LenFwd[v] = qs.LenFwd[u] + uint64(fwd.Length[ei])
						qs.FwdPQ.Push(v, c)
					}
				}
			}
		}

		if qs.BwdPQ.PeekCost() < mu {
			item := qs.BwdPQ.Pop()
			u, d := item.Node, item.Cost
			if d <= qs.CostBwd[u] {
				if qs.CostFwd[u] != infCost && qs.CostFwd[u]+d < mu {
					mu = qs.CostFwd[u] + d
					muLen = qs.LenFwd[u] + qs.LenBwd[u]
				}
				for ei := bwd.FirstOut[u]; ei < bwd.FirstOut[u+1]; ei++ {
					v := bwd.Head[ei]
					if c := d + bwd.Cost[ei]; c < qs.CostBwd[v] {
						qs.touch(v)
						qs.CostBwd[v] = c
						qs.LenBwd[v] = qs.LenBwd[u] + uint64(bwd.Length[ei])
						qs.BwdPQ.Push(v, c)
					}
				}
			}
		}
	}
	return mu, muLen, nil
}

func partCost(w uint32, frac float64) uint32 {
	return uint32(math.Round(float64(w) * frac))
}

func partLength(w uint32, frac float64) uint64 {
	return uint64(math.Round(float64(w) * frac))
}
