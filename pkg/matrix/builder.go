package matrix

import (
	"context"
	"fmt"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"
)

// Row is the lookup handle returned for a location added to a Builder. It is
// a live view: destinations added after the row was created become visible.
type Row struct {
	origin Location
	dists  cmap.ConcurrentMap[string, Distance]
}

func newRow(origin Location) *Row {
	r := &Row{origin: origin, dists: cmap.New[Distance]()}
	r.dists.Set(origin.ID, Zero)
	return r
}

// Origin returns the location the row belongs to.
func (r *Row) Origin() Location { return r.origin }

// Len returns the number of destinations recorded, the origin included.
func (r *Row) Len() int { return r.dists.Count() }

// DistanceTo returns the distance from the row's origin to dest. Asking for a
// location that has not been added yet is an *UnrecordedDistanceError.
func (r *Row) DistanceTo(dest Location) (Distance, error) {
	d, ok := r.dists.Get(dest.ID)
	if !ok {
		return Distance{}, &UnrecordedDistanceError{Origin: r.origin.ID, Destination: dest.ID}
	}
	return d, nil
}

// Builder accumulates locations and the distances between them.
//
// AddLocation calls are serialized by the builder; the oracle calls inside a
// single addition run in parallel, each writing a distinct entry of a
// distinct row. After every successful AddLocation the matrix is square
// over the locations added so far.
type Builder struct {
	oracle  Oracle
	opts    options
	started time.Time

	mu        sync.Mutex
	rows      cmap.ConcurrentMap[string, *Row]
	order     []Location
	failures  []Failure
	finalized bool
}

// NewBuilder returns an empty builder bound to oracle.
func NewBuilder(oracle Oracle, opts ...Option) *Builder {
	return &Builder{
		oracle:  oracle,
		opts:    gatherOptions(opts),
		started: time.Now(),
		rows:    cmap.New[*Row](),
	}
}

// Len returns the number of committed locations.
func (b *Builder) Len() int { return b.rows.Count() }

// Failures returns the pairs the oracle failed on so far.
func (b *Builder) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Failure(nil), b.failures...)
}

// AddLocation measures loc against every location already in the builder,
// in both directions, and commits its row.
//
// An oracle error for one pair does not fail the call: Unreachable is stored
// for that direction and a Failure is recorded. If ctx is cancelled before
// the measurements finish, every entry written for loc is removed, nothing
// is committed and the context error is returned.
func (b *Builder) AddLocation(ctx context.Context, loc Location) (*Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, ErrBuilderFinalized
	}
	if loc.ID == "" {
		return nil, ErrEmptyLocationID
	}
	if b.rows.Has(loc.ID) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateLocation, loc.ID)
	}

	row := newRow(loc)
	existing := make([]*Row, len(b.order))
	for i, other := range b.order {
		existing[i], _ = b.rows.Get(other.ID)
	}

	// Two slots per existing location: [2i] is other->loc, [2i+1] is loc->other.
	failed := make([]*Failure, 2*len(existing))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.workers)
	for i, other := range existing {
		g.Go(func() error {
			d, f, err := b.measure(gctx, other.origin, loc)
			if err != nil {
				return err
			}
			other.dists.Set(loc.ID, d)
			failed[2*i] = f
			return nil
		})
		g.Go(func() error {
			d, f, err := b.measure(gctx, loc, other.origin)
			if err != nil {
				return err
			}
			row.dists.Set(other.origin.ID, d)
			failed[2*i+1] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, other := range existing {
			other.dists.Remove(loc.ID)
		}
		b.opts.logger.Debug("location addition cancelled", "location", loc.ID, "err", err)
		return nil, err
	}

	b.rows.Set(loc.ID, row)
	b.order = append(b.order, loc)
	n := 0
	for _, f := range failed {
		if f != nil {
			b.failures = append(b.failures, *f)
			n++
		}
	}
	b.opts.logger.Debug("location added", "location", loc.ID, "size", len(b.order), "failures", n)
	return row, nil
}

// measure asks the oracle for origin->destination. A non-nil error means the
// context ended and the addition must be abandoned; any other oracle problem
// is reported as a Failure alongside Unreachable.
func (b *Builder) measure(ctx context.Context, origin, destination Location) (Distance, *Failure, error) {
	if err := ctx.Err(); err != nil {
		return Distance{}, nil, err
	}
	d, err := b.oracle.TravelDistance(ctx, origin.Coordinates, destination.Coordinates)
	if err == nil && !d.valid() {
		err = fmt.Errorf("%w: %v", ErrInvalidDistance, d)
	}
	if err == nil {
		return d, nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Distance{}, nil, ctxErr
	}
	return Unreachable, &Failure{Origin: origin, Destination: destination, Err: err}, nil
}

// Build freezes the builder into an immutable Matrix. It may be called once;
// afterwards the builder rejects every call with ErrBuilderFinalized.
func (b *Builder) Build() (*Matrix, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return nil, ErrBuilderFinalized
	}
	b.finalized = true

	n := len(b.order)
	m := &Matrix{
		locations: append([]Location(nil), b.order...),
		index:     make(map[string]int, n),
		dists:     make([]Distance, n*n),
		failures:  append([]Failure(nil), b.failures...),
	}
	for i, origin := range b.order {
		m.index[origin.ID] = i
		row, _ := b.rows.Get(origin.ID)
		for j, dest := range b.order {
			d, err := row.DistanceTo(dest)
			if err != nil {
				return nil, fmt.Errorf("matrix not square: %w", err)
			}
			m.dists[i*n+j] = d
		}
	}
	m.generatedAt = time.Now()
	m.duration = m.generatedAt.Sub(b.started)
	return m, nil
}
