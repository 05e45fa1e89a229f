package matrix

import (
	"context"
	"fmt"
	"time"
)

// Matrix is an immutable distance matrix. It is safe for concurrent readers.
type Matrix struct {
	locations   []Location
	index       map[string]int
	dists       []Distance // row-major, len(locations)^2
	failures    []Failure
	generatedAt time.Time
	duration    time.Duration
}

// Generate builds a matrix over locations, added in order. Oracle failures
// are logged and kept on the matrix. When the oracle is an ErrorReporter its
// log is drained on return, whether or not the build succeeded.
func Generate(ctx context.Context, locations []Location, oracle Oracle, opts ...Option) (*Matrix, error) {
	b := NewBuilder(oracle, opts...)
	log := b.opts.logger
	if rep, ok := oracle.(ErrorReporter); ok {
		defer func() {
			for _, msg := range rep.Drain() {
				log.Info("oracle error", "msg", msg)
			}
		}()
	}

	for _, loc := range locations {
		if _, err := b.AddLocation(ctx, loc); err != nil {
			return nil, fmt.Errorf("add %s: %w", loc.ID, err)
		}
	}
	m, err := b.Build()
	if err != nil {
		return nil, err
	}

	log.Debug("distance matrix generated",
		"locations", m.Dimension(),
		"failures", len(m.failures),
		"duration", m.duration)
	for _, f := range m.failures {
		log.Info("distance not computed", "origin", f.Origin.ID, "destination", f.Destination.ID, "err", f.Err)
	}
	return m, nil
}

// DistanceBetween returns the distance from origin to destination.
func (m *Matrix) DistanceBetween(origin, destination Location) (Distance, error) {
	i, ok := m.index[origin.ID]
	if !ok {
		return Distance{}, &LocationNotFoundError{ID: origin.ID}
	}
	j, ok := m.index[destination.ID]
	if !ok {
		return Distance{}, &LocationNotFoundError{ID: destination.ID}
	}
	return m.dists[i*len(m.locations)+j], nil
}

// Index returns the position of the location with the given id.
func (m *Matrix) Index(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

// At returns the distance between the i-th and j-th locations. It panics
// when either index is out of range.
func (m *Matrix) At(i, j int) Distance {
	n := len(m.locations)
	if i < 0 || i >= n || j < 0 || j >= n {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range for dimension %d", i, j, n))
	}
	return m.dists[i*n+j]
}

// Row returns the distances from origin to every location, ordered like Locations.
func (m *Matrix) Row(origin Location) ([]Distance, error) {
	i, ok := m.index[origin.ID]
	if !ok {
		return nil, &LocationNotFoundError{ID: origin.ID}
	}
	n := len(m.locations)
	return append([]Distance(nil), m.dists[i*n:(i+1)*n]...), nil
}

// Dimension returns the number of locations.
func (m *Matrix) Dimension() int { return len(m.locations) }

// Locations returns the locations in insertion order.
func (m *Matrix) Locations() []Location { return append([]Location(nil), m.locations...) }

// Failures returns the pairs the oracle could not compute.
func (m *Matrix) Failures() []Failure { return append([]Failure(nil), m.failures...) }

// GenerationDuration returns the wall-clock time the build took.
func (m *Matrix) GenerationDuration() time.Duration { return m.duration }

// GeneratedAt returns when the matrix was frozen.
func (m *Matrix) GeneratedAt() time.Time { return m.generatedAt }
