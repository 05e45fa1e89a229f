// Package matrix builds pairwise travel distance matrices over a growing set
// of locations. Distances come from an Oracle and may be asymmetric.
package matrix

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/azybler/distance_matrix/pkg/geo"
)

// Distance is a directional travel cost.
type Distance struct {
	Meters   float64
	Duration time.Duration
}

var (
	// Zero is the distance from a location to itself.
	Zero = Distance{}

	// Unreachable is stored for a pair the oracle could not compute.
	Unreachable = Distance{Meters: math.Inf(1), Duration: math.MaxInt64}
)

// Reachable reports whether d is a finite distance.
func (d Distance) Reachable() bool {
	return !math.IsInf(d.Meters, 1) && d.Duration != math.MaxInt64
}

func (d Distance) valid() bool {
	return !math.IsNaN(d.Meters) && d.Meters >= 0 && d.Duration >= 0
}

func (d Distance) String() string {
	if !d.Reachable() {
		return "unreachable"
	}
	return fmt.Sprintf("%.1fm/%s", d.Meters, d.Duration)
}

// Oracle computes the travel distance for one ordered pair of coordinates.
// Implementations must be safe for concurrent use.
type Oracle interface {
	TravelDistance(ctx context.Context, origin, destination geo.LatLng) (Distance, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, origin, destination geo.LatLng) (Distance, error)

func (f OracleFunc) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (Distance, error) {
	return f(ctx, origin, destination)
}

// ErrorReporter is implemented by oracles that also keep a log of the
// failures they have seen. Generate drains it when it returns.
type ErrorReporter interface {
	Errors() []string
	ClearErrors()
	// Drain returns the log and empties it in one step, so an entry added
	// concurrently is either returned or kept for the next call.
	Drain() []string
}
