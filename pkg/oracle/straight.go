package oracle

import (
	"context"
	"time"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
)

const (
	DefaultSpeedKmh     = 40.0
	DefaultDetourFactor = 1.3
)

// Straight estimates road distance from the great-circle distance, stretched
// by a detour factor and driven at a constant speed. It never fails for
// valid coordinates and is symmetric.
type Straight struct {
	speed  float64 // meters per second
	detour float64
}

// NewStraight returns a Straight oracle. Non-positive arguments select the defaults.
func NewStraight(speedKmh, detourFactor float64) *Straight {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	if detourFactor <= 0 {
		detourFactor = DefaultDetourFactor
	}
	return &Straight{speed: speedKmh / 3.6, detour: detourFactor}
}

func (s *Straight) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (matrix.Distance, error) {
	if err := ctx.Err(); err != nil {
		return matrix.Distance{}, err
	}
	if err := checkCoordinates(origin, destination); err != nil {
		return matrix.Distance{}, err
	}
	m := geo.HaversineLatLng(origin, destination) * s.detour
	return matrix.Distance{
		Meters:   m,
		Duration: time.Duration(m / s.speed * float64(time.Second)),
	}, nil
}
