package matrix

import (
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/azybler/distance_matrix/pkg/geo"
)

// Location is a matrix key. Identity is the ID, which must be non-empty; two
// locations at the same coordinates with different IDs are separate entries.
type Location struct {
	ID          string
	Coordinates geo.LatLng
}

// NewLocation returns a location at the given coordinates with a random ID.
func NewLocation(lat, lng float64) Location {
	return Location{
		ID:          uuid.Must(uuid.NewV4()).String(),
		Coordinates: geo.LatLng{Lat: lat, Lng: lng},
	}
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.6f,%.6f)", l.ID, l.Coordinates.Lat, l.Coordinates.Lng)
}
