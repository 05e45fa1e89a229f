package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const earthRadiusMeters = 6_371_000.0

// degToMeters converts degree-scaled equirectangular distances to meters.
const degToMeters = math.Pi / 180 * earthRadiusMeters

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// Valid reports whether both components are finite and inside the WGS84 range.
func (ll LatLng) Valid() bool {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return false
	}
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lng >= -180 && ll.Lng <= 180
}

func (ll LatLng) String() string {
	return fmt.Sprintf("%.6f,%.6f", ll.Lat, ll.Lng)
}

// Point converts to an orb point. Note orb stores longitude first.
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lng, ll.Lat}
}

// FromPoint converts an orb point back to a LatLng.
func FromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// HaversineLatLng is Haversine over LatLng values.
func HaversineLatLng(a, b LatLng) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// EquirectangularDist returns an approximate distance in meters.
// Accurate to <0.1% over the few-kilometre spans used for snapping;
// use Haversine for anything reported to callers.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180) * math.Pi / 180
	y := (lat2 - lat1) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// MetersToDegrees returns the latitude and longitude spans covering the
// given radius around lat. Used to size search boxes.
func MetersToDegrees(lat, meters float64) (dLat, dLng float64) {
	dLat = meters / degToMeters
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-6 {
		return dLat, 180
	}
	return dLat, dLat / cosLat
}

// PointToSegmentDist computes the perpendicular distance from point P to segment AB,
// and returns the projection ratio along AB (clamped to [0,1]).
// dist is in meters, ratio is in [0.0, 1.0].
func PointToSegmentDist(pLat, pLon, aLat, aLon, bLat, bLon float64) (dist float64, ratio float64) {
	cosLat := math.Cos((aLat + bLat) / 2 * math.Pi / 180)

	ax, ay := aLon*cosLat, aLat
	bx, by := bLon*cosLat, bLat
	px, py := pLon*cosLat, pLat

	// Compare the raw coordinates: after the cosLat multiplication identical
	// endpoints can differ by ~1e-15.
	if aLat == bLat && aLon == bLon {
		return math.Hypot(px-ax, py-ay) * degToMeters, 0
	}

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}

	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy)) * degToMeters, t
}
