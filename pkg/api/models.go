package api

import "time"

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationJSON is one location of a matrix request. An empty ID is replaced
// by a generated UUID.
type LocationJSON struct {
	ID  string  `json:"id,omitempty"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MatrixRequest is the JSON body for POST /api/v1/matrix.
type MatrixRequest struct {
	Locations []LocationJSON `json:"locations"`
}

// MatrixResponse is the JSON response for a matrix build. Meters[i][j] and
// Seconds[i][j] hold the travel from IDs[i] to IDs[j]; null means unreachable.
type MatrixResponse struct {
	IDs          []string      `json:"ids"`
	Meters       [][]*float64  `json:"meters"`
	Seconds      [][]*float64  `json:"seconds"`
	GenerationMs int64         `json:"generation_ms"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Failures     []FailureJSON `json:"failures,omitempty"`
}

// FailureJSON describes a pair that could not be computed.
type FailureJSON struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Error       string `json:"error"`
}

// DistanceRequest is the JSON body for POST /api/v1/distance.
type DistanceRequest struct {
	Origin      LatLngJSON `json:"origin"`
	Destination LatLngJSON `json:"destination"`
}

// DistanceResponse is the JSON response for a single pair.
type DistanceResponse struct {
	Meters  float64 `json:"meters"`
	Seconds float64 `json:"seconds"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Oracle       string                            `json:"oracle"`
	NumNodes     uint32                            `json:"num_nodes,omitempty"`
	NumEdges     uint32                            `json:"num_edges,omitempty"`
	NumFwdEdges  int                               `json:"num_fwd_edges,omitempty"`
	NumBwdEdges  int                               `json:"num_bwd_edges,omitempty"`
	NumShortcuts int                               `json:"num_shortcuts,omitempty"`
	Cache        *CacheStats                       `json:"cache,omitempty"`
	Metrics      map[string]map[string]interface{} `json:"metrics,omitempty"`
}

// CacheStats mirrors the oracle cache counters.
type CacheStats struct {
	Insertions uint64 `json:"insertions"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
