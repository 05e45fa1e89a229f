package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
	"github.com/azybler/distance_matrix/pkg/oracle"
	"github.com/azybler/distance_matrix/pkg/routing"
)

const (
	MetricMatrixBuild    = "matrix.build"
	MetricMatrixFailures = "matrix.failures"

	maxDistanceBody = 1 << 10
	maxMatrixBody   = 1 << 20
)

// HandlerOptions configures Handlers.
type HandlerOptions struct {
	Workers      int
	MaxLocations int
	Logger       *slog.Logger
	Registry     metrics.Registry
}

// cacheReporter is implemented by oracles with a result cache.
type cacheReporter interface {
	CacheMetrics() (ttlcache.Metrics, bool)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	oracle   matrix.Oracle
	stats    StatsResponse
	opts     HandlerOptions
	build    metrics.Timer
	failures metrics.Counter
}

// NewHandlers creates handlers answering from the given oracle. stats holds
// the static part of the stats response.
func NewHandlers(o matrix.Oracle, stats StatsResponse, opts HandlerOptions) *Handlers {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = metrics.NewRegistry()
	}
	return &Handlers{
		oracle:   o,
		stats:    stats,
		opts:     opts,
		build:    metrics.GetOrRegisterTimer(MetricMatrixBuild, opts.Registry),
		failures: metrics.GetOrRegisterCounter(MetricMatrixFailures, opts.Registry),
	}
}

// HandleMatrix handles POST /api/v1/matrix.
func (h *Handlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req MatrixRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMatrixBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if len(req.Locations) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "locations")
		return
	}
	if h.opts.MaxLocations > 0 && len(req.Locations) > h.opts.MaxLocations {
		writeError(w, http.StatusBadRequest, "too_many_locations", "locations")
		return
	}

	locs := make([]matrix.Location, len(req.Locations))
	seen := make(map[string]struct{}, len(req.Locations))
	for i, l := range req.Locations {
		ll := geo.LatLng{Lat: l.Lat, Lng: l.Lng}
		if !ll.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", fmt.Sprintf("locations[%d]", i))
			return
		}
		loc := matrix.NewLocation(ll.Lat, ll.Lng)
		if l.ID != "" {
			loc.ID = l.ID
		}
		if _, dup := seen[loc.ID]; dup {
			writeError(w, http.StatusBadRequest, "duplicate_location", fmt.Sprintf("locations[%d]", i))
			return
		}
		seen[loc.ID] = struct{}{}
		locs[i] = loc
	}

	start := time.Now()
	m, err := matrix.Generate(r.Context(), locs, h.oracle,
		matrix.WithWorkers(h.opts.Workers),
		matrix.WithLogger(h.opts.Logger))
	h.build.UpdateSince(start)
	if err != nil {
		switch {
		case errors.Is(err, matrix.ErrDuplicateLocation):
			writeError(w, http.StatusBadRequest, "duplicate_location", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			h.opts.Logger.Error("matrix build failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}
	h.failures.Inc(int64(len(m.Failures())))

	writeJSON(w, matrixResponse(m))
}

func matrixResponse(m *matrix.Matrix) MatrixResponse {
	n := m.Dimension()
	resp := MatrixResponse{
		IDs:          make([]string, n),
		Meters:       make([][]*float64, n),
		Seconds:      make([][]*float64, n),
		GenerationMs: m.GenerationDuration().Milliseconds(),
		GeneratedAt:  m.GeneratedAt().UTC(),
	}
	for i, loc := range m.Locations() {
		resp.IDs[i] = loc.ID
		resp.Meters[i] = make([]*float64, n)
		resp.Seconds[i] = make([]*float64, n)
		for j := range n {
			d := m.At(i, j)
			if !d.Reachable() {
				continue
			}
			meters, seconds := d.Meters, d.Duration.Seconds()
			resp.Meters[i][j] = &meters
			resp.Seconds[i][j] = &seconds
		}
	}
	for _, f := range m.Failures() {
		resp.Failures = append(resp.Failures, FailureJSON{
			Origin:      f.Origin.ID,
			Destination: f.Destination.ID,
			Error:       f.Err.Error(),
		})
	}
	return resp
}

// HandleDistance handles POST /api/v1/distance.
func (h *Handlers) HandleDistance(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req DistanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDistanceBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	origin := geo.LatLng{Lat: req.Origin.Lat, Lng: req.Origin.Lng}
	destination := geo.LatLng{Lat: req.Destination.Lat, Lng: req.Destination.Lng}
	if !origin.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "origin")
		return
	}
	if !destination.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "destination")
		return
	}

	d, err := h.oracle.TravelDistance(r.Context(), origin, destination)
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrPointTooFar):
			writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
		case errors.Is(err, routing.ErrNoRoute):
			writeError(w, http.StatusNotFound, "no_route_found", "")
		case errors.Is(err, oracle.ErrInvalidCoordinates):
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			h.opts.Logger.Error("distance failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	writeJSON(w, DistanceResponse{Meters: d.Meters, Seconds: d.Duration.Seconds()})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := h.stats
	if c, ok := h.oracle.(cacheReporter); ok {
		if m, ok := c.CacheMetrics(); ok {
			resp.Cache = &CacheStats{
				Insertions: m.Insertions,
				Hits:       m.Hits,
				Misses:     m.Misses,
				Evictions:  m.Evictions,
			}
		}
	}
	resp.Metrics = h.opts.Registry.GetAll()
	writeJSON(w, resp)
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
