// Package oracle provides matrix.Oracle implementations and decorators for
// caching, throttling and instrumenting them.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
	"github.com/azybler/distance_matrix/pkg/routing"
)

// ErrInvalidCoordinates is returned for a coordinate outside the valid range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Road answers distances from the road network. Routing failures are
// returned to the caller and also kept in an error log.
type Road struct {
	traveler routing.Traveler
	log      ErrorLog
}

// NewRoad wraps a routing engine.
func NewRoad(t routing.Traveler) *Road {
	return &Road{traveler: t}
}

func (r *Road) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (matrix.Distance, error) {
	if err := checkCoordinates(origin, destination); err != nil {
		return matrix.Distance{}, err
	}
	tr, err := r.traveler.Travel(ctx, origin, destination)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Add(fmt.Sprintf("route %s -> %s: %v", origin, destination, err))
		}
		return matrix.Distance{}, err
	}
	return matrix.Distance{Meters: tr.Meters, Duration: tr.Duration}, nil
}

// Errors returns the routing failures seen since the last ClearErrors.
func (r *Road) Errors() []string { return r.log.Errors() }

// ClearErrors empties the error log.
func (r *Road) ClearErrors() { r.log.Clear() }

// Drain returns the error log and empties it atomically.
func (r *Road) Drain() []string { return r.log.Drain() }

// ErrorLog is a concurrency-safe list of diagnostics.
type ErrorLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *ErrorLog) Add(msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
}

func (l *ErrorLog) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *ErrorLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Drain swaps the entries out under the lock.
func (l *ErrorLog) Drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries
	l.entries = nil
	return entries
}

func checkCoordinates(points ...geo.LatLng) error {
	for _, p := range points {
		if !p.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidCoordinates, p)
		}
	}
	return nil
}

// forwardErrors, clearErrors and drainErrors pass ErrorReporter calls through decorators.
func forwardErrors(next matrix.Oracle) []string {
	if rep, ok := next.(matrix.ErrorReporter); ok {
		return rep.Errors()
	}
	return nil
}

func clearErrors(next matrix.Oracle) {
	if rep, ok := next.(matrix.ErrorReporter); ok {
		rep.ClearErrors()
	}
}

func drainErrors(next matrix.Oracle) []string {
	if rep, ok := next.(matrix.ErrorReporter); ok {
		return rep.Drain()
	}
	return nil
}
