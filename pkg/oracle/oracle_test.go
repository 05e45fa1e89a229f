package oracle

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
	"github.com/azybler/distance_matrix/pkg/routing"
)

var (
	marina  = geo.LatLng{Lat: 1.2834, Lng: 103.8607}
	orchard = geo.LatLng{Lat: 1.3048, Lng: 103.8318}
	far     = geo.LatLng{Lat: 1.4500, Lng: 103.9900}
)

// mockTraveler answers from a fixed map and fails for anything else.
type mockTraveler struct {
	routes map[[2]geo.LatLng]routing.Travel
}

func (m *mockTraveler) Travel(ctx context.Context, from, to geo.LatLng) (routing.Travel, error) {
	if err := ctx.Err(); err != nil {
		return routing.Travel{}, err
	}
	tr, ok := m.routes[[2]geo.LatLng{from, to}]
	if !ok {
		return routing.Travel{}, routing.ErrNoRoute
	}
	return tr, nil
}

// countingOracle counts calls and can be told to fail.
type countingOracle struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (c *countingOracle) TravelDistance(_ context.Context, from, to geo.LatLng) (matrix.Distance, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return matrix.Distance{}, errors.New("backend down")
	}
	return matrix.Distance{Meters: from.Lat + to.Lat, Duration: time.Second}, nil
}

func TestRoad(t *testing.T) {
	road := NewRoad(&mockTraveler{routes: map[[2]geo.LatLng]routing.Travel{
		{marina, orchard}: {Meters: 4200, Duration: 9 * time.Minute},
	}})
	ctx := context.Background()

	d, err := road.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	assert.Equal(t, matrix.Distance{Meters: 4200, Duration: 9 * time.Minute}, d)
	assert.Empty(t, road.Errors())

	_, err = road.TravelDistance(ctx, orchard, marina)
	require.ErrorIs(t, err, routing.ErrNoRoute)
	errs := road.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no route found")
	assert.Contains(t, errs[0], orchard.String())

	road.ClearErrors()
	assert.Empty(t, road.Errors())
}

func TestRoadInvalidCoordinates(t *testing.T) {
	road := NewRoad(&mockTraveler{})
	_, err := road.TravelDistance(context.Background(), geo.LatLng{Lat: 95}, marina)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestRoadCancelledIsNotLogged(t *testing.T) {
	road := NewRoad(&mockTraveler{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := road.TravelDistance(ctx, marina, orchard)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, road.Errors())
}

func TestErrorLogConcurrent(t *testing.T) {
	var log ErrorLog
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				log.Add("x")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, log.Len())
	log.Clear()
	assert.Equal(t, 0, log.Len())
}

func TestStraight(t *testing.T) {
	s := NewStraight(36, 1.5) // 10 m/s
	ctx := context.Background()

	d, err := s.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	want := geo.HaversineLatLng(marina, orchard) * 1.5
	assert.InDelta(t, want, d.Meters, 1e-6)
	assert.InDelta(t, want/10, d.Duration.Seconds(), 1e-6)

	back, err := s.TravelDistance(ctx, orchard, marina)
	require.NoError(t, err)
	assert.InDelta(t, d.Meters, back.Meters, 1e-6)

	self, err := s.TravelDistance(ctx, marina, marina)
	require.NoError(t, err)
	assert.Equal(t, matrix.Zero, self)

	_, err = s.TravelDistance(ctx, geo.LatLng{Lat: math.NaN()}, marina)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestStraightDefaults(t *testing.T) {
	s := NewStraight(0, 0)
	assert.InDelta(t, DefaultSpeedKmh/3.6, s.speed, 1e-9)
	assert.Equal(t, DefaultDetourFactor, s.detour)
}

func TestCached(t *testing.T) {
	next := &countingOracle{}
	c := NewCached(next, time.Minute, 100)
	defer c.Close()
	ctx := context.Background()

	first, err := c.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	second, err := c.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), next.calls.Load())

	// Direction matters.
	_, err = c.TravelDistance(ctx, orchard, marina)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.calls.Load())
	assert.Equal(t, 2, c.Len())

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(2), m.Insertions)
}

func TestCachedSkipsFailures(t *testing.T) {
	next := &countingOracle{}
	next.fail.Store(true)
	c := NewCached(next, time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	_, err := c.TravelDistance(ctx, marina, far)
	require.Error(t, err)
	next.fail.Store(false)
	_, err = c.TravelDistance(ctx, marina, far)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCachedExpires(t *testing.T) {
	next := &countingOracle{}
	c := NewCached(next, 20*time.Millisecond, 10)
	defer c.Close()
	ctx := context.Background()

	_, err := c.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.calls.Load())
}

func TestLimited(t *testing.T) {
	next := &countingOracle{}
	l := NewLimited(next, 1, 1)
	ctx := context.Background()

	_, err := l.TravelDistance(ctx, marina, orchard)
	require.NoError(t, err)

	// The bucket is empty; the next call cannot finish inside this deadline.
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.TravelDistance(short, marina, orchard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
	assert.Equal(t, int64(1), next.calls.Load())
}

func TestInstrumented(t *testing.T) {
	next := &countingOracle{}
	r := metrics.NewRegistry()
	o := NewInstrumented(next, r)
	ctx := context.Background()

	for range 3 {
		_, err := o.TravelDistance(ctx, marina, orchard)
		require.NoError(t, err)
	}
	next.fail.Store(true)
	_, err := o.TravelDistance(ctx, marina, orchard)
	require.Error(t, err)

	assert.Equal(t, int64(4), metrics.GetOrRegisterCounter(MetricCalls, r).Count())
	assert.Equal(t, int64(1), metrics.GetOrRegisterCounter(MetricFailures, r).Count())
	assert.Equal(t, int64(4), metrics.GetOrRegisterTimer(MetricLatency, r).Count())
}

func TestStackForwardsErrorLog(t *testing.T) {
	road := NewRoad(&mockTraveler{})
	r := metrics.NewRegistry()
	s := NewStack(road, StackOptions{
		CacheTTL:  time.Minute,
		RateLimit: 1000,
		RateBurst: 10,
		Registry:  r,
	})
	defer s.Close()

	_, err := s.TravelDistance(context.Background(), marina, orchard)
	require.ErrorIs(t, err, routing.ErrNoRoute)

	var rep matrix.ErrorReporter = s
	assert.Len(t, rep.Errors(), 1)
	rep.ClearErrors()
	assert.Empty(t, road.Errors())

	_, err = s.TravelDistance(context.Background(), marina, orchard)
	require.Error(t, err)
	assert.Len(t, rep.Drain(), 1)
	assert.Empty(t, road.Errors())
	assert.Empty(t, rep.Drain())

	_, ok := s.CacheMetrics()
	assert.True(t, ok)
	assert.Equal(t, int64(1), metrics.GetOrRegisterCounter(MetricFailures, r).Count())
}

func TestStackBare(t *testing.T) {
	base := NewStraight(0, 0)
	s := NewStack(base, StackOptions{})
	defer s.Close()

	assert.Same(t, base, s.Oracle)
	_, ok := s.CacheMetrics()
	assert.False(t, ok)
	assert.Nil(t, s.Errors())
}

func TestGenerateWithRoadOracle(t *testing.T) {
	road := NewRoad(&mockTraveler{routes: map[[2]geo.LatLng]routing.Travel{
		{marina, orchard}: {Meters: 4200, Duration: 9 * time.Minute},
		{orchard, marina}: {Meters: 4600, Duration: 10 * time.Minute},
	}})
	a := matrix.Location{ID: "marina", Coordinates: marina}
	b := matrix.Location{ID: "orchard", Coordinates: orchard}
	c := matrix.Location{ID: "far", Coordinates: far}

	m, err := matrix.Generate(context.Background(), []matrix.Location{a, b, c}, road)
	require.NoError(t, err)

	d, err := m.DistanceBetween(b, a)
	require.NoError(t, err)
	assert.Equal(t, 4600.0, d.Meters)
	assert.Len(t, m.Failures(), 4)
	assert.Empty(t, road.Errors(), "Generate drains the oracle log")
}

func TestErrorLogDrainLosesNothing(t *testing.T) {
	var log ErrorLog
	const writers, perWriter = 8, 200

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				log.Add("no route")
			}
		}()
	}

	drained := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		drained += len(log.Drain())
	}

	assert.Equal(t, writers*perWriter, drained)
	assert.Zero(t, log.Len())
}

func TestGenerateDrainsRoadLogOnError(t *testing.T) {
	road := NewRoad(&mockTraveler{})
	a := matrix.Location{ID: "a", Coordinates: orchard}
	b := matrix.Location{ID: "b", Coordinates: marina}

	_, err := matrix.Generate(context.Background(), []matrix.Location{a, b, a}, road)
	require.ErrorIs(t, err, matrix.ErrDuplicateLocation)
	assert.Empty(t, road.Errors())
}
