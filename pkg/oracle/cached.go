package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
)

// Cached memoises successful answers of the wrapped oracle. Keys are the
// coordinates rounded to 1e-6 degrees, about 10cm. Failures are not cached.
type Cached struct {
	next  matrix.Oracle
	cache *ttlcache.Cache[string, matrix.Distance]
}

// NewCached starts a cache holding up to capacity entries for ttl each.
// Call Close to stop the expiry goroutine.
func NewCached(next matrix.Oracle, ttl time.Duration, capacity uint64) *Cached {
	opts := []ttlcache.Option[string, matrix.Distance]{ttlcache.WithTTL[string, matrix.Distance](ttl)}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, matrix.Distance](capacity))
	}
	c := &Cached{
		next:  next,
		cache: ttlcache.New(opts...),
	}
	go c.cache.Start()
	return c
}

func (c *Cached) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (matrix.Distance, error) {
	key := cacheKey(origin, destination)
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	d, err := c.next.TravelDistance(ctx, origin, destination)
	if err != nil {
		return d, err
	}
	c.cache.Set(key, d, ttlcache.DefaultTTL)
	return d, nil
}

// Len returns the number of cached pairs.
func (c *Cached) Len() int { return c.cache.Len() }

// Metrics reports hits, misses, insertions and evictions.
func (c *Cached) Metrics() ttlcache.Metrics { return c.cache.Metrics() }

func (c *Cached) Errors() []string { return forwardErrors(c.next) }
func (c *Cached) ClearErrors()     { clearErrors(c.next) }
func (c *Cached) Drain() []string  { return drainErrors(c.next) }

// Close stops the expiry goroutine.
func (c *Cached) Close() { c.cache.Stop() }

func cacheKey(origin, destination geo.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f>%.6f,%.6f", origin.Lat, origin.Lng, destination.Lat, destination.Lng)
}
