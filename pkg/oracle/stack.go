package oracle

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/azybler/distance_matrix/pkg/matrix"
)

// StackOptions selects the decorators NewStack puts around a base oracle.
// Zero values leave the matching layer out.
type StackOptions struct {
	CacheTTL      time.Duration
	CacheCapacity uint64
	RateLimit     float64 // calls per second
	RateBurst     int
	Registry      metrics.Registry // nil disables instrumentation
}

// Stack is a base oracle wrapped, from the inside out, in a rate limiter, a
// cache and instrumentation. Cache hits skip the limiter; every call,
// cached or not, is counted.
type Stack struct {
	matrix.Oracle
	cached *Cached
}

// NewStack assembles the decorators chosen by opts around base.
func NewStack(base matrix.Oracle, opts StackOptions) *Stack {
	o := base
	if opts.RateLimit > 0 {
		o = NewLimited(o, opts.RateLimit, opts.RateBurst)
	}
	s := &Stack{}
	if opts.CacheTTL > 0 {
		s.cached = NewCached(o, opts.CacheTTL, opts.CacheCapacity)
		o = s.cached
	}
	if opts.Registry != nil {
		o = NewInstrumented(o, opts.Registry)
	}
	s.Oracle = o
	return s
}

func (s *Stack) Errors() []string { return forwardErrors(s.Oracle) }
func (s *Stack) ClearErrors()     { clearErrors(s.Oracle) }
func (s *Stack) Drain() []string  { return drainErrors(s.Oracle) }

// CacheMetrics reports cache statistics; ok is false when caching is off.
func (s *Stack) CacheMetrics() (m ttlcache.Metrics, ok bool) {
	if s.cached == nil {
		return ttlcache.Metrics{}, false
	}
	return s.cached.Metrics(), true
}

// Close releases the cache, if any.
func (s *Stack) Close() {
	if s.cached != nil {
		s.cached.Close()
	}
}
