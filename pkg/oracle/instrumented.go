package oracle

import (
	"context"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
)

// Metric names registered by Instrumented.
const (
	MetricCalls    = "oracle.calls"
	MetricFailures = "oracle.failures"
	MetricLatency  = "oracle.latency"
)

// Instrumented counts calls and failures of the wrapped oracle and times them.
type Instrumented struct {
	next     matrix.Oracle
	calls    metrics.Counter
	failures metrics.Counter
	latency  metrics.Timer
}

// NewInstrumented registers its metrics in r, or in the default registry when r is nil.
func NewInstrumented(next matrix.Oracle, r metrics.Registry) *Instrumented {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Instrumented{
		next:     next,
		calls:    metrics.GetOrRegisterCounter(MetricCalls, r),
		failures: metrics.GetOrRegisterCounter(MetricFailures, r),
		latency:  metrics.GetOrRegisterTimer(MetricLatency, r),
	}
}

func (o *Instrumented) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (matrix.Distance, error) {
	start := time.Now()
	d, err := o.next.TravelDistance(ctx, origin, destination)
	o.latency.UpdateSince(start)
	o.calls.Inc(1)
	if err != nil {
		o.failures.Inc(1)
	}
	return d, err
}

func (o *Instrumented) Errors() []string { return forwardErrors(o.next) }
func (o *Instrumented) ClearErrors()     { clearErrors(o.next) }
func (o *Instrumented) Drain() []string  { return drainErrors(o.next) }
