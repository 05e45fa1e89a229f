package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/azybler/distance_matrix/pkg/geo"
	"github.com/azybler/distance_matrix/pkg/matrix"
)

// Limited throttles calls into the wrapped oracle.
type Limited struct {
	next    matrix.Oracle
	limiter *rate.Limiter
}

// NewLimited allows perSecond calls on average with bursts of up to burst.
func NewLimited(next matrix.Oracle, perSecond float64, burst int) *Limited {
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *Limited) TravelDistance(ctx context.Context, origin, destination geo.LatLng) (matrix.Distance, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return matrix.Distance{}, fmt.Errorf("rate limit: %w", err)
	}
	return l.next.TravelDistance(ctx, origin, destination)
}

func (l *Limited) Errors() []string { return forwardErrors(l.next) }
func (l *Limited) ClearErrors()     { clearErrors(l.next) }
func (l *Limited) Drain() []string  { return drainErrors(l.next) }
