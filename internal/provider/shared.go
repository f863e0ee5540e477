// internal/provider/shared.go
package provider

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/solenoidlabs/webpilot/api/schemas"
)

// Shared wraps a decision provider for use by concurrent task runs. It
// bounds both the request rate and the number of in-flight requests, so a
// fleet of runners shares one API quota instead of tripping rate limits
// independently.
type Shared struct {
	inner   schemas.DecisionProvider
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

var _ schemas.DecisionProvider = (*Shared)(nil)

// NewShared bounds the given provider to requestsPerSec and maxInFlight.
func NewShared(inner schemas.DecisionProvider, requestsPerSec float64, maxInFlight int64) *Shared {
	return &Shared{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

// Decide waits for capacity and quota, then delegates. Cancellation while
// queued returns the context error without consuming quota.
func (s *Shared) Decide(ctx context.Context, req schemas.DecisionRequest) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Decide(ctx, req)
}
