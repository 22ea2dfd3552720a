package predict

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when the local token bucket cannot admit a call
// before the context ends. The service itself was never contacted.
var ErrRateLimited = errors.New("rate limit wait canceled")

// RateLimitedService wraps a Service with a token bucket
type RateLimitedService struct {
	service Service
	limiter *rate.Limiter
}

// NewRateLimitedService creates a rate limited service.
// rps is the maximum requests per second (can be fractional), burst the maximum burst size.
func NewRateLimitedService(service Service, rps float64, burst int) *RateLimitedService {
	return &RateLimitedService{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Predict waits for a token or context cancellation, then forwards the call
func (r *RateLimitedService) Predict(ctx context.Context, req Request) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return r.service.Predict(ctx, req)
}

var _ Service = (*RateLimitedService)(nil)
