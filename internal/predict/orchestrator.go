package predict

import (
	"context"
	"math/rand"
	"time"

	"github.com/chrissnell/tempcast/pkg/config"
	"go.uber.org/zap"
)

// FallbackMode selects what a failed service call turns into
type FallbackMode string

const (
	// FallbackSynthetic substitutes a random temperature in [20.0, 35.0).
	FallbackSynthetic FallbackMode = config.FallbackSynthetic
	// FallbackUnavailable reports the prediction as unavailable.
	FallbackUnavailable FallbackMode = config.FallbackUnavailable
)

// Synthetic fallback range, in tenths of a degree: [200, 350)
const (
	fallbackMinTenths  = 200
	fallbackSpanTenths = 150
)

// Orchestrator validates requests, calls the prediction service and applies
// the fallback policy when the call fails.
type Orchestrator struct {
	service  Service
	breaker  *Breaker
	timeout  time.Duration
	fallback FallbackMode
	intn     func(n int) int
	logger   *zap.SugaredLogger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithTimeout bounds every service call. Zero disables the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithFallback selects the fallback policy
func WithFallback(m FallbackMode) Option {
	return func(o *Orchestrator) { o.fallback = m }
}

// WithBreaker routes service calls through b
func WithBreaker(b *Breaker) Option {
	return func(o *Orchestrator) { o.breaker = b }
}

// WithRand replaces the random source used for synthetic fallbacks.
// intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(o *Orchestrator) { o.intn = intn }
}

// NewOrchestrator creates an orchestrator around service
func NewOrchestrator(service Service, logger *zap.SugaredLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:  service,
		timeout:  config.DefaultPredictorTimeout,
		fallback: FallbackSynthetic,
		intn:     rand.Intn,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewFromConfig builds the HTTP client, optional rate limiter and breaker
// described by cfg and wraps them in an Orchestrator.
func NewFromConfig(cfg config.PredictorData, logger *zap.SugaredLogger) *Orchestrator {
	var service Service = NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if cfg.RateLimit.RPS > 0 {
		service = NewRateLimitedService(service, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithFallback(FallbackMode(cfg.Fallback)),
	}
	if cfg.Breaker.MaxFailures > 0 {
		opts = append(opts, WithBreaker(NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.ResetTimeout, logger)))
	}
	return NewOrchestrator(service, logger, opts...)
}

// Predict returns a prediction for req. The only errors returned are
// ErrInvalidRequest and the caller's own context error; service failures are
// logged and replaced by the fallback result.
func (o *Orchestrator) Predict(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	temp, err := o.call(callCtx, req)
	if err == nil {
		o.logger.Debugw("prediction served by service",
			"month", req.Month, "hour", req.Hour, "temperature", temp, "elapsed", time.Since(start))
		return Result{Temperature: Round1(temp), Source: SourceService, Available: true}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	o.logger.Warnw("prediction service call failed, applying fallback",
		"month", req.Month, "hour", req.Hour, "fallback", string(o.fallback),
		"elapsed", time.Since(start), "error", err)
	return o.fallbackResult(), nil
}

func (o *Orchestrator) call(ctx context.Context, req Request) (float64, error) {
	if o.breaker == nil {
		return o.service.Predict(ctx, req)
	}

	var temp float64
	err := o.breaker.Execute(ctx, func(ctx context.Context) error {
		v, err := o.service.Predict(ctx, req)
		if err != nil {
			return err
		}
		temp = v
		return nil
	})
	return temp, err
}

func (o *Orchestrator) fallbackResult() Result {
	if o.fallback == FallbackUnavailable {
		return Result{Source: SourceUnavailable, Available: false}
	}
	tenths := fallbackMinTenths + o.intn(fallbackSpanTenths)
	return Result{Temperature: float64(tenths) / 10, Source: SourceFallback, Available: true}
}
