package predict

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBreakerOpen is returned while the breaker is short-circuiting calls
var ErrBreakerOpen = errors.New("circuit breaker is open; fast-fail")

// BreakerState is the state of a Breaker
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a failing service after maxFailures consecutive
// failures, then lets a single trial call through once resetTimeout elapses.
type Breaker struct {
	maxFailures  int
	resetTimeout time.Duration
	logger       *zap.SugaredLogger
	now          func() time.Time

	mu          sync.Mutex
	state       BreakerState
	recentFails int
	openedAt    time.Time
	trialActive bool
}

// NewBreaker creates a closed breaker
func NewBreaker(maxFailures int, resetTimeout time.Duration, logger *zap.SugaredLogger) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		logger:       logger,
		now:          time.Now,
		state:        BreakerClosed,
	}
}

// Execute runs op unless the breaker is open
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	trial, err := b.admit()
	if err != nil {
		return err
	}

	err = op(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrRateLimited) {
		// Caller gave up or local throttling; says nothing about the service.
		b.release(trial)
		return err
	}
	if err != nil {
		b.onFailure(trial)
		return err
	}
	b.onSuccess()
	return nil
}

// State returns the current state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false, ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.trialActive = true
		b.logger.Infow("breaker half-open, sending trial call", "previous_failures", b.recentFails)
		return true, nil
	case BreakerHalfOpen:
		if b.trialActive {
			return false, ErrBreakerOpen
		}
		b.trialActive = true
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) release(trial bool) {
	if !trial {
		return
	}
	b.mu.Lock()
	b.trialActive = false
	b.mu.Unlock()
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerClosed {
		b.logger.Infow("breaker closed", "from", b.state.String())
	}
	b.state = BreakerClosed
	b.recentFails = 0
	b.trialActive = false
}

func (b *Breaker) onFailure(trial bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	if trial {
		b.trialActive = false
	}
	if trial || b.recentFails >= b.maxFailures {
		if b.state != BreakerOpen {
			b.logger.Warnw("breaker opened", "failures", b.recentFails, "max_failures", b.maxFailures)
		}
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}
