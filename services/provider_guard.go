package services

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/smarte-commerce/ecomm-shipping-sub000/metrics"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	"github.com/smarte-commerce/ecomm-shipping-sub000/providers"
	"golang.org/x/time/rate"
)

// =============================================================================
// Circuit Breaker
// =============================================================================

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a provider is not being called.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failed calls that opens the circuit
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a probe is let through
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the standard breaker policy.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker stops calling a provider after repeated failures and lets
// a single probe through once the cooldown has passed.
type CircuitBreaker struct {
	mu sync.Mutex

	name   string
	config BreakerConfig
	now    func() time.Time

	state     CircuitState
	failures  int
	openUntil time.Time
	probing   bool
}

// NewCircuitBreaker creates a closed breaker. A nil clock defaults to time.Now.
func NewCircuitBreaker(name string, config BreakerConfig, now func() time.Time) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{name: name, config: config, now: now, state: CircuitClosed}
}

// Allow checks if a call should be made. In half-open state only one
// probe is admitted until its outcome is recorded.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Before(cb.openUntil) {
			return ErrCircuitOpen
		}
		cb.transitionTo(CircuitHalfOpen)
		cb.probing = true
		return nil
	case CircuitHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	}
	return nil
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		cb.transitionTo(CircuitClosed)
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false
	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	cb.state = newState
	if newState == CircuitOpen {
		cb.openUntil = cb.now().Add(cb.config.Cooldown)
	}
	metrics.SetCircuitState(cb.name, int(newState))
}

// Status returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Status() (CircuitState, int, time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.failures, cb.openUntil
}

// =============================================================================
// Retry
// =============================================================================

// RetryPolicy configures retries of a single provider call.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter adds randomness to backoff (0.0 to 1.0)
	Jitter float64
}

// DefaultRetryPolicy returns the standard provider retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	backoff := float64(p.InitialBackoff) * math.Pow(mult, float64(attempt-1))
	if p.MaxBackoff > 0 && backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	if p.Jitter > 0 {
		backoff += backoff * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(backoff)
}

// =============================================================================
// Provider guard
// =============================================================================

// providerGuard bundles the failure isolation state of one provider.
type providerGuard struct {
	provider providers.QuoteProvider
	breaker  *CircuitBreaker
	limiter  *rate.Limiter
}

func newProviderGuard(p providers.QuoteProvider, cfg AggregatorConfig, now func() time.Time) *providerGuard {
	limit := rate.Inf
	burst := 1
	if cfg.ProviderRPS > 0 {
		limit = rate.Limit(cfg.ProviderRPS)
		burst = int(math.Max(1, math.Ceil(cfg.ProviderRPS)))
	}
	return &providerGuard{
		provider: p,
		breaker:  NewCircuitBreaker(p.Name(), cfg.Breaker, now),
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// call runs fn with rate limiting and bounded retries, then records the
// final outcome on the breaker. It returns the number of attempts made.
func (g *providerGuard) call(ctx context.Context, policy RetryPolicy,
	fn func(context.Context) ([]models.ShippingOption, error),
) ([]models.ShippingOption, int, error) {
	opts, attempts, err := g.attempt(ctx, policy, fn)
	if err != nil {
		g.breaker.RecordFailure()
		return nil, attempts, err
	}
	g.breaker.RecordSuccess()
	return opts, attempts, nil
}

func (g *providerGuard) attempt(ctx context.Context, policy RetryPolicy,
	fn func(context.Context) ([]models.ShippingOption, error),
) ([]models.ShippingOption, int, error) {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(policy.backoff(attempt)):
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return nil, attempt, err
		}

		opts, err := fn(ctx)
		if err == nil {
			return opts, attempt + 1, nil
		}
		lastErr = err
		if !providers.IsRetryable(err) || ctx.Err() != nil {
			return nil, attempt + 1, err
		}
	}
	return nil, policy.MaxRetries + 1, lastErr
}
