// Package retry runs an operation again with exponential backoff until it
// succeeds, the attempts run out or the context ends.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy defaults.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultJitterFactor   = 0.25
)

// Policy bounds the retries of one operation. Zero fields take the
// defaults; MaxRetries below zero disables retrying.
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFactor   float64
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries == 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	if p.JitterFactor <= 0 {
		p.JitterFactor = DefaultJitterFactor
	}
	if p.JitterFactor > 1 {
		p.JitterFactor = 1
	}
	return p
}

// Option configures Do.
type Option func(*runner)

type runner struct {
	shouldRetry func(error) bool
	onRetry     func(attempt int, err error, backoff time.Duration)
	jitter      func() float64
}

// WithShouldRetry stops retrying as soon as fn returns false for an error.
func WithShouldRetry(fn func(error) bool) Option {
	return func(r *runner) {
		r.shouldRetry = fn
	}
}

// WithOnRetry is called before each sleep.
func WithOnRetry(fn func(attempt int, err error, backoff time.Duration)) Option {
	return func(r *runner) {
		r.onRetry = fn
	}
}

// withJitter replaces the random source; tests pin it.
func withJitter(fn func() float64) Option {
	return func(r *runner) {
		r.jitter = fn
	}
}

// Do calls fn until it returns nil. It returns the last error from fn, or
// the context error if ctx ends first.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error, opts ...Option) error {
	p := policy.withDefaults()
	r := &runner{jitter: rand.Float64} //nolint:gosec // jitter is not security sensitive
	for _, opt := range opts {
		opt(r)
	}

	var err error
	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || (r.shouldRetry != nil && !r.shouldRetry(err)) {
			return err
		}

		backoff := Backoff(attempt, p, r.jitter())
		if r.onRetry != nil {
			r.onRetry(attempt+1, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Backoff returns the sleep before retry number attempt+1: the initial
// backoff doubled per attempt, plus up to JitterFactor of itself scaled by
// jitter in [0,1), capped at MaxBackoff.
func Backoff(attempt int, p Policy, jitter float64) time.Duration {
	backoff := float64(p.InitialBackoff) * math.Pow(2, float64(attempt))
	backoff += backoff * p.JitterFactor * jitter
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}
	return time.Duration(backoff)
}
