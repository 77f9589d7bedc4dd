package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// Breaker defaults.
const (
	DefaultBreakerMaxFailures = 5
	DefaultBreakerOpenTimeout = 30 * time.Second
)

// BreakerSettings configures the circuit breaker around a Store.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStateFunc is called when the breaker changes state.
// state is 0=closed, 1=half-open, 2=open.
type BreakerStateFunc func(name string, state int)

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the logger.
func WithBreakerLogger(logger observability.Logger) BreakerOption {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBreakerStateCallback sets a callback for state changes.
func WithBreakerStateCallback(fn BreakerStateFunc) BreakerOption {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// Breaker is a Store decorator that stops calling a failing backend. While
// open every call fails fast with ErrUnavailable. ErrNotFound and
// cancellations by the caller do not count as failures.
type Breaker struct {
	next          Store
	cb            *gobreaker.CircuitBreaker
	logger        observability.Logger
	stateCallback BreakerStateFunc
}

// NewBreaker wraps next.
func NewBreaker(next Store, settings BreakerSettings, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		next:   next,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if settings.MaxFailures == 0 {
		settings.MaxFailures = DefaultBreakerMaxFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = DefaultBreakerOpenTimeout
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("store circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if b.stateCallback != nil {
				b.stateCallback(name, int(to))
			}
		},
	})

	return b
}

// State returns the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Op: "breaker", Err: errors.Join(ErrUnavailable, err)}
	}
	return err
}

// Ping implements Store.
func (b *Breaker) Ping(ctx context.Context) error {
	return b.do(func() error { return b.next.Ping(ctx) })
}

// TopScores implements Store.
func (b *Breaker) TopScores(ctx context.Context) ([]Score, error) {
	var scores []Score
	err := b.do(func() error {
		var err error
		scores, err = b.next.TopScores(ctx)
		return err
	})
	return scores, err
}

// SubmitScore implements Store.
func (b *Breaker) SubmitScore(ctx context.Context, s Score) (bool, error) {
	var stored bool
	err := b.do(func() error {
		var err error
		stored, err = b.next.SubmitScore(ctx, s)
		return err
	})
	return stored, err
}

// Flush implements Store.
func (b *Breaker) Flush(ctx context.Context) error {
	return b.do(func() error { return b.next.Flush(ctx) })
}

// FindUser implements Store.
func (b *Breaker) FindUser(ctx context.Context, username string) (User, error) {
	var u User
	err := b.do(func() error {
		var err error
		u, err = b.next.FindUser(ctx, username)
		return err
	})
	return u, err
}

// UpsertUser implements Store.
func (b *Breaker) UpsertUser(ctx context.Context, u User) error {
	return b.do(func() error { return b.next.UpsertUser(ctx, u) })
}

// Close implements Store. It bypasses the breaker.
func (b *Breaker) Close() error {
	return b.next.Close()
}
