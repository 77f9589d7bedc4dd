package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	var attempts []int
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, WithOnRetry(func(attempt int, err error, _ time.Duration) {
		assert.ErrorIs(t, err, errTransient)
		attempts = append(attempts, attempt)
	}))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_GivesUp(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestDo_NegativeRetriesRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(-1), func(context.Context) error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDo_ShouldRetryStopsEarly(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return permanent
	}, WithShouldRetry(func(err error) bool { return !errors.Is(err, permanent) }))

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxRetries: 10, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	err := Do(ctx, policy, func(context.Context) error {
		cancel()
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, JitterFactor: 0.5}

	tests := []struct {
		attempt int
		jitter  float64
		want    time.Duration
	}{
		{0, 0, 100 * time.Millisecond},
		{1, 0, 200 * time.Millisecond},
		{2, 0, 400 * time.Millisecond},
		{1, 1, 300 * time.Millisecond},
		{4, 0, time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt, p, tt.jitter), "attempt %d jitter %v", tt.attempt, tt.jitter)
	}
}

func TestDo_UsesJitterSource(t *testing.T) {
	t.Parallel()

	var backoffs []time.Duration
	_ = Do(context.Background(), Policy{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Second, JitterFactor: 1},
		func(context.Context) error { return errTransient },
		withJitter(func() float64 { return 1 }),
		WithOnRetry(func(_ int, _ error, d time.Duration) { backoffs = append(backoffs, d) }),
	)

	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, backoffs)
}
