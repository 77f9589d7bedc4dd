package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails every call while down is set.
type flakyStore struct {
	mu    sync.Mutex
	down  bool
	calls int
}

var errBackendDown = errors.New("backend down")

func (f *flakyStore) call() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return errBackendDown
	}
	return nil
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *flakyStore) Ping(context.Context) error { return f.call() }
func (f *flakyStore) TopScores(context.Context) ([]Score, error) {
	return []Score{{PlayerName: "a", PlayerScore: 1}}, f.call()
}
func (f *flakyStore) SubmitScore(context.Context, Score) (bool, error) { return true, f.call() }
func (f *flakyStore) Flush(context.Context) error                      { return f.call() }
func (f *flakyStore) FindUser(_ context.Context, name string) (User, error) {
	if err := f.call(); err != nil {
		return User{}, err
	}
	return User{}, ErrNotFound
}
func (f *flakyStore) UpsertUser(context.Context, User) error { return f.call() }
func (f *flakyStore) Close() error                           { return nil }

func TestBreaker_OpensAndRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := &flakyStore{down: true}

	var mu sync.Mutex
	var states []int
	b := NewBreaker(backend, BreakerSettings{Name: "test", MaxFailures: 3, OpenTimeout: 50 * time.Millisecond},
		WithBreakerStateCallback(func(_ string, state int) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, state)
		}),
	)

	for i := 0; i < 3; i++ {
		err := b.Ping(ctx)
		assert.ErrorIs(t, err, errBackendDown)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Flush(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, backend.callCount(), "open breaker must not call the backend")

	backend.setDown(false)
	require.Eventually(t, func() bool { return b.Ping(ctx) == nil }, time.Second, 10*time.Millisecond)
	assert.Equal(t, gobreaker.StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{int(gobreaker.StateOpen), int(gobreaker.StateHalfOpen), int(gobreaker.StateClosed)}, states)
}

func TestBreaker_NotFoundIsNotAFailure(t *testing.T) {
	t.Parallel()

	b := NewBreaker(&flakyStore{}, BreakerSettings{Name: "nf", MaxFailures: 1})
	for i := 0; i < 5; i++ {
		_, err := b.FindUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PassesResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBreaker(&flakyStore{}, BreakerSettings{})

	scores, err := b.TopScores(ctx)
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	stored, err := b.SubmitScore(ctx, Score{PlayerName: "abc", PlayerScore: 1})
	require.NoError(t, err)
	assert.True(t, stored)

	require.NoError(t, b.UpsertUser(ctx, User{Username: "abc"}))
	require.NoError(t, b.Close())
}
