package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				t.Helper()
				s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "scores.db"))
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) Store {
				t.Helper()
				mr := miniredis.RunT(t)
				s, err := OpenRedis(context.Background(), RedisOptions{Addr: mr.Addr()})
				require.NoError(t, err)
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			assert.NoError(t, b.open(t).Ping(context.Background()))
		})
	}
}

func TestStore_BoardKeepsTopTen(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)

			scores, err := s.TopScores(ctx)
			require.NoError(t, err)
			assert.Empty(t, scores)

			for i := 1; i <= TopN; i++ {
				stored, err := s.SubmitScore(ctx, Score{PlayerName: fmt.Sprintf("player%02d", i), PlayerScore: int64(i * 10)})
				require.NoError(t, err)
				assert.True(t, stored, "board not full yet")
			}

			stored, err := s.SubmitScore(ctx, Score{PlayerName: "loser", PlayerScore: 5})
			require.NoError(t, err)
			assert.False(t, stored, "below the lowest of a full board")

			stored, err = s.SubmitScore(ctx, Score{PlayerName: "winner", PlayerScore: 1000})
			require.NoError(t, err)
			assert.True(t, stored)

			scores, err = s.TopScores(ctx)
			require.NoError(t, err)
			require.Len(t, scores, TopN)
			assert.Equal(t, Score{PlayerName: "winner", PlayerScore: 1000}, scores[0])
			assert.Equal(t, int64(20), scores[TopN-1].PlayerScore, "lowest entry was trimmed")
			for i := 1; i < len(scores); i++ {
				assert.GreaterOrEqual(t, scores[i-1].PlayerScore, scores[i].PlayerScore)
			}
		})
	}
}

func TestStore_FreePlacesAdmitAnyScore(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)

			stored, err := s.SubmitScore(ctx, Score{PlayerName: "zero", PlayerScore: 0})
			require.NoError(t, err)
			assert.True(t, stored, "zero on an empty board")

			stored, err = s.SubmitScore(ctx, Score{PlayerName: "high", PlayerScore: 500})
			require.NoError(t, err)
			assert.True(t, stored)

			stored, err = s.SubmitScore(ctx, Score{PlayerName: "low", PlayerScore: 10})
			require.NoError(t, err)
			assert.True(t, stored, "below the current lowest but the board has free places")

			scores, err := s.TopScores(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Score{
				{PlayerName: "high", PlayerScore: 500},
				{PlayerName: "low", PlayerScore: 10},
				{PlayerName: "zero", PlayerScore: 0},
			}, scores)
		})
	}
}

func TestStore_ScoreEqualToLowestQualifies(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)
			for i := 0; i < TopN; i++ {
				_, err := s.SubmitScore(ctx, Score{PlayerName: "same", PlayerScore: 50})
				require.NoError(t, err)
			}

			stored, err := s.SubmitScore(ctx, Score{PlayerName: "tie", PlayerScore: 50})
			require.NoError(t, err)
			assert.True(t, stored)

			scores, err := s.TopScores(ctx)
			require.NoError(t, err)
			assert.Len(t, scores, TopN)
		})
	}
}

func TestStore_Flush(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)
			_, err := s.SubmitScore(ctx, Score{PlayerName: "bobby", PlayerScore: 50})
			require.NoError(t, err)

			require.NoError(t, s.Flush(ctx))

			scores, err := s.TopScores(ctx)
			require.NoError(t, err)
			assert.Empty(t, scores)
		})
	}
}

func TestStore_Users(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)

			_, err := s.FindUser(ctx, "admin")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.UpsertUser(ctx, User{Username: "admin", PasswordHash: "h1", Role: "user"}))
			require.NoError(t, s.UpsertUser(ctx, User{Username: "admin", PasswordHash: "h2", Role: "admin"}))

			u, err := s.FindUser(ctx, "admin")
			require.NoError(t, err)
			assert.Equal(t, User{Username: "admin", PasswordHash: "h2", Role: "admin"}, u)
		})
	}
}

func TestStore_ConcurrentSubmissions(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			s := b.open(t)

			var wg sync.WaitGroup
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := s.SubmitScore(ctx, Score{PlayerName: fmt.Sprintf("p%02d", i), PlayerScore: int64(i)})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			scores, err := s.TopScores(ctx)
			require.NoError(t, err)
			require.Len(t, scores, TopN)
			assert.Equal(t, int64(29), scores[0].PlayerScore)
			assert.Equal(t, int64(20), scores[TopN-1].PlayerScore)
		})
	}
}

func TestRedis_PingFailsWhenServerGone(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	s := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(context.Background()))
	mr.Close()

	err := s.Ping(context.Background())
	require.Error(t, err)
	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "ping", storeErr.Op)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := observability.NopLogger()

	s, err := Open(ctx, config.StoreConfig{
		Driver:  config.DriverSQLite,
		DSN:     filepath.Join(t.TempDir(), "open.db"),
		Breaker: config.BreakerConfig{Enabled: true, MaxFailures: 2},
	}, logger)
	require.NoError(t, err)
	_, isBreaker := s.(*Breaker)
	assert.True(t, isBreaker)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.StoreConfig{Driver: config.DriverRedis, RedisAddr: mr.Addr()}, logger)
	require.NoError(t, err)
	_, isRedis := s.(*Redis)
	assert.True(t, isRedis)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "postgres"}, logger)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
