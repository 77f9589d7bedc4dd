package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/scoregw/internal/ratelimit"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

type rejectionRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *rejectionRecorder) RecordRateLimitRejection(limiter, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, limiter+":"+reason)
}

func newRegistry(t *testing.T, name string, capacity int, now func() time.Time) *ratelimit.Registry {
	t.Helper()
	reg, err := ratelimit.NewRegistry(ratelimit.Config{
		Name:            name,
		Capacity:        capacity,
		RefillPerSecond: 1,
	}, ratelimit.WithClock(now))
	require.NoError(t, err)
	return reg
}

func TestRateLimit_PublicByIP(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := newRegistry(t, "public", 3, func() time.Time { return now })
	rec := &rejectionRecorder{}
	h := RateLimit(reg, ratelimit.IPKey(nil), WithRejectionRecorder(rec))(okHandler())

	serve := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		w := serve("192.0.2.1:1000")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get(HeaderXRateLimitLimit))
	}

	w := serve("192.0.2.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get(HeaderXRateLimitRemaining))
	assert.Equal(t, "1", w.Header().Get(HeaderRetryAfter))
	assert.Equal(t, util.KindRateLimitExceeded, decodeErrorBody(t, w).Kind)

	assert.Equal(t, http.StatusOK, serve("192.0.2.2:1000").Code)
	assert.Equal(t, []string{"public:exhausted"}, rec.reasons)
}

func TestRateLimit_NoKeyIsRejected(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "authenticated", 5, time.Now)
	rec := &rejectionRecorder{}
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })
	h := RateLimit(reg, ratelimit.BearerKey, WithRejectionRecorder(rec))(next)

	tests := []struct {
		name     string
		header   string
		status   int
		wantKind util.Kind
	}{
		{name: "missing header", status: http.StatusUnauthorized, wantKind: util.KindMissingHeader},
		{name: "bad scheme", header: "Token abc", status: http.StatusBadRequest, wantKind: util.KindMalformedToken},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/get-scores", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, tt.name)
		assert.Equal(t, tt.wantKind, decodeErrorBody(t, w).Kind, tt.name)
	}

	assert.False(t, called)
	assert.Zero(t, reg.Len(), "no bucket may be created without a key")
	assert.Equal(t, []string{"authenticated:no_key", "authenticated:no_key"}, rec.reasons)
}

func TestRateLimit_PlainKeyErrorIsInternal(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, "custom", 1, time.Now)
	key := func(*http.Request) (string, error) { return "", errors.New("boom") }

	w := httptest.NewRecorder()
	RateLimit(reg, key)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, util.KindInternal, body.Kind)
	assert.NotContains(t, body.Message, "boom")
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", retryAfterSeconds(ratelimit.Decision{}))
	assert.Equal(t, "1", retryAfterSeconds(ratelimit.Decision{RetryAfter: 300 * time.Millisecond}))
	assert.Equal(t, "3", retryAfterSeconds(ratelimit.Decision{RetryAfter: 2100 * time.Millisecond}))
}
