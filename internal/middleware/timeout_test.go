package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/scoregw/internal/util"
)

func TestTimeout_CompletesInTime(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Inner", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})

	rec := httptest.NewRecorder()
	Timeout(time.Second, nil)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", rec.Body.String())
	assert.Equal(t, "yes", rec.Header().Get("X-Inner"))
}

func TestTimeout_ImplicitOK(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("body"))
	})

	rec := httptest.NewRecorder()
	Timeout(time.Second, nil)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body", rec.Body.String())
}

func TestTimeout_Expires(t *testing.T) {
	t.Parallel()

	canceled := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		close(canceled)
		_, _ = w.Write([]byte("late"))
	})

	rec := httptest.NewRecorder()
	Timeout(20*time.Millisecond, nil)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	body := decodeErrorBody(t, rec)
	assert.Equal(t, util.KindTimeout, body.Kind)
	assert.NotContains(t, rec.Body.String(), "late")

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("downstream context was not canceled")
	}
}

func TestTimeout_ClientGone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	Timeout(time.Second, nil)(handler).ServeHTTP(rec, req)

	assert.Empty(t, rec.Body.String())
}

func TestTimeout_PanicPropagatesToRecovery(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Chain(Recovery(nil), Timeout(time.Second, nil))(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, util.KindInternal, decodeErrorBody(t, rec).Kind)
}
