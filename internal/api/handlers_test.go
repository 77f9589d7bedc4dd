package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/scoregw/internal/app"
	"github.com/vyrodovalexey/scoregw/internal/auth"
	"github.com/vyrodovalexey/scoregw/internal/auth/jwt"
	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/health"
	"github.com/vyrodovalexey/scoregw/internal/secrets"
	"github.com/vyrodovalexey/scoregw/internal/store"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSecret   = "Zyxwvutsrqponmlkjihgfedcba543210"
	testPassword = "correct-horse"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (f *failingStore) Ping(context.Context) error                       { return f.err }
func (f *failingStore) TopScores(context.Context) ([]store.Score, error) { return nil, f.err }
func (f *failingStore) SubmitScore(context.Context, store.Score) (bool, error) {
	return false, f.err
}
func (f *failingStore) Flush(context.Context) error { return f.err }
func (f *failingStore) FindUser(context.Context, string) (store.User, error) {
	return store.User{}, f.err
}
func (f *failingStore) UpsertUser(context.Context, store.User) error { return f.err }
func (f *failingStore) Close() error                                 { return nil }

type testEnv struct {
	state  *app.State
	router *gin.Engine
}

func newTestEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.AdminPassword = testPassword

	if st == nil {
		sqlite, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = sqlite.Close() })
		st = sqlite
	}

	sec, err := secrets.NewStore(testSecret, secrets.Policy{Leeway: jwt.DefaultLeeway, TokenTTL: jwt.DefaultTTL})
	require.NoError(t, err)

	state, err := app.New(cfg, st, sec, nil, nil)
	require.NoError(t, err)

	checker := health.NewChecker()
	checker.RegisterCheck("database", health.PingCheck(st))

	return &testEnv{
		state:  state,
		router: NewRouter(NewHandlers(state, checker, WithClock(func() time.Time { return testNow }))),
	}
}

// serve sends a request to the router. claims, when set, are attached the
// way the authentication interceptor attaches them.
func (e *testEnv) serve(method, path, body string, claims *jwt.Claims) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if claims != nil {
		req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) util.ErrorBody {
	t.Helper()
	var body util.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func playerClaims() *jwt.Claims {
	c := &jwt.Claims{Role: "player"}
	c.Subject = "bob"
	return c
}

func adminClaims() *jwt.Claims {
	c := &jwt.Claims{Role: "admin"}
	c.Subject = "admin"
	return c
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("database up", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, nil)

		rec := env.serve(http.MethodGet, PathHealth, "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"OK","services":{"server":"OK","database":"OK"}}`, rec.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, &failingStore{err: errors.New("connection refused")})

		rec := env.serve(http.MethodGet, PathHealth, "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"OK","services":{"server":"OK","database":"DOWN"}}`, rec.Body.String())
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	require.NoError(t, env.state.SeedAdmin(context.Background()))

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		rec := env.serve(http.MethodPost, PathLogin, `{"username":"admin","password":"`+testPassword+`"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		claims, err := jwt.Verify(resp.Token, testSecret, jwt.DefaultLeeway, testNow)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Subject)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, testNow.Add(time.Hour).Unix(), claims.ExpiresAtTime().Unix())
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKind   util.Kind
	}{
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized, util.KindUnauthorized},
		{"unknown user", `{"username":"mallory","password":"x"}`, http.StatusUnauthorized, util.KindUnauthorized},
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest, util.KindValidation},
		{"not json", `username=admin`, http.StatusBadRequest, util.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.serve(http.MethodPost, PathLogin, tt.body, nil)
			require.Equal(t, tt.wantStatus, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantStatus, body.Status)
		})
	}
}

func TestSetAndGetScores(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	for i := 1; i <= 12; i++ {
		body := fmt.Sprintf(`{"player_name":"player%02d","player_score":%d}`, i, i*100)
		rec := env.serve(http.MethodPost, "/api/set-score", body, playerClaims())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"status":"Ok"}`, rec.Body.String())
	}

	rec := env.serve(http.MethodGet, "/api/get-scores", "", playerClaims())
	require.Equal(t, http.StatusOK, rec.Code)

	var scores []store.Score
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	require.Len(t, scores, store.TopN)
	assert.Equal(t, store.Score{PlayerName: "player12", PlayerScore: 1200}, scores[0])
	assert.Equal(t, store.Score{PlayerName: "player03", PlayerScore: 300}, scores[store.TopN-1])
}

func TestSetScore_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"name too short", `{"player_name":"ab","player_score":10}`},
		{"name too long", `{"player_name":"abcdefghijklmnopqrstu","player_score":10}`},
		{"negative score", `{"player_name":"alice","player_score":-1}`},
		{"score too high", `{"player_name":"alice","player_score":1000001}`},
		{"missing score", `{"player_name":"alice"}`},
		{"wrong type", `{"player_name":"alice","player_score":"ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.serve(http.MethodPost, "/api/set-score", tt.body, playerClaims())
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, util.KindValidation, errorBody(t, rec).Kind)
		})
	}

	t.Run("bounds are inclusive", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{
			`{"player_name":"abc","player_score":0}`,
			`{"player_name":"abcdefghijklmnopqrst","player_score":1000000}`,
		} {
			rec := env.serve(http.MethodPost, "/api/set-score", body, playerClaims())
			assert.Equal(t, http.StatusOK, rec.Code, body)
		}
	})
}

func TestFlush(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.serve(http.MethodPost, "/api/set-score", `{"player_name":"alice","player_score":5}`, playerClaims())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.serve(http.MethodDelete, "/api/flush", "", playerClaims())
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, util.KindForbidden, errorBody(t, rec).Kind)

	rec = env.serve(http.MethodDelete, "/api/flush", "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.serve(http.MethodDelete, "/api/flush", "", adminClaims())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Ok"}`, rec.Body.String())

	rec = env.serve(http.MethodGet, "/api/get-scores", "", playerClaims())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStoreFailures(t *testing.T) {
	t.Parallel()

	unavailable := &store.Error{Op: "breaker", Err: errors.Join(store.ErrUnavailable, errors.New("open"))}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   util.Kind
	}{
		{"database error", errors.New("disk I/O error"), http.StatusInternalServerError, util.KindDatabase},
		{"breaker open", unavailable, http.StatusServiceUnavailable, util.KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t, &failingStore{err: tt.err})
			requests := []struct {
				method, path, body string
			}{
				{http.MethodGet, "/api/get-scores", ""},
				{http.MethodPost, "/api/set-score", `{"player_name":"alice","player_score":5}`},
				{http.MethodDelete, "/api/flush", ""},
				{http.MethodPost, PathLogin, `{"username":"admin","password":"x"}`},
			}
			for _, r := range requests {
				rec := env.serve(r.method, r.path, r.body, adminClaims())
				require.Equal(t, tt.wantStatus, rec.Code, r.path)
				body := errorBody(t, rec)
				assert.Equal(t, tt.wantKind, body.Kind, r.path)
				assert.NotContains(t, body.Message, "disk", "internal detail must not leak")
			}
		})
	}
}

func TestNoRoute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.serve(http.MethodGet, "/nowhere", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, util.KindNotFound, errorBody(t, rec).Kind)
}
