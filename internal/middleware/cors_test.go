package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/scoregw/internal/config"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
		wantNext    bool
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://0.0.0.0:3000", wantStatus: http.StatusOK, wantAllowed: true, wantNext: true},
		{name: "disallowed origin", method: http.MethodGet, origin: "http://evil.example", wantStatus: http.StatusOK, wantNext: true},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK, wantNext: true},
		{name: "preflight allowed", method: http.MethodOptions, origin: "http://0.0.0.0:8080", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "preflight disallowed", method: http.MethodOptions, origin: "http://evil.example", preflight: true, wantStatus: http.StatusNoContent},
		{name: "plain options passes through", method: http.MethodOptions, origin: "http://0.0.0.0:3000", wantStatus: http.StatusOK, wantAllowed: true, wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/get-scores", nil)
			if tt.origin != "" {
				req.Header.Set(HeaderOrigin, tt.origin)
			}
			if tt.preflight {
				req.Header.Set(HeaderAccessControlRequestMethod, http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORSFromConfig(nil)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, called)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rec.Header().Get(HeaderAccessControlAllowOrigin))
				assert.Equal(t, "GET, POST, DELETE", rec.Header().Get(HeaderAccessControlAllowMethods))
				assert.Equal(t, "Authorization, Content-Type", rec.Header().Get(HeaderAccessControlAllowHeaders))
				assert.Equal(t, "86400", rec.Header().Get(HeaderAccessControlMaxAge))
				assert.Empty(t, rec.Header().Get(HeaderAccessControlAllowCredentials))
			} else {
				assert.Empty(t, rec.Header().Get(HeaderAccessControlAllowOrigin))
				assert.Empty(t, rec.Header().Get(HeaderAccessControlAllowMethods))
			}
		})
	}
}

func TestCORSFromConfig_Overrides(t *testing.T) {
	t.Parallel()

	mw := CORSFromConfig(&config.CORSConfig{
		AllowedOrigins: []string{"*.example.com"},
		AllowedMethods: []string{http.MethodGet},
		MaxAge:         60,
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderOrigin, "https://app.example.com:8443")
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com:8443", rec.Header().Get(HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET", rec.Header().Get(HeaderAccessControlAllowMethods))
	assert.Equal(t, "Authorization, Content-Type", rec.Header().Get(HeaderAccessControlAllowHeaders))
	assert.Equal(t, "60", rec.Header().Get(HeaderAccessControlMaxAge))
}

func TestCORSFromConfig_NeverAllowsCredentials(t *testing.T) {
	t.Parallel()

	mw := CORSFromConfig(&config.CORSConfig{
		AllowedOrigins:   []string{"http://0.0.0.0:3000"},
		AllowCredentials: true,
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/set-score", nil)
	req.Header.Set(HeaderOrigin, "http://0.0.0.0:3000")
	req.Header.Set(HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://0.0.0.0:3000", rec.Header().Get(HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(HeaderAccessControlAllowCredentials))
}

func TestMatchWildcardOrigin(t *testing.T) {
	t.Parallel()

	assert.True(t, matchWildcardOrigin("https://a.example.com", "*.example.com"))
	assert.False(t, matchWildcardOrigin("https://example.com", "*.example.com"))
	assert.False(t, matchWildcardOrigin("https://evil-example.com", "*.example.com"))
}
