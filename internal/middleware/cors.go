package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/scoregw/internal/config"
)

// CORSConfig contains CORS configuration. Credentialed cross-origin
// requests are never allowed, so Access-Control-Allow-Credentials is not sent.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig returns the default CORS configuration.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"http://0.0.0.0:3000", "http://0.0.0.0:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       86400,
	}
}

// corsHeaders holds pre-computed CORS header values.
type corsHeaders struct {
	allowOrigins     map[string]bool
	wildcardPatterns []string // Patterns like "*.example.com"
	allowAllOrigins  bool
	allowMethods     string
	allowHeaders     string
	maxAge           string
}

func newCORSHeaders(cfg CORSConfig) *corsHeaders {
	h := &corsHeaders{
		allowOrigins: make(map[string]bool, len(cfg.AllowOrigins)),
		allowMethods: strings.Join(cfg.AllowMethods, ", "),
		allowHeaders: strings.Join(cfg.AllowHeaders, ", "),
	}
	if cfg.MaxAge > 0 {
		h.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	for _, origin := range cfg.AllowOrigins {
		switch {
		case origin == "*":
			h.allowAllOrigins = true
		case strings.HasPrefix(origin, "*."):
			h.wildcardPatterns = append(h.wildcardPatterns, origin)
		default:
			h.allowOrigins[origin] = true
		}
	}
	return h
}

func (h *corsHeaders) isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if h.allowAllOrigins || h.allowOrigins[origin] {
		return true
	}
	for _, pattern := range h.wildcardPatterns {
		if matchWildcardOrigin(origin, pattern) {
			return true
		}
	}
	return false
}

// matchWildcardOrigin reports whether origin's host is a strict subdomain of
// pattern ("*.example.com").
func matchWildcardOrigin(origin, pattern string) bool {
	suffix := pattern[1:]

	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
}

// setCORSHeaders sets CORS headers for an allowed origin. Disallowed
// origins get none.
func (h *corsHeaders) setCORSHeaders(w http.ResponseWriter, origin string) bool {
	if !h.isOriginAllowed(origin) {
		return false
	}

	hdr := w.Header()
	hdr.Set(HeaderAccessControlAllowOrigin, origin)
	hdr.Add(HeaderVary, HeaderOrigin)
	if h.allowMethods != "" {
		hdr.Set(HeaderAccessControlAllowMethods, h.allowMethods)
	}
	if h.allowHeaders != "" {
		hdr.Set(HeaderAccessControlAllowHeaders, h.allowHeaders)
	}
	if h.maxAge != "" {
		hdr.Set(HeaderAccessControlMaxAge, h.maxAge)
	}
	return true
}

// CORS returns a middleware that handles CORS. Preflight requests are
// answered with 204 without reaching later interceptors.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	headers := newCORSHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers.setCORSHeaders(w, r.Header.Get(HeaderOrigin))

			if r.Method == http.MethodOptions && r.Header.Get(HeaderAccessControlRequestMethod) != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSFromConfig creates CORS middleware from the gateway config, falling
// back to the defaults for empty lists.
func CORSFromConfig(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	corsConfig := DefaultCORSConfig()
	if cfg == nil {
		return CORS(corsConfig)
	}

	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AllowedHeaders
	}
	if cfg.MaxAge > 0 {
		corsConfig.MaxAge = cfg.MaxAge
	}

	return CORS(corsConfig)
}
