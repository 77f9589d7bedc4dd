package middleware

import "net/http"

// Security header values. They are fixed and not configurable.
const (
	ContentSecurityPolicy   = "default-src 'self'"
	StrictTransportSecurity = "max-age=31536000; includeSubDomains"
	ContentTypeOptions      = "nosniff"
	FrameOptions            = "DENY"
	ReferrerPolicy          = "no-referrer-when-downgrade"
	PermissionsPolicy       = "geolocation=(), camera=()"
)

// securityHeaders is ordered for deterministic output.
var securityHeaders = [...][2]string{
	{"Content-Security-Policy", ContentSecurityPolicy},
	{"Strict-Transport-Security", StrictTransportSecurity},
	{"X-Content-Type-Options", ContentTypeOptions},
	{"X-Frame-Options", FrameOptions},
	{"Referrer-Policy", ReferrerPolicy},
	{"Permissions-Policy", PermissionsPolicy},
}

// SecurityHeaders returns a middleware that sets the security headers on
// every response. The headers are set before the next handler runs, so
// responses written by inner interceptors (rejections, timeouts, panics)
// carry them too.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
