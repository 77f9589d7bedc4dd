// Package middleware provides the HTTP interceptors that make up the
// gateway pipeline.
//
// # Middleware Components
//
//   - SecurityHeaders: fixed response security headers on every response
//   - BodyLimit: request body size cap, enforced before any stateful work
//   - Timeout: request deadline reported as a gateway timeout
//   - CORS: origin, method and header allow-lists
//   - RateLimit: keyed token-bucket throttling
//   - Recovery: panic recovery with stack trace logging
//   - RequestID: unique request identifier injection
//   - Logging: structured request logging
//
// Authentication lives in the auth package; metrics and tracing
// interceptors live in the observability package.
//
// # Usage
//
// Middleware functions follow the standard Go pattern and compose with
// Chain, outermost first:
//
//	handler := middleware.Chain(
//	    middleware.Recovery(logger),
//	    middleware.RequestID(),
//	    middleware.SecurityHeaders(),
//	)(yourHandler)
package middleware
