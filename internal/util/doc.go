// Package util provides shared types for the score gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: jwt.ErrMalformedToken.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., RequestError, store.Error). Each type
//     implements Error() and Unwrap() (if wrapping).
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// Every request-scoped failure leaves the process as a RequestError
// rendered by WriteError, so clients always receive the same JSON shape:
//
//	{"status": 429, "kind": "RateLimitExceeded", "message": "rate limit exceeded"}
package util
