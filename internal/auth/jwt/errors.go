package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for credential operations.
var (
	// ErrMissingHeader indicates that no credential was supplied.
	ErrMissingHeader = errors.New("missing authorization credential")

	// ErrMalformedToken indicates that the credential is not a structurally valid token.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignatureOrExpired indicates a signature mismatch or an expired token.
	ErrInvalidSignatureOrExpired = errors.New("invalid or expired token")

	// ErrUnrepresentableTime indicates that the expiry cannot be encoded as epoch seconds.
	ErrUnrepresentableTime = errors.New("expiry time is not representable")
)

// ValidationError is returned by Verify. Kind is one of the sentinel errors
// above; Cause is the underlying library error, if any.
type ValidationError struct {
	Kind  error
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation error: %v: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("jwt validation error: %v", e.Kind)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the error kind or matches the cause.
func (e *ValidationError) Is(target error) bool {
	if errors.Is(e.Kind, target) {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

func newValidationError(kind, cause error) *ValidationError {
	return &ValidationError{Kind: kind, Cause: cause}
}
