package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable class of a request failure.
type Kind string

// Request failure kinds.
const (
	KindMissingHeader             Kind = "MissingHeader"
	KindMalformedToken            Kind = "MalformedToken"
	KindInvalidSignatureOrExpired Kind = "InvalidSignatureOrExpired"
	KindUnauthorized              Kind = "Unauthorized"
	KindForbidden                 Kind = "Forbidden"
	KindRateLimitExceeded         Kind = "RateLimitExceeded"
	KindPayloadTooLarge           Kind = "PayloadTooLarge"
	KindTimeout                   Kind = "Timeout"
	KindValidation                Kind = "Validation"
	KindNotFound                  Kind = "NotFound"
	KindDatabase                  Kind = "Database"
	KindUnavailable               Kind = "Unavailable"
	KindInternal                  Kind = "Internal"
)

// Status returns the HTTP status code associated with the kind.
func (k Kind) Status() int {
	switch k {
	case KindMissingHeader, KindInvalidSignatureOrExpired, KindUnauthorized:
		return http.StatusUnauthorized
	case KindMalformedToken, KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Startup failures. Both are fatal: the process must not serve without them.
var (
	ErrSecretUnavailable    = errors.New("signing secret unavailable")
	ErrConfigurationFailure = errors.New("configuration failure")
)

// RequestError is a failure that is reported to the client.
type RequestError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code for the error.
func (e *RequestError) Status() int {
	return e.Kind.Status()
}

// NewRequestError creates a new RequestError.
func NewRequestError(kind Kind, message string, cause error) *RequestError {
	return &RequestError{Kind: kind, Message: message, Cause: cause}
}

// ErrorBody is the JSON body written for every request failure.
type ErrorBody struct {
	Status  int    `json:"status"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// WriteError writes a structured JSON error response.
func WriteError(w http.ResponseWriter, kind Kind, message string) {
	status := kind.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Status: status, Kind: kind, Message: message})
}

// WriteRequestError writes err as a structured response. Errors that are not
// a RequestError are reported as internal errors without leaking their text.
func WriteRequestError(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		WriteError(w, reqErr.Kind, reqErr.Message)
		return
	}
	WriteError(w, KindInternal, "internal server error")
}
