package ratelimit

import (
	"errors"
	"net/http"

	"github.com/vyrodovalexey/scoregw/internal/auth"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// ErrNoKey is returned when a request carries no usable rate limit key.
// Such requests are rejected; they never share a default bucket.
var ErrNoKey = errors.New("rate limit key unavailable")

// KeyFunc extracts the rate limit key from a request. A non-nil error is a
// *util.RequestError wrapping ErrNoKey.
type KeyFunc func(r *http.Request) (string, error)

// IPKey keys requests by client address.
func IPKey(extractor *ClientIPExtractor) KeyFunc {
	if extractor == nil {
		extractor = NewClientIPExtractor(nil)
	}
	return func(r *http.Request) (string, error) {
		ip := extractor.Extract(r)
		if ip == "" {
			return "", util.NewRequestError(util.KindInternal, "unable to determine client address", ErrNoKey)
		}
		return ip, nil
	}
}

// BearerKey keys requests by the raw bearer credential. The credential is
// not verified, so a forged but well-formed token still spends the budget
// of the identity it names. A missing or malformed header is rejected with
// the same kind authentication would report.
func BearerKey(r *http.Request) (string, error) {
	token, err := auth.BearerToken(r)
	if err != nil {
		kind := auth.KindOf(err)
		return "", util.NewRequestError(kind, auth.MessageOf(kind), errors.Join(ErrNoKey, err))
	}
	return token, nil
}
