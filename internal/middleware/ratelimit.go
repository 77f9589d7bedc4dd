package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/ratelimit"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// Rejection reasons reported to the RejectionRecorder.
const (
	ReasonExhausted = "exhausted"
	ReasonNoKey     = "no_key"
)

// RejectionRecorder receives every rate limit rejection.
type RejectionRecorder interface {
	RecordRateLimitRejection(limiter, reason string)
}

type rateLimitOptions struct {
	logger   observability.Logger
	recorder RejectionRecorder
}

// RateLimitOption configures the RateLimit middleware.
type RateLimitOption func(*rateLimitOptions)

// WithRateLimitLogger sets the logger.
func WithRateLimitLogger(logger observability.Logger) RateLimitOption {
	return func(o *rateLimitOptions) {
		o.logger = logger
	}
}

// WithRejectionRecorder sets the recorder for rejections.
func WithRejectionRecorder(rec RejectionRecorder) RateLimitOption {
	return func(o *rateLimitOptions) {
		o.recorder = rec
	}
}

// RateLimit returns a middleware that charges one token from the bucket
// selected by key. Requests without a usable key are rejected with the
// error the key function reports; requests over budget get 429 and never
// reach downstream interceptors.
func RateLimit(registry *ratelimit.Registry, key ratelimit.KeyFunc, opts ...RateLimitOption) func(http.Handler) http.Handler {
	o := &rateLimitOptions{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := key(r)
			if err != nil {
				o.reject(r, registry.Name(), ReasonNoKey, err)
				var reqErr *util.RequestError
				if !errors.As(err, &reqErr) {
					err = util.NewRequestError(util.KindInternal, msgInternal, err)
				}
				util.WriteRequestError(w, err)
				return
			}

			d := registry.Check(k)
			w.Header().Set(HeaderXRateLimitLimit, strconv.Itoa(d.Limit))
			w.Header().Set(HeaderXRateLimitRemaining, strconv.Itoa(d.Remaining))

			if !d.Allowed {
				o.reject(r, registry.Name(), ReasonExhausted, nil)
				w.Header().Set(HeaderRetryAfter, retryAfterSeconds(d))
				util.WriteError(w, util.KindRateLimitExceeded, msgRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (o *rateLimitOptions) reject(r *http.Request, limiter, reason string, err error) {
	if o.recorder != nil {
		o.recorder.RecordRateLimitRejection(limiter, reason)
	}
	fields := []observability.Field{
		observability.String("limiter", limiter),
		observability.String("reason", reason),
		observability.String("path", r.URL.Path),
	}
	if err != nil {
		fields = append(fields, observability.Error(err))
	}
	o.logger.WithContext(r.Context()).Debug("rate limit rejected request", fields...)
}

// retryAfterSeconds rounds up to whole seconds, with a floor of one.
func retryAfterSeconds(d ratelimit.Decision) string {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
