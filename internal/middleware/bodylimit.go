package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// DefaultMaxBodyBytes is the default request body cap.
const DefaultMaxBodyBytes int64 = 1024

// BodyLimitOption is a functional option for BodyLimit.
type BodyLimitOption func(*bodyLimitOptions)

type bodyLimitOptions struct {
	readTimeout time.Duration
}

// WithBodyReadTimeout bounds the time spent receiving the body. The bound
// is applied as a connection read deadline and as the request context
// deadline, so it also caps the work done downstream. A client that stalls
// mid-body is answered with 504.
func WithBodyReadTimeout(d time.Duration) BodyLimitOption {
	return func(o *bodyLimitOptions) {
		o.readTimeout = d
	}
}

// BodyLimit returns a middleware that rejects request bodies larger than
// maxSize with 413. The body is read up front, so downstream interceptors
// never see an oversized payload and never do work on one.
func BodyLimit(maxSize int64, logger observability.Logger, opts ...BodyLimitOption) func(http.Handler) http.Handler {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	var o bodyLimitOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check Content-Length header first for early rejection
			if r.ContentLength > maxSize {
				rejectBody(w, r, r.ContentLength, maxSize, logger)
				return
			}

			var deadline time.Time
			if o.readTimeout > 0 {
				deadline = time.Now().Add(o.readTimeout)
				ctx, cancel := context.WithDeadline(r.Context(), deadline)
				defer cancel()
				r = r.WithContext(ctx)
			}

			if r.Body != nil && r.Body != http.NoBody {
				buf, err := readBody(w, r.Body, maxSize, deadline)
				if err != nil {
					var maxErr *http.MaxBytesError
					if errors.As(err, &maxErr) {
						rejectBody(w, r, maxErr.Limit, maxSize, logger)
						return
					}
					if isReadTimeout(err) {
						logger.WithContext(r.Context()).Warn("request body read timed out",
							observability.String("path", r.URL.Path),
							observability.Duration("timeout", o.readTimeout),
						)
						util.WriteError(w, util.KindTimeout, msgGatewayTimeout)
						return
					}
					logger.WithContext(r.Context()).Debug("failed to read request body",
						observability.String("path", r.URL.Path),
						observability.Error(err),
					)
					util.WriteError(w, util.KindValidation, "unable to read request body")
					return
				}
				if int64(len(buf)) > maxSize {
					rejectBody(w, r, int64(len(buf)), maxSize, logger)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(buf))
				r.ContentLength = int64(len(buf))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// readBody reads at most maxSize+1 bytes. A non-zero deadline is set on the
// connection for the duration of the read.
func readBody(w http.ResponseWriter, body io.ReadCloser, maxSize int64, deadline time.Time) ([]byte, error) {
	if !deadline.IsZero() {
		rc := http.NewResponseController(w)
		if err := rc.SetReadDeadline(deadline); err == nil {
			defer func() { _ = rc.SetReadDeadline(time.Time{}) }()
		}
	}
	defer func() { _ = body.Close() }()
	return io.ReadAll(io.LimitReader(body, maxSize+1))
}

func isReadTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func rejectBody(w http.ResponseWriter, r *http.Request, size, maxSize int64, logger observability.Logger) {
	logger.WithContext(r.Context()).Warn("request body too large",
		observability.Int64("size", size),
		observability.Int64("max_size", maxSize),
		observability.String("path", r.URL.Path),
	)
	util.WriteError(w, util.KindPayloadTooLarge, msgPayloadTooLarge)
}
