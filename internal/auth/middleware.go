package auth

import (
	"net/http"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/auth/jwt"
	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/secrets"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// SecretSource provides a consistent view of the signing secret.
type SecretSource interface {
	Snapshot() secrets.Snapshot
}

// FailureRecorder receives the kind of every rejected credential.
type FailureRecorder interface {
	RecordAuthFailure(kind util.Kind)
}

type authenticator struct {
	source   SecretSource
	now      func() time.Time
	logger   observability.Logger
	recorder FailureRecorder
}

// Option configures the Authenticate middleware.
type Option func(*authenticator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *authenticator) {
		a.logger = logger
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(a *authenticator) {
		a.now = now
	}
}

// WithFailureRecorder sets the recorder for rejected credentials.
func WithFailureRecorder(rec FailureRecorder) Option {
	return func(a *authenticator) {
		a.recorder = rec
	}
}

// Authenticate returns a middleware that rejects requests without a valid
// bearer credential: 401 when it is missing, 400 when the header is
// malformed and 401 when the signature or expiry check fails.
func Authenticate(source SecretSource, opts ...Option) func(http.Handler) http.Handler {
	a := &authenticator{
		source: source,
		now:    time.Now,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.verify(r)
			if err != nil {
				kind := KindOf(err)
				if a.recorder != nil {
					a.recorder.RecordAuthFailure(kind)
				}
				a.logger.WithContext(r.Context()).Debug("authentication failed",
					observability.String("kind", string(kind)),
					observability.String("path", r.URL.Path),
					observability.Error(err),
				)
				if kind != util.KindMalformedToken {
					w.Header().Set(HeaderWWWAuthenticate, `Bearer realm="scoregw"`)
				}
				util.WriteError(w, kind, MessageOf(kind))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func (a *authenticator) verify(r *http.Request) (*jwt.Claims, error) {
	token, err := BearerToken(r)
	if err != nil {
		return nil, err
	}

	snap := a.source.Snapshot()
	return jwt.Verify(token, snap.Secret, snap.Policy.Leeway, a.now())
}
