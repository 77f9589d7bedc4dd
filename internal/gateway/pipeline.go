package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/auth"
	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/middleware"
	"github.com/vyrodovalexey/scoregw/internal/observability"
	"github.com/vyrodovalexey/scoregw/internal/ratelimit"
)

// RouteClass selects the inner interceptors applied to a request.
type RouteClass string

// Route classes.
const (
	ClassPublic    RouteClass = "public"
	ClassProtected RouteClass = "protected"
)

// DefaultProtectedPrefix is the path prefix of authenticated routes.
const DefaultProtectedPrefix = "/api/"

// ErrMissingDependency is returned by NewPipeline for an incomplete config.
var ErrMissingDependency = errors.New("pipeline dependency missing")

// Classifier maps requests to route classes by path prefix.
type Classifier struct {
	prefix string
}

// NewClassifier creates a classifier. An empty prefix uses the default.
func NewClassifier(protectedPrefix string) Classifier {
	if protectedPrefix == "" {
		protectedPrefix = DefaultProtectedPrefix
	}
	return Classifier{prefix: protectedPrefix}
}

// Classify returns the route class of r.
func (c Classifier) Classify(r *http.Request) RouteClass {
	if strings.HasPrefix(r.URL.Path, c.prefix) {
		return ClassProtected
	}
	return ClassPublic
}

// Label returns the route class as a bounded metric and span label.
func (c Classifier) Label(r *http.Request) string {
	return string(c.Classify(r))
}

// PipelineConfig holds the dependencies of the pipeline. Secrets, Public
// and Authenticated are required; everything else has a default.
type PipelineConfig struct {
	Secrets       auth.SecretSource
	Public        *ratelimit.Registry
	Authenticated *ratelimit.Registry

	// PublicKey keys the public limiter. Defaults to the client address.
	PublicKey ratelimit.KeyFunc
	// AuthenticatedKey keys the authenticated limiter. Defaults to the raw
	// bearer credential.
	AuthenticatedKey ratelimit.KeyFunc

	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	CORS            *config.CORSConfig
	ProtectedPrefix string

	Logger  observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Clock   func() time.Time
}

// Pipeline is the composed gateway handler.
type Pipeline struct {
	classifier Classifier
	public     http.Handler
	protected  http.Handler
	handler    http.Handler
}

// NewPipeline wraps handler in the interceptor chain. Outermost first:
//
//	Recovery, RequestID, Logging, Metrics, SecurityHeaders, BodyLimit,
//	Timeout, CORS, Tracing, then per class:
//	public:    RateLimit(client address)
//	protected: RateLimit(bearer credential), Authenticate
//
// Rate limiting runs before authentication so invalid credentials are
// throttled before any verification work is done.
func NewPipeline(cfg PipelineConfig, handler http.Handler) (*Pipeline, error) {
	if cfg.Secrets == nil || cfg.Public == nil || cfg.Authenticated == nil || handler == nil {
		return nil, ErrMissingDependency
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.PublicKey == nil {
		cfg.PublicKey = ratelimit.IPKey(nil)
	}
	if cfg.AuthenticatedKey == nil {
		cfg.AuthenticatedKey = ratelimit.BearerKey
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = middleware.DefaultRequestTimeout
	}

	p := &Pipeline{classifier: NewClassifier(cfg.ProtectedPrefix)}

	rlOpts := []middleware.RateLimitOption{middleware.WithRateLimitLogger(cfg.Logger)}
	authOpts := []auth.Option{auth.WithLogger(cfg.Logger), auth.WithClock(cfg.Clock)}
	if cfg.Metrics != nil {
		rlOpts = append(rlOpts, middleware.WithRejectionRecorder(cfg.Metrics))
		authOpts = append(authOpts, auth.WithFailureRecorder(cfg.Metrics))
	}

	p.public = middleware.RateLimit(cfg.Public, cfg.PublicKey, rlOpts...)(handler)
	p.protected = middleware.Chain(
		middleware.RateLimit(cfg.Authenticated, cfg.AuthenticatedKey, rlOpts...),
		auth.Authenticate(cfg.Secrets, authOpts...),
	)(handler)

	var metricsMW, tracingMW func(http.Handler) http.Handler
	if cfg.Metrics != nil {
		metricsMW = observability.MetricsMiddleware(cfg.Metrics, p.classifier.Label)
	}
	if cfg.Tracer != nil {
		tracingMW = observability.TracingMiddleware(cfg.Tracer, p.classifier.Label)
	}

	p.handler = middleware.Chain(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.Logging(cfg.Logger),
		metricsMW,
		middleware.SecurityHeaders(),
		middleware.BodyLimit(cfg.MaxBodyBytes, cfg.Logger, middleware.WithBodyReadTimeout(requestTimeout)),
		middleware.Timeout(requestTimeout, cfg.Logger),
		middleware.CORSFromConfig(cfg.CORS),
		tracingMW,
	)(http.HandlerFunc(p.dispatch))

	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Classifier returns the route classifier.
func (p *Pipeline) Classifier() Classifier {
	return p.classifier
}

func (p *Pipeline) dispatch(w http.ResponseWriter, r *http.Request) {
	if p.classifier.Classify(r) == ClassProtected {
		p.protected.ServeHTTP(w, r)
		return
	}
	p.public.ServeHTTP(w, r)
}
