package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/scoregw/internal/util"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	activeRequests      prometheus.Gauge
	rateLimitRejections *prometheus.CounterVec
	rateLimitKeys       *prometheus.GaugeVec
	authFailures        *prometheus.CounterVec
	secretRotations     *prometheus.CounterVec
	lifecycleState      prometheus.Gauge
	circuitBreaker      *prometheus.GaugeVec
	healthCheck         *prometheus.GaugeVec
	buildInfo           *prometheus.GaugeVec
	registry            *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "scoregw"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route_class", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route_class"},
	)

	m.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		},
	)

	m.rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by a rate limiter",
		},
		[]string{"limiter", "reason"},
	)

	m.rateLimitKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limit_keys",
			Help:      "Number of live token buckets after the last sweep",
		},
		[]string{"limiter"},
	)

	m.authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected credentials by kind",
		},
		[]string{"kind"},
	)

	m.secretRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secret_rotations_total",
			Help:      "Total number of signing secret rotation attempts",
		},
		[]string{"result"},
	)

	m.lifecycleState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "Lifecycle state (0=running, 1=draining, 2=stopped)",
		},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.healthCheck = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_check_status",
			Help:      "Last health check result (1=healthy, 0=unhealthy)",
		},
		[]string{"check"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the gateway",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.rateLimitRejections,
		m.rateLimitKeys,
		m.authFailures,
		m.secretRotations,
		m.lifecycleState,
		m.circuitBreaker,
		m.healthCheck,
		m.buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, routeClass string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, routeClass, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, routeClass).Observe(duration.Seconds())
}

// RecordRateLimitRejection records a request rejected by the named limiter.
// reason is either "exhausted" or "no_key".
func (m *Metrics) RecordRateLimitRejection(limiter, reason string) {
	m.rateLimitRejections.WithLabelValues(limiter, reason).Inc()
}

// SetRateLimitKeys sets the number of live buckets for the named limiter.
func (m *Metrics) SetRateLimitKeys(limiter string, n int) {
	m.rateLimitKeys.WithLabelValues(limiter).Set(float64(n))
}

// RecordAuthFailure records a rejected credential.
func (m *Metrics) RecordAuthFailure(kind util.Kind) {
	m.authFailures.WithLabelValues(string(kind)).Inc()
}

// RecordSecretRotation records a rotation attempt.
func (m *Metrics) RecordSecretRotation(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.secretRotations.WithLabelValues(result).Inc()
}

// SetLifecycleState records the lifecycle state ordinal.
func (m *Metrics) SetLifecycleState(state int) {
	m.lifecycleState.Set(float64(state))
}

// SetCircuitBreakerState sets the circuit breaker state.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreaker.WithLabelValues(name).Set(float64(state))
}

// SetHealthCheckStatus records the last result of the named check.
func (m *Metrics) SetHealthCheckStatus(name string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.healthCheck.WithLabelValues(name).Set(v)
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware returns a middleware that records request metrics.
// classify maps a request to a bounded label (for example "public" or
// "protected") so raw paths never become label values.
func MetricsMiddleware(metrics *Metrics, classify func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := util.NewStatusCapturingResponseWriter(w)

			metrics.activeRequests.Inc()
			defer metrics.activeRequests.Dec()

			next.ServeHTTP(rw, r)

			metrics.RecordRequest(r.Method, classify(r), rw.StatusCode, time.Since(start))
		})
	}
}
