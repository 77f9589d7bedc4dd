package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
)

// Service status values used in the public service report.
const (
	ServiceOK   = "OK"
	ServiceDown = "DOWN"
)

// ServerService is the name of the always-present server entry.
const ServerService = "server"

// DefaultCheckTimeout bounds a single check.
const DefaultCheckTimeout = 2 * time.Second

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// ServicesResponse is the public health body.
type ServicesResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// CheckFunc performs a health check.
type CheckFunc func(ctx context.Context) Check

// StatusRecorder receives every check result.
type StatusRecorder interface {
	SetHealthCheckStatus(name string, healthy bool)
}

// Checker provides health and readiness checking functionality.
type Checker struct {
	checks   map[string]CheckFunc
	mu       sync.RWMutex
	timeout  time.Duration
	recorder StatusRecorder
	draining atomic.Bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithCheckTimeout sets the per-check timeout.
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithStatusRecorder sets the recorder for check results.
func WithStatusRecorder(rec StatusRecorder) Option {
	return func(c *Checker) {
		c.recorder = rec
	}
}

// NewChecker creates a new health checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterCheck registers a health check function.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetDraining marks the process as draining; readiness then fails.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// run executes every check with the per-check timeout.
func (c *Checker) run(ctx context.Context) map[string]Check {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	fns := make([]CheckFunc, len(names))
	for i, name := range names {
		fns[i] = c.checks[name]
	}
	c.mu.RUnlock()

	results := make(map[string]Check, len(names))
	for i, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		check := fns[i](checkCtx)
		cancel()

		results[name] = check
		if c.recorder != nil {
			c.recorder.SetHealthCheckStatus(name, check.Status == StatusHealthy)
		}
	}
	return results
}

// Readiness returns the readiness status.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    c.run(ctx),
		Timestamp: time.Now(),
	}

	for _, check := range response.Checks {
		if check.Status != StatusHealthy {
			response.Status = StatusUnhealthy
		}
	}
	if c.draining.Load() {
		response.Status = StatusUnhealthy
		response.Checks["lifecycle"] = Check{Status: StatusUnhealthy, Message: "draining"}
	}

	return response
}

// Services returns the public service report. The server entry is always
// OK: if this code runs, the server is serving. The overall status stays OK
// even when a dependency is down.
func (c *Checker) Services(ctx context.Context) ServicesResponse {
	resp := ServicesResponse{
		Status:   ServiceOK,
		Services: map[string]string{ServerService: ServiceOK},
	}
	for name, check := range c.run(ctx) {
		if check.Status == StatusHealthy {
			resp.Services[name] = ServiceOK
		} else {
			resp.Services[name] = ServiceDown
		}
	}
	return resp
}

// ReadinessHandler returns an HTTP handler for the readiness endpoint.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Readiness(r.Context())

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns an HTTP handler for the liveness endpoint (simple ping).
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
