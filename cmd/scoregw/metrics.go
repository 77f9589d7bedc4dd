package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/vyrodovalexey/scoregw/internal/config"
	"github.com/vyrodovalexey/scoregw/internal/health"
	"github.com/vyrodovalexey/scoregw/internal/observability"
)

// createMetricsServer creates the operational HTTP server: Prometheus
// metrics plus readiness and liveness probes.
func createMetricsServer(
	cfg config.MetricsConfig,
	metrics *observability.Metrics,
	healthChecker *health.Checker,
	logger observability.Logger,
) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	addr := cfg.Address
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/ready", healthChecker.ReadinessHandler())
	mux.HandleFunc("/live", healthChecker.LivenessHandler())

	logger.Info("metrics server configured",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runMetricsServer runs the metrics HTTP server until it is shut down.
func runMetricsServer(server *http.Server, logger observability.Logger) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", observability.Error(err))
	}
}
