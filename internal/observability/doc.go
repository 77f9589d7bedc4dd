// Package observability provides logging, metrics, and tracing
// functionality for the score gateway.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap. Output
// can go to stdout, stderr, or a size-rotated file:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "file",
//	    File:   observability.DefaultFileConfig(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// # Metrics
//
// Prometheus metrics for HTTP requests, throttling, authentication,
// secret rotation and lifecycle state, registered on a private registry:
//
//	metrics := observability.NewMetrics("scoregw")
//	handler := metrics.Handler()
//
// # Tracing
//
// OpenTelemetry tracing with OTLP gRPC export. When tracing is disabled
// the middleware still runs against the global no-op provider.
package observability
