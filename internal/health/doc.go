// Package health provides health check and readiness probe endpoints.
//
// The Checker aggregates named dependency checks. Readiness reports
// unhealthy while any check fails or while the process is draining; the
// public service report maps each check to "OK" or "DOWN".
package health
