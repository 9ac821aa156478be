// Package observability provides logging, metrics, tracing and health
// checking for the server.
//
// # Overview
//
// The package wraps a logrus structured logger, a prometheus registry
// with the application's counters and HTTP histograms, optional
// OpenTelemetry trace export, and the liveness/readiness checker served
// on the health port. HTTP middleware (request ID, logging, recovery,
// metrics) lives here too so the chain in pkg/api stays declarative.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("estate_id", id).Info("estate created")
//	logger.WithError(err).Error("failed to open store")
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// Counters cover access resolutions, audit events, invoice recomputes
// and readiness plan cache hits/misses alongside the HTTP histograms.
//
// # Health
//
// Liveness always succeeds while the process is up; readiness pings
// postgres and, when configured, redis.
//
// # Related Packages
//
//   - pkg/api: assembles the middleware chain and the health listener
package observability
