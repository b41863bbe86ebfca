// Package metrics provides observability primitives for the encrypting
// proxy.
//
// # Overview
//
// The metrics package offers a complete observability solution including:
//   - Metrics collection (counters, histograms)
//   - Prometheus-compatible metrics export
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//   - Health check endpoints
//
// # Quick Start
//
// Basic usage with global collector:
//
//	import "github.com/sapphire-relay/encrypting-proxy/pkg/metrics"
//
//	// Record metrics
//	metrics.Global().RequestStarted()
//	metrics.Global().RecordRequestLatency(15 * time.Millisecond)
//	metrics.Global().RequestEnded()
//
//	// Start Prometheus server
//	go metrics.NewServer(metrics.ServerConfig{EnablePrometheus: true}).ListenAndServe(":9090")
//
// # Metrics Collection
//
// The Collector type aggregates metrics from proxied requests:
//
//	collector := metrics.NewCollector(metrics.Labels{
//		"instance": "node-1",
//		"region":   "us-west-2",
//	})
//
//	// Request lifecycle
//	collector.RequestStarted()
//	collector.RequestEnded()
//	collector.RecordRequestLatency(d)
//
//	// Method-class breakdown
//	collector.RecordPassThrough()
//	collector.RecordConfidential()
//	collector.RecordRefused()
//
//	// Upstream and cryptographic errors
//	collector.RecordUpstreamCall()
//	collector.RecordEncryptError()
//	collector.RecordDecryptError()
//
//	// Get snapshot
//	snap := collector.Snapshot()
//
// # Prometheus Export
//
// Export metrics in Prometheus format:
//
//	exporter := metrics.NewPrometheusExporter(collector, "sapphire_relay")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := metrics.NewSimpleTracer()
//	metrics.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := metrics.NewOTelTracer("sapphire-relay")
//	metrics.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := metrics.StartSpan(ctx, metrics.SpanHandleRequest)
//	defer end(nil) // or end(err) on error
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := metrics.NewLogger(
//		metrics.WithLevel(metrics.LevelInfo),
//		metrics.WithFormat(metrics.FormatJSON),
//		metrics.WithFields(metrics.Fields{"service": "sapphire-relay"}),
//	)
//
//	logger.Info("request handled", metrics.Fields{
//		"method": "eth_call",
//		"class":  "confidential-encrypted-response",
//	})
//
//	// Child loggers
//	reqLog := logger.Named("request").With(metrics.Fields{"method": method})
//	reqLog.Debug("encrypting params")
//
// # Health Checks
//
// Provide health check endpoints for Kubernetes and load balancers:
//
//	health := metrics.NewHealthCheck(collector, "1.0.0")
//	health.AddCheck("upstream", func() error {
//		// Verify upstream connectivity
//		return nil
//	})
//
//	http.Handle("/health", health.Handler())
//	http.Handle("/healthz", health.LivenessHandler())
//	http.Handle("/readyz", health.ReadinessHandler())
//
// # Observability Server
//
// Start a complete observability server:
//
//	server := metrics.NewServer(metrics.ServerConfig{
//		Collector:        collector,
//		Version:          "1.0.0",
//		Namespace:        "sapphire_relay",
//		EnablePrometheus: true,
//		EnableHealth:     true,
//	})
//
//	go server.ListenAndServe(":9090")
//
// This provides:
//   - /metrics - Prometheus metrics
//   - /health  - Detailed health status
//   - /healthz - Kubernetes liveness probe
//   - /readyz  - Kubernetes readiness probe
package metrics
