package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports metrics in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given collector.
// The namespace is prepended to all metric names (e.g., "sapphire_relay").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	// --- Request Metrics ---
	e.writeHelp(w, "requests_active", "Number of requests currently being handled")
	e.writeType(w, "requests_active", "gauge")
	e.writeMetric(w, "requests_active", labels, float64(snap.RequestsActive))

	e.writeHelp(w, "requests_total", "Total number of requests handled")
	e.writeType(w, "requests_total", "counter")
	e.writeMetric(w, "requests_total", labels, float64(snap.RequestsTotal))

	e.writeHelp(w, "requests_failed_total", "Total number of requests that returned a JSON-RPC error")
	e.writeType(w, "requests_failed_total", "counter")
	e.writeMetric(w, "requests_failed_total", labels, float64(snap.RequestsFailed))

	// --- Method Class Metrics ---
	e.writeHelp(w, "pass_through_requests_total", "Total pass-through method requests")
	e.writeType(w, "pass_through_requests_total", "counter")
	e.writeMetric(w, "pass_through_requests_total", labels, float64(snap.PassThroughRequests))

	e.writeHelp(w, "confidential_requests_total", "Total confidential method requests")
	e.writeType(w, "confidential_requests_total", "counter")
	e.writeMetric(w, "confidential_requests_total", labels, float64(snap.ConfidentialRequests))

	e.writeHelp(w, "refused_requests_total", "Total requests refused for an unsupported method")
	e.writeType(w, "refused_requests_total", "counter")
	e.writeMetric(w, "refused_requests_total", labels, float64(snap.RefusedRequests))

	// --- Upstream Metrics ---
	e.writeHelp(w, "upstream_calls_total", "Total requests forwarded to the upstream gateway")
	e.writeType(w, "upstream_calls_total", "counter")
	e.writeMetric(w, "upstream_calls_total", labels, float64(snap.UpstreamCalls))

	e.writeHelp(w, "upstream_timeouts_total", "Total upstream calls that timed out")
	e.writeType(w, "upstream_timeouts_total", "counter")
	e.writeMetric(w, "upstream_timeouts_total", labels, float64(snap.UpstreamTimeouts))

	e.writeHelp(w, "upstream_rate_limited_total", "Total upstream calls rejected with a rate-limit status")
	e.writeType(w, "upstream_rate_limited_total", "counter")
	e.writeMetric(w, "upstream_rate_limited_total", labels, float64(snap.UpstreamRateLimited))

	e.writeHelp(w, "upstream_errors_total", "Total upstream calls that returned a non-2xx status")
	e.writeType(w, "upstream_errors_total", "counter")
	e.writeMetric(w, "upstream_errors_total", labels, float64(snap.UpstreamErrors))

	// --- Error Metrics ---
	e.writeHelp(w, "encrypt_errors_total", "Total encryption errors")
	e.writeType(w, "encrypt_errors_total", "counter")
	e.writeMetric(w, "encrypt_errors_total", labels, float64(snap.EncryptErrors))

	e.writeHelp(w, "decrypt_errors_total", "Total decryption errors")
	e.writeType(w, "decrypt_errors_total", "counter")
	e.writeMetric(w, "decrypt_errors_total", labels, float64(snap.DecryptErrors))

	e.writeHelp(w, "parse_errors_total", "Total JSON-RPC parse errors")
	e.writeType(w, "parse_errors_total", "counter")
	e.writeMetric(w, "parse_errors_total", labels, float64(snap.ParseErrors))

	// --- Uptime ---
	e.writeHelp(w, "uptime_seconds", "Time since the collector was created")
	e.writeType(w, "uptime_seconds", "gauge")
	e.writeMetric(w, "uptime_seconds", labels, snap.Uptime.Seconds())

	// --- Histograms ---
	e.writeHistogram(w, "request_duration_milliseconds", "End-to-end request handling duration in milliseconds", labels, snap.RequestLatency)
	e.writeHistogram(w, "encrypt_duration_microseconds", "Encryption duration in microseconds", labels, snap.EncryptLatency)
	e.writeHistogram(w, "decrypt_duration_microseconds", "Decryption duration in microseconds", labels, snap.DecryptLatency)
	e.writeHistogram(w, "upstream_duration_milliseconds", "Upstream POST round trip duration in milliseconds", labels, snap.UpstreamLatency)
}

// writeHelp writes a HELP line.
func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

// writeType writes a TYPE line.
func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

// writeMetric writes a single metric line.
func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

// writeHistogram writes a histogram in Prometheus format.
func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeHelp(w, name, help)
	e.writeType(w, name, "histogram")

	fullName := e.namespace + "_" + name

	// Write bucket counts
	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	// Write sum and count
	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

// formatLabels converts Labels to Prometheus label format.
func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	// Sort keys for consistent output
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		// Escape label values
		v := escapePromValue(labels[k])
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, v))
	}

	return strings.Join(parts, ",")
}

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// --- Convenience Functions ---

// ServePrometheus starts an HTTP server serving Prometheus metrics.
// This is a convenience function for simple use cases.
func ServePrometheus(addr string, c *Collector, namespace string) error {
	exp := NewPrometheusExporter(c, namespace)
	http.Handle("/metrics", exp.Handler())
	return http.ListenAndServe(addr, nil)
}
