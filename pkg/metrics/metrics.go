// Package metrics provides observability primitives for the encrypting proxy.
//
// The package includes:
//   - A Collector of atomic counters and latency Histograms
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
//   - Health check functionality
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from the request handler and upstream
// transport.
type Collector struct {
	// Request metrics
	requestsActive atomic.Uint64
	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64

	// Method-class metrics
	passThroughRequests atomic.Uint64
	confidentialRequests atomic.Uint64
	refusedRequests      atomic.Uint64

	// Upstream metrics
	upstreamCalls     atomic.Uint64
	upstreamTimeouts  atomic.Uint64
	upstreamRateLimited atomic.Uint64
	upstreamErrors    atomic.Uint64

	// Error metrics
	encryptErrors atomic.Uint64
	decryptErrors atomic.Uint64
	parseErrors   atomic.Uint64

	// Performance histograms
	requestLatency  *Histogram
	encryptLatency  *Histogram
	decryptLatency  *Histogram
	upstreamLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		requestLatency:  NewHistogram(RequestLatencyBuckets),
		encryptLatency:  NewHistogram(LatencyBuckets),
		decryptLatency:  NewHistogram(LatencyBuckets),
		upstreamLatency: NewHistogram(RequestLatencyBuckets),
		createdAt:       time.Now(),
		labels:          labels,
	}
}

// Default bucket configurations for histograms.
var (
	// RequestLatencyBuckets for end-to-end request handling (milliseconds).
	RequestLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	// LatencyBuckets for encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Request Metrics ---

// RequestStarted increments active and total request counters.
func (c *Collector) RequestStarted() {
	c.requestsActive.Add(1)
	c.requestsTotal.Add(1)
}

// RequestEnded decrements the active request counter.
func (c *Collector) RequestEnded() {
	for {
		current := c.requestsActive.Load()
		if current == 0 {
			return
		}
		if c.requestsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// RequestFailed records a failed request.
func (c *Collector) RequestFailed() {
	c.requestsFailed.Add(1)
}

// RecordRequestLatency records the total time spent handling a request.
func (c *Collector) RecordRequestLatency(d time.Duration) {
	c.requestLatency.Observe(float64(d.Milliseconds()))
}

// --- Method Class Metrics ---

// RecordPassThrough increments the pass-through method counter.
func (c *Collector) RecordPassThrough() {
	c.passThroughRequests.Add(1)
}

// RecordConfidential increments the confidential-method counter.
func (c *Collector) RecordConfidential() {
	c.confidentialRequests.Add(1)
}

// RecordRefused increments the refused-method counter.
func (c *Collector) RecordRefused() {
	c.refusedRequests.Add(1)
}

// --- Upstream Metrics ---

// RecordUpstreamCall increments the upstream call counter.
func (c *Collector) RecordUpstreamCall() {
	c.upstreamCalls.Add(1)
}

// RecordUpstreamTimeout increments the upstream timeout counter.
func (c *Collector) RecordUpstreamTimeout() {
	c.upstreamTimeouts.Add(1)
}

// RecordUpstreamRateLimited increments the upstream rate-limit counter.
func (c *Collector) RecordUpstreamRateLimited() {
	c.upstreamRateLimited.Add(1)
}

// RecordUpstreamError increments the upstream error counter.
func (c *Collector) RecordUpstreamError() {
	c.upstreamErrors.Add(1)
}

// RecordUpstreamLatency records an upstream POST round trip duration.
func (c *Collector) RecordUpstreamLatency(d time.Duration) {
	c.upstreamLatency.Observe(float64(d.Milliseconds()))
}

// --- Error Metrics ---

// RecordEncryptError increments the encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments the decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordParseError increments the JSON-RPC parse error counter.
func (c *Collector) RecordParseError() {
	c.parseErrors.Add(1)
}

// --- Performance Metrics ---

// RecordEncryptLatency records encryption operation latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecryptLatency records decryption operation latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Request metrics
	RequestsActive uint64
	RequestsTotal  uint64
	RequestsFailed uint64

	// Method-class metrics
	PassThroughRequests  uint64
	ConfidentialRequests uint64
	RefusedRequests      uint64

	// Upstream metrics
	UpstreamCalls       uint64
	UpstreamTimeouts    uint64
	UpstreamRateLimited uint64
	UpstreamErrors      uint64

	// Error metrics
	EncryptErrors uint64
	DecryptErrors uint64
	ParseErrors   uint64

	// Histogram summaries
	RequestLatency  HistogramSummary
	EncryptLatency  HistogramSummary
	DecryptLatency  HistogramSummary
	UpstreamLatency HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:            time.Now(),
		Uptime:               time.Since(c.createdAt),
		RequestsActive:       c.requestsActive.Load(),
		RequestsTotal:        c.requestsTotal.Load(),
		RequestsFailed:       c.requestsFailed.Load(),
		PassThroughRequests:  c.passThroughRequests.Load(),
		ConfidentialRequests: c.confidentialRequests.Load(),
		RefusedRequests:      c.refusedRequests.Load(),
		UpstreamCalls:        c.upstreamCalls.Load(),
		UpstreamTimeouts:     c.upstreamTimeouts.Load(),
		UpstreamRateLimited:  c.upstreamRateLimited.Load(),
		UpstreamErrors:       c.upstreamErrors.Load(),
		EncryptErrors:        c.encryptErrors.Load(),
		DecryptErrors:        c.decryptErrors.Load(),
		ParseErrors:          c.parseErrors.Load(),
		RequestLatency:       c.requestLatency.Summary(),
		EncryptLatency:       c.encryptLatency.Summary(),
		DecryptLatency:       c.decryptLatency.Summary(),
		UpstreamLatency:      c.upstreamLatency.Summary(),
		Labels:               c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.requestsActive.Store(0)
	c.requestsTotal.Store(0)
	c.requestsFailed.Store(0)
	c.passThroughRequests.Store(0)
	c.confidentialRequests.Store(0)
	c.refusedRequests.Store(0)
	c.upstreamCalls.Store(0)
	c.upstreamTimeouts.Store(0)
	c.upstreamRateLimited.Store(0)
	c.upstreamErrors.Store(0)
	c.encryptErrors.Store(0)
	c.decryptErrors.Store(0)
	c.parseErrors.Store(0)
	c.requestLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.upstreamLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		globalCollector = NewCollector(Labels{"instance": "default"})
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollectorOnce.Do(func() {})
	globalCollector = c
}
