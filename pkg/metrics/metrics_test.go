package metrics

import (
	"testing"
	"time"
)

func TestNewCollector(t *testing.T) {
	labels := Labels{"instance": "test"}
	c := NewCollector(labels)

	if c == nil {
		t.Fatal("expected non-nil collector")
	}

	snap := c.Snapshot()
	if snap.Labels["instance"] != "test" {
		t.Errorf("expected label instance=test, got %v", snap.Labels)
	}
}

func TestCollectorRequestMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RequestStarted()
	c.RequestStarted()
	snap := c.Snapshot()
	if snap.RequestsActive != 2 {
		t.Errorf("expected 2 active requests, got %d", snap.RequestsActive)
	}
	if snap.RequestsTotal != 2 {
		t.Errorf("expected 2 total requests, got %d", snap.RequestsTotal)
	}

	c.RequestEnded()
	snap = c.Snapshot()
	if snap.RequestsActive != 1 {
		t.Errorf("expected 1 active request, got %d", snap.RequestsActive)
	}
	if snap.RequestsTotal != 2 {
		t.Errorf("expected 2 total requests, got %d", snap.RequestsTotal)
	}

	c.RequestFailed()
	snap = c.Snapshot()
	if snap.RequestsFailed != 1 {
		t.Errorf("expected 1 failed request, got %d", snap.RequestsFailed)
	}
}

func TestCollectorMethodClassMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RecordPassThrough()
	c.RecordPassThrough()
	c.RecordConfidential()
	c.RecordRefused()

	snap := c.Snapshot()
	if snap.PassThroughRequests != 2 {
		t.Errorf("expected 2 pass-through requests, got %d", snap.PassThroughRequests)
	}
	if snap.ConfidentialRequests != 1 {
		t.Errorf("expected 1 confidential request, got %d", snap.ConfidentialRequests)
	}
	if snap.RefusedRequests != 1 {
		t.Errorf("expected 1 refused request, got %d", snap.RefusedRequests)
	}
}

func TestCollectorUpstreamMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RecordUpstreamCall()
	c.RecordUpstreamCall()
	c.RecordUpstreamTimeout()
	c.RecordUpstreamRateLimited()
	c.RecordUpstreamError()

	snap := c.Snapshot()
	if snap.UpstreamCalls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", snap.UpstreamCalls)
	}
	if snap.UpstreamTimeouts != 1 {
		t.Errorf("expected 1 upstream timeout, got %d", snap.UpstreamTimeouts)
	}
	if snap.UpstreamRateLimited != 1 {
		t.Errorf("expected 1 upstream rate-limited, got %d", snap.UpstreamRateLimited)
	}
	if snap.UpstreamErrors != 1 {
		t.Errorf("expected 1 upstream error, got %d", snap.UpstreamErrors)
	}
}

func TestCollectorErrorMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RecordEncryptError()
	c.RecordDecryptError()
	c.RecordParseError()

	snap := c.Snapshot()
	if snap.EncryptErrors != 1 {
		t.Errorf("expected 1 encrypt error, got %d", snap.EncryptErrors)
	}
	if snap.DecryptErrors != 1 {
		t.Errorf("expected 1 decrypt error, got %d", snap.DecryptErrors)
	}
	if snap.ParseErrors != 1 {
		t.Errorf("expected 1 parse error, got %d", snap.ParseErrors)
	}
}

func TestCollectorLatencyMetrics(t *testing.T) {
	c := NewCollector(nil)

	c.RecordRequestLatency(100 * time.Millisecond)
	c.RecordRequestLatency(200 * time.Millisecond)
	c.RecordEncryptLatency(10 * time.Microsecond)
	c.RecordDecryptLatency(15 * time.Microsecond)
	c.RecordUpstreamLatency(50 * time.Millisecond)

	snap := c.Snapshot()
	if snap.RequestLatency.Count != 2 {
		t.Errorf("expected 2 request latency observations, got %d", snap.RequestLatency.Count)
	}
	if snap.RequestLatency.Mean != 150 {
		t.Errorf("expected mean request latency 150ms, got %.2f", snap.RequestLatency.Mean)
	}
	if snap.EncryptLatency.Count != 1 {
		t.Errorf("expected 1 encrypt latency observation, got %d", snap.EncryptLatency.Count)
	}
	if snap.DecryptLatency.Count != 1 {
		t.Errorf("expected 1 decrypt latency observation, got %d", snap.DecryptLatency.Count)
	}
	if snap.UpstreamLatency.Count != 1 {
		t.Errorf("expected 1 upstream latency observation, got %d", snap.UpstreamLatency.Count)
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector(nil)

	c.RequestStarted()
	c.RecordUpstreamCall()
	c.RecordEncryptError()

	snap := c.Snapshot()
	if snap.RequestsActive != 1 || snap.UpstreamCalls != 1 {
		t.Fatal("metrics not recorded")
	}

	c.Reset()

	snap = c.Snapshot()
	if snap.RequestsActive != 0 {
		t.Errorf("expected 0 active requests after reset, got %d", snap.RequestsActive)
	}
	if snap.UpstreamCalls != 0 {
		t.Errorf("expected 0 upstream calls after reset, got %d", snap.UpstreamCalls)
	}
	if snap.EncryptErrors != 0 {
		t.Errorf("expected 0 encrypt errors after reset, got %d", snap.EncryptErrors)
	}
}

func TestCollectorUptime(t *testing.T) {
	c := NewCollector(nil)
	time.Sleep(10 * time.Millisecond)

	snap := c.Snapshot()
	if snap.Uptime < 10*time.Millisecond {
		t.Errorf("expected uptime >= 10ms, got %v", snap.Uptime)
	}
}

func TestGlobalCollector(t *testing.T) {
	g := Global()
	if g == nil {
		t.Fatal("expected non-nil global collector")
	}

	g2 := Global()
	if g != g2 {
		t.Error("expected same global collector instance")
	}

	custom := NewCollector(Labels{"custom": "true"})
	SetGlobal(custom)

	// SetGlobal replaces the collector that Global returns; this test only
	// verifies that the setter doesn't panic.
}

func TestCollectorConcurrency(t *testing.T) {
	c := NewCollector(nil)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				c.RequestStarted()
				c.RecordUpstreamCall()
				c.RecordRequestLatency(time.Duration(j) * time.Millisecond)
				c.RequestEnded()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	snap := c.Snapshot()
	if snap.RequestsTotal != 1000 {
		t.Errorf("expected 1000 total requests, got %d", snap.RequestsTotal)
	}
	if snap.RequestsActive != 0 {
		t.Errorf("expected 0 active requests, got %d", snap.RequestsActive)
	}
}
