package metrics

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHistogramInfBucketCountsEverything(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("test_latency_seconds", "test", []float64{0.1, 1, math.Inf(1)})

	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(30) // above every finite bucket

	rr := httptest.NewRecorder()
	c.Handler()(rr, httptest.NewRequest("GET", "/metrics", nil))
	body := rr.Body.String()

	if !strings.Contains(body, `test_latency_seconds_bucket{le="+Inf"} 3`) {
		t.Errorf("expected +Inf bucket to count all observations, got:\n%s", body)
	}
	if !strings.Contains(body, "test_latency_seconds_count 3") {
		t.Errorf("expected count 3, got:\n%s", body)
	}
}

func TestSyncLatencyHasInfBucket(t *testing.T) {
	last := SyncLatency.buckets[len(SyncLatency.buckets)-1]
	if !math.IsInf(last.le, 1) {
		t.Errorf("expected largest bucket to be +Inf, got %g", last.le)
	}
}
