package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter_IncAndAdd(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.Counter("test_total", "test counter")
	ctr.Inc()
	ctr.Add(4)
	if ctr.Value() != 5 {
		t.Errorf("value: %d", ctr.Value())
	}

	// Same name returns the same counter.
	if c.Counter("test_total", "test counter") != ctr {
		t.Error("counter not deduplicated by name")
	}
}

func TestGauge_SetIncDec(t *testing.T) {
	c := NewMetricsCollector()
	g := c.Gauge("test_in_flight", "test gauge")
	g.Set(3)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 2 {
		t.Errorf("value: %d", g.Value())
	}
}

func TestHistogram_BucketCounts(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("test_latency_seconds", "test histogram", []float64{1, 5, 10})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(7)
	h.Observe(100)

	if h.count != 4 {
		t.Errorf("count: %d", h.count)
	}
	if h.buckets[0].count != 1 || h.buckets[1].count != 2 || h.buckets[2].count != 3 {
		t.Errorf("buckets: %+v", h.buckets)
	}
}

func TestHandler_PrometheusTextFormat(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("app_events_total", "events").Add(7)
	c.Gauge("app_in_flight", "in flight").Set(2)
	c.Histogram("app_latency_seconds", "latency", []float64{1}).Observe(0.5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler()(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE app_events_total counter",
		"app_events_total 7",
		"# TYPE app_in_flight gauge",
		"app_in_flight 2",
		"# TYPE app_latency_seconds histogram",
		`app_latency_seconds_bucket{le="1"} 1`,
		"app_latency_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in output:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type: %q", ct)
	}
}
