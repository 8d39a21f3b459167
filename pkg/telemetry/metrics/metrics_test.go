package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/publisher"
)

// Compile-time checks that Collector can be handed to the gatherer and publisher.
var (
	_ gatherer.Metrics   = (*Collector)(nil)
	_ publisher.Observer = (*Collector)(nil)
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:        true,
		Namespace:      "test",
		Subsystem:      "metrics",
		LatencyBuckets: []float64{0.1, 0.5, 1.0, 5.0},
		SizeBuckets:    []float64{100, 1000, 10000},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.config != cfg {
		t.Error("Collector config not set correctly")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_NewCollectorDefaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if collector.Registry() == nil {
		t.Fatal("Expected a registry to be created")
	}
	if cfg.Namespace != config.DefaultMetricsNamespace || cfg.Subsystem != config.DefaultMetricsSubsystem {
		t.Errorf("Namespace/Subsystem = %q/%q", cfg.Namespace, cfg.Subsystem)
	}
	if len(cfg.LatencyBuckets) == 0 || len(cfg.SizeBuckets) == 0 {
		t.Error("Expected default buckets")
	}
}

func TestCollector_ObserveExchange(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	tests := []struct {
		method string
		status int
		class  string
	}{
		{"GET", 200, "2xx"},
		{"GET", 204, "2xx"},
		{"POST", 404, "4xx"},
		{"PUT", 503, "5xx"},
		{"GET", 0, "unknown"},
	}

	for _, tt := range tests {
		collector.ObserveExchange(tt.method, tt.status, 120*time.Millisecond)
	}

	exchanges := collector.captureMetrics.exchangesTotal
	if got := testutil.ToFloat64(exchanges.WithLabelValues("GET", "2xx")); got != 2 {
		t.Errorf("GET 2xx = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exchanges.WithLabelValues("POST", "4xx")); got != 1 {
		t.Errorf("POST 4xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exchanges.WithLabelValues("PUT", "5xx")); got != 1 {
		t.Errorf("PUT 5xx = %v, want 1", got)
	}
	if got := testutil.ToFloat64(exchanges.WithLabelValues("GET", "unknown")); got != 1 {
		t.Errorf("GET unknown = %v, want 1", got)
	}

	if got := testutil.CollectAndCount(collector.captureMetrics.exchangeDuration); got != 3 {
		t.Errorf("duration series = %d, want 3", got)
	}
}

func TestCollector_MethodCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	for i := range maxMethods + 5 {
		collector.ObserveExchange("M"+strings.Repeat("X", i), 200, time.Millisecond)
	}

	if got := collector.methods.Count(); got != maxMethods {
		t.Errorf("tracked methods = %d, want %d", got, maxMethods)
	}
	other := collector.captureMetrics.exchangesTotal.WithLabelValues("other", "2xx")
	if got := testutil.ToFloat64(other); got != 5 {
		t.Errorf("other = %v, want 5", got)
	}
}

func TestCollector_IncErrorRecord(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.IncErrorRecord(gatherer.ErrorKindTransformer)
	collector.IncErrorRecord(gatherer.ErrorKindTransformer)
	collector.IncErrorRecord(gatherer.ErrorKindOversized)

	records := collector.captureMetrics.errorRecords
	if got := testutil.ToFloat64(records.WithLabelValues(gatherer.ErrorKindTransformer)); got != 2 {
		t.Errorf("transformer = %v, want 2", got)
	}
	if got := testutil.ToFloat64(records.WithLabelValues(gatherer.ErrorKindOversized)); got != 1 {
		t.Errorf("oversized = %v, want 1", got)
	}
}

func TestCollector_ObserveDelivery(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.ObserveDelivery(publisher.Delivery{
		Endpoint: "https://a.example", Outcome: publisher.OutcomeAccepted,
		Bytes: 512, Duration: 80 * time.Millisecond,
	})
	collector.ObserveDelivery(publisher.Delivery{
		Endpoint: "https://a.example", Outcome: publisher.OutcomeRejected,
		Bytes: 512, Duration: 90 * time.Millisecond,
	})
	collector.ObserveDelivery(publisher.Delivery{
		Endpoint: "https://b.example", Outcome: publisher.OutcomeFailed,
		Duration: 2 * time.Second,
	})

	deliveries := collector.deliveryMetrics.deliveries
	if got := testutil.ToFloat64(deliveries.WithLabelValues("https://a.example", "accepted")); got != 1 {
		t.Errorf("accepted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(deliveries.WithLabelValues("https://a.example", "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(deliveries.WithLabelValues("https://b.example", "failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}

	// Failed deliveries carry no encoded size.
	expected := `
# HELP test_metrics_payload_size_bytes Size of compressed payloads in bytes
# TYPE test_metrics_payload_size_bytes histogram
test_metrics_payload_size_bytes_bucket{le="100"} 0
test_metrics_payload_size_bytes_bucket{le="1000"} 2
test_metrics_payload_size_bytes_bucket{le="10000"} 2
test_metrics_payload_size_bytes_bucket{le="+Inf"} 2
test_metrics_payload_size_bytes_sum 1024
test_metrics_payload_size_bytes_count 2
`
	if err := testutil.CollectAndCompare(collector.deliveryMetrics.payloadSize, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestCollector_ObserveDrop(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.ObserveDrop(publisher.DropQueueFull)
	collector.ObserveDrop(publisher.DropQueueFull)
	collector.ObserveDrop(publisher.DropShutdown)

	dropped := collector.deliveryMetrics.dropped
	if got := testutil.ToFloat64(dropped.WithLabelValues(publisher.DropQueueFull)); got != 2 {
		t.Errorf("queue_full = %v, want 2", got)
	}
	if got := testutil.ToFloat64(dropped.WithLabelValues(publisher.DropShutdown)); got != 1 {
		t.Errorf("shutdown = %v, want 1", got)
	}
}

func TestCollector_QueueDepth(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	depth := 7
	collector.RegisterQueueDepth(func() int { return depth })
	// A second registration is ignored rather than panicking.
	collector.RegisterQueueDepth(func() int { return 0 })

	expected := `
# HELP test_metrics_queue_depth Number of payloads waiting for the delivery worker
# TYPE test_metrics_queue_depth gauge
test_metrics_queue_depth 7
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_metrics_queue_depth"); err != nil {
		t.Error(err)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	registry := prometheus.NewRegistry()
	collector := NewCollector(cfg, registry)

	collector.ObserveExchange("GET", 200, time.Millisecond)
	collector.IncErrorRecord(gatherer.ErrorKindException)
	collector.ObserveDelivery(publisher.Delivery{Endpoint: "https://a.example", Outcome: publisher.OutcomeAccepted})
	collector.ObserveDrop(publisher.DropClosed)
	collector.RegisterQueueDepth(func() int { return 1 })

	if got := testutil.CollectAndCount(collector.captureMetrics.exchangesTotal); got != 0 {
		t.Errorf("exchanges series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(collector.deliveryMetrics.deliveries); got != 0 {
		t.Errorf("delivery series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(collector.deliveryMetrics.dropped); got != 0 {
		t.Errorf("drop series = %d, want 0", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.ObserveExchange("GET", 200, 10*time.Millisecond)

	srv := httptest.NewServer(collector.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "test_metrics_exchanges_total") {
		t.Errorf("metrics output missing exchanges_total:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(2)

	if !limiter.Allow("a") || !limiter.Allow("b") {
		t.Fatal("Expected first two values to be allowed")
	}
	if limiter.Allow("c") {
		t.Error("Expected third value to be rejected")
	}
	if !limiter.Allow("a") {
		t.Error("Expected existing value to be allowed")
	}
	if got := limiter.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func BenchmarkCollector_ObserveExchange(b *testing.B) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	for b.Loop() {
		collector.ObserveExchange("GET", 200, 25*time.Millisecond)
	}
}
