package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"treblle-hq/agent/pkg/config"
)

// DeliveryMetrics tracks the publisher.
//
// Metrics:
//   - treblle_agent_deliveries_total: Delivery attempts by endpoint and outcome
//   - treblle_agent_delivery_duration_seconds: Delivery latency by endpoint
//   - treblle_agent_payload_size_bytes: Compressed payload size
//   - treblle_agent_dropped_payloads_total: Payloads dropped before delivery
//   - treblle_agent_queue_depth: Payloads waiting for the worker
type DeliveryMetrics struct {
	deliveries  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	payloadSize prometheus.Histogram
	dropped     *prometheus.CounterVec

	queueOnce sync.Once
}

// NewDeliveryMetrics creates and registers delivery metrics with the provided registry.
func NewDeliveryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeliveryMetrics {
	dm := &DeliveryMetrics{
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "deliveries_total",
				Help:      "Total number of delivery attempts by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "delivery_duration_seconds",
				Help:      "Duration of delivery attempts in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"endpoint"},
		),

		payloadSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "payload_size_bytes",
				Help:      "Size of compressed payloads in bytes",
				Buckets:   cfg.SizeBuckets,
			},
		),

		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "dropped_payloads_total",
				Help:      "Total number of payloads dropped before delivery",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		dm.deliveries,
		dm.duration,
		dm.payloadSize,
		dm.dropped,
	)

	return dm
}

// RecordDelivery records one delivery attempt.
func (dm *DeliveryMetrics) RecordDelivery(endpoint, outcome string, duration time.Duration, size int) {
	dm.deliveries.WithLabelValues(endpoint, outcome).Inc()
	dm.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if size > 0 {
		dm.payloadSize.Observe(float64(size))
	}
}

// RecordDrop counts a dropped payload.
func (dm *DeliveryMetrics) RecordDrop(reason string) {
	dm.dropped.WithLabelValues(reason).Inc()
}

// RegisterQueueDepth registers a gauge reading depth on every scrape. Only
// the first registration takes effect.
func (dm *DeliveryMetrics) RegisterQueueDepth(cfg *config.MetricsConfig, registry *prometheus.Registry, depth func() int) {
	dm.queueOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queue_depth",
				Help:      "Number of payloads waiting for the delivery worker",
			},
			func() float64 { return float64(depth()) },
		))
	})
}
