package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"treblle-hq/agent/pkg/config"
)

// CaptureMetrics tracks exchanges processed by the gatherer.
//
// Metrics:
//   - treblle_agent_exchanges_total: Exchanges by method and status class
//   - treblle_agent_exchange_duration_seconds: Exchange load time
//   - treblle_agent_error_records_total: Error records by kind
type CaptureMetrics struct {
	exchangesTotal   *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	errorRecords     *prometheus.CounterVec
}

// NewCaptureMetrics creates and registers capture metrics with the provided registry.
func NewCaptureMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CaptureMetrics {
	cm := &CaptureMetrics{
		exchangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exchanges_total",
				Help:      "Total number of captured exchanges",
			},
			[]string{"method", "status_class"},
		),

		exchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exchange_duration_seconds",
				Help:      "Load time of captured exchanges in seconds",
				Buckets:   cfg.LatencyBuckets,
			},
			[]string{"method"},
		),

		errorRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "error_records_total",
				Help:      "Total number of error records attached to payloads",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		cm.exchangesTotal,
		cm.exchangeDuration,
		cm.errorRecords,
	)

	return cm
}

// RecordExchange records a finalized exchange.
func (cm *CaptureMetrics) RecordExchange(method, statusClass string, loadTime time.Duration) {
	cm.exchangesTotal.WithLabelValues(method, statusClass).Inc()
	cm.exchangeDuration.WithLabelValues(method).Observe(loadTime.Seconds())
}

// RecordError counts an error record of the given kind.
func (cm *CaptureMetrics) RecordError(kind string) {
	cm.errorRecords.WithLabelValues(kind).Inc()
}
