package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/publisher"
)

// maxMethods bounds the distinct values of the method label.
const maxMethods = 32

// Collector owns every agent metric. It implements gatherer.Metrics and
// publisher.Observer, and all methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	captureMetrics  *CaptureMetrics
	deliveryMetrics *DeliveryMetrics

	methods *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. If registry is
// nil a new one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = append([]float64(nil), config.DefaultLatencyBuckets...)
	}
	if len(cfg.SizeBuckets) == 0 {
		cfg.SizeBuckets = append([]float64(nil), config.DefaultSizeBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		captureMetrics:  NewCaptureMetrics(cfg, registry),
		deliveryMetrics: NewDeliveryMetrics(cfg, registry),
		methods:         NewCardinalityLimiter(maxMethods),
	}
}

// ObserveExchange records a finalized exchange.
func (c *Collector) ObserveExchange(method string, status int, loadTime time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.methods.Allow(method) {
		method = "other"
	}
	c.captureMetrics.RecordExchange(method, statusClass(status), loadTime)
}

// IncErrorRecord counts an error record attached to a payload.
func (c *Collector) IncErrorRecord(kind string) {
	if !c.config.Enabled {
		return
	}
	c.captureMetrics.RecordError(kind)
}

// ObserveDelivery records a delivery attempt.
func (c *Collector) ObserveDelivery(d publisher.Delivery) {
	if !c.config.Enabled {
		return
	}
	c.deliveryMetrics.RecordDelivery(d.Endpoint, string(d.Outcome), d.Duration, d.Bytes)
}

// ObserveDrop counts a payload dropped before delivery.
func (c *Collector) ObserveDrop(reason string) {
	if !c.config.Enabled {
		return
	}
	c.deliveryMetrics.RecordDrop(reason)
}

// RegisterQueueDepth exposes the publisher queue depth as a gauge.
func (c *Collector) RegisterQueueDepth(depth func() int) {
	if !c.config.Enabled {
		return
	}
	c.deliveryMetrics.RegisterQueueDepth(c.config, c.registry, depth)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
