// Package metrics provides Prometheus metrics for the Treblle agent.
//
// # Metrics Categories
//
//   - Capture metrics: exchanges seen by the gatherer, their latency and the
//     error records attached to payloads
//   - Delivery metrics: delivery attempts by endpoint and outcome, delivery
//     latency, compressed payload size, dropped payloads and queue depth
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	g := gatherer.New(gcfg, gatherer.WithMetrics(collector))
//	p := publisher.New(pcfg, publisher.WithObserver(collector))
//	collector.RegisterQueueDepth(p.Pending)
//
//	http.Handle("/metrics", collector.Handler())
//
// Request methods come from clients, so the method label is bounded by a
// CardinalityLimiter and overflow is aggregated under "other".
package metrics
