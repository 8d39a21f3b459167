package gatherer

import "time"

// Error record kinds reported to Metrics.
const (
	ErrorKindTransformer = "transformer"
	ErrorKindOversized   = "oversized_body"
	ErrorKindException   = "exception"
)

// Metrics receives capture events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveExchange(method string, status int, loadTime time.Duration)
	IncErrorRecord(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveExchange(string, int, time.Duration) {}
func (nopMetrics) IncErrorRecord(string)                      {}
