package publisher

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies a delivery attempt.
type Outcome string

const (
	// OutcomeAccepted is a 2xx response without an error marker.
	OutcomeAccepted Outcome = "accepted"

	// OutcomeRejected is a non-2xx response, or a 2xx response whose body
	// mentions an error.
	OutcomeRejected Outcome = "rejected"

	// OutcomeFailed is a delivery that produced no response: encoding,
	// connection and timeout failures.
	OutcomeFailed Outcome = "failed"
)

// Drop reasons reported to observers.
const (
	DropQueueFull = "queue_full"
	DropClosed    = "closed"
	DropShutdown  = "shutdown"
)

// Delivery describes one delivery attempt.
type Delivery struct {
	Endpoint   string
	RequestID  string
	StatusCode int
	Outcome    Outcome
	Bytes      int
	Duration   time.Duration
	At         time.Time
	Err        error
}

// Observer is notified by the worker goroutine. Implementations must not
// block.
type Observer interface {
	ObserveDelivery(d Delivery)
	ObserveDrop(reason string)
}

// DeliveryError records a failed delivery step.
type DeliveryError struct {
	Endpoint string
	Op       string
	Cause    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed during %s: %v", e.Endpoint, e.Op, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// classify maps a backend response onto an outcome.
func classify(status int, body string) Outcome {
	if status < 200 || status >= 300 {
		return OutcomeRejected
	}
	lower := strings.ToLower(body)
	if strings.Contains(lower, "error") || strings.Contains(lower, "invalid") {
		return OutcomeRejected
	}
	return OutcomeAccepted
}
