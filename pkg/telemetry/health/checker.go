package health

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status values reported by checks and the aggregate.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusFailing  = "unhealthy"
)

// CheckFunc reports the health of one component. A nil error is healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	// DurationMS is the check's run time in milliseconds.
	DurationMS float64 `json:"duration_ms"`
}

// Report is the aggregated result returned by the endpoints.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker runs registered checks concurrently, each under its own timeout.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// New creates a checker. A zero timeout defaults to five seconds.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck adds or replaces the check for name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Checks returns the registered check names in sorted order.
func (c *Checker) Checks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// Liveness reports that the process is serving.
func (c *Checker) Liveness() Report {
	return Report{Status: StatusOK, Timestamp: time.Now()}
}

// Readiness runs every check and reports degraded if any failed.
func (c *Checker) Readiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex

	var g errgroup.Group
	for name, check := range checks {
		g.Go(func() error {
			res := c.run(ctx, check)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := StatusReady
	for _, res := range results {
		if res.Status != StatusOK {
			status = StatusDegraded
		}
	}
	return Report{Status: status, Checks: results, Timestamp: time.Now()}
}

func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errc := make(chan error, 1)
	go func() { errc <- check(ctx) }()

	elapsed := func() float64 { return time.Since(start).Seconds() * 1000 }

	select {
	case err := <-errc:
		if err != nil {
			return CheckResult{Status: StatusFailing, Message: err.Error(), DurationMS: elapsed()}
		}
		return CheckResult{Status: StatusOK, DurationMS: elapsed()}
	case <-ctx.Done():
		return CheckResult{Status: StatusFailing, Message: "health check timeout", DurationMS: elapsed()}
	}
}

// QueueCheck fails when depth reports a full queue of the given capacity.
func QueueCheck(depth func() int, capacity int) CheckFunc {
	return func(context.Context) error {
		if n := depth(); capacity > 0 && n >= capacity {
			return fmt.Errorf("delivery queue saturated (%d/%d)", n, capacity)
		}
		return nil
	}
}
