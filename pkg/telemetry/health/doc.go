// Package health serves liveness, readiness and version endpoints for the
// agent sidecar.
//
// Readiness aggregates named component checks. The agent registers a
// "publisher" check that fails once the delivery queue is saturated and a
// "journal" check that pings the delivery journal.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("publisher", health.QueueCheck(p.Pending, capacity))
//	health.Mount(mux, checker, version.Info())
package health
