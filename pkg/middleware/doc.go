// Package middleware adapts net/http handlers to the gatherer and publisher.
//
// Telemetry wraps a handler so that every exchange is captured, finalized
// and handed to the publisher without delaying the response:
//
//	g := gatherer.New(gcfg)
//	p := publisher.New(pcfg)
//	handler := middleware.Telemetry(g, p)(mux)
//
// The request body is read up to the capture limit and re-attached, so the
// wrapped handler still sees the full body. Responses are recorded as they
// are written; a handler that flushes, or answers with text/event-stream, is
// treated as streaming and its body is not buffered.
//
// Panics in the wrapped handler are recorded as the exchange's error and
// then re-raised. Handlers that recover errors themselves can still attach
// them with ReportError.
//
// Routes are taken from http.ServeMux patterns when the wrapped handler is a
// ServeMux; other routers can supply WithRouteFunc.
//
// The package also carries the generic RequestID, Logging and Recovery
// middleware used by the sidecar.
package middleware
