package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/payload"
)

// Submitter accepts finalized payloads for delivery. It must not block.
// *publisher.Publisher implements it.
type Submitter interface {
	Submit(p *payload.Payload) bool
}

// RouteFunc returns the route pattern for r, or "" if unknown.
type RouteFunc func(r *http.Request) string

type options struct {
	route  RouteFunc
	logger *slog.Logger
}

// Option configures Telemetry.
type Option func(*options)

// WithRouteFunc resolves route patterns before the handler runs.
func WithRouteFunc(fn RouteFunc) Option {
	return func(o *options) {
		o.route = fn
	}
}

// ServeMuxRoutes resolves route patterns by asking mux which pattern would
// serve the request.
func ServeMuxRoutes(mux *http.ServeMux) Option {
	return WithRouteFunc(func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return routeFromPattern(pattern, r.URL.Path)
	})
}

// WithLogger sets the logger used for capture problems.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Telemetry returns middleware that captures every exchange with g and
// submits the finalized payload to s. When g is disabled the handler is
// returned unwrapped.
func Telemetry(g *gatherer.Gatherer, s Submitter, opts ...Option) func(http.Handler) http.Handler {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "middleware.telemetry")

	return func(next http.Handler) http.Handler {
		if g.Disabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := readBody(r, g.RequestBodyLimit(), o.logger)

			var route string
			if o.route != nil {
				route = o.route(r)
			}

			x := g.Begin(gatherer.RawRequest{
				Method:        r.Method,
				URL:           requestURL(r),
				Path:          r.URL.Path,
				Route:         route,
				Header:        r.Header,
				Query:         r.URL.Query(),
				RemoteAddr:    r.RemoteAddr,
				ContentLength: r.ContentLength,
				Body:          body,
			})

			rec := newResponseRecorder(w, gatherer.MaxResponseBodySize)
			inner := r.WithContext(gatherer.WithExchange(r.Context(), x))

			defer func() {
				v := recover()

				var err error
				status := rec.statusCode()
				if v != nil {
					err = gatherer.NewPanicError(v)
					if !rec.wroteHeader {
						status = http.StatusInternalServerError
					}
				}

				if route == "" && inner.Pattern != "" {
					x.SetRoute(routeFromPattern(inner.Pattern, r.URL.Path))
				}

				g.Complete(x, gatherer.RawResponse{
					StatusCode: status,
					Header:     rec.Header().Clone(),
					Body:       rec.body.Bytes(),
					Size:       rec.size,
					Streaming:  rec.streaming,
				})
				if p := g.Finalize(x, err); p != nil {
					s.Submit(p)
				}

				if v != nil {
					panic(v)
				}
			}()

			next.ServeHTTP(rec, inner)
		})
	}
}

// ReportError attaches err to the exchange captured for r. The first
// reported error is kept; it is ignored outside Telemetry.
func ReportError(r *http.Request, err error) {
	gatherer.ExchangeFromContext(r.Context()).Fail(err)
}

// readBody reads up to limit+1 bytes of the request body and re-attaches
// them in front of the unread remainder. It returns nil when capture is off
// or the declared length is already over the limit.
func readBody(r *http.Request, limit int64, logger *slog.Logger) []byte {
	if limit <= 0 || r.Body == nil || r.Body == http.NoBody || r.ContentLength >= limit {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}
	if err != nil {
		logger.Debug("failed to read request body", "error", err)
		return nil
	}
	return buf
}

type replayBody struct {
	io.Reader
	io.Closer
}

func requestURL(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// routeFromPattern strips the method and host from a ServeMux pattern.
// Subtree patterns that matched a longer path are not routes, so the path
// is kept instead.
func routeFromPattern(pattern, path string) string {
	if pattern == "" {
		return ""
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = strings.TrimLeft(pattern[i+1:], " \t")
	}
	if !strings.HasPrefix(pattern, "/") {
		i := strings.IndexByte(pattern, '/')
		if i < 0 {
			return ""
		}
		pattern = pattern[i:]
	}
	if strings.HasSuffix(pattern, "/") && pattern != path {
		return path
	}
	return pattern
}
