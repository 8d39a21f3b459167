package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/payload"
	"treblle-hq/agent/pkg/telemetry/logging"
)

// captureSubmitter records submitted payloads.
type captureSubmitter struct {
	mu       sync.Mutex
	payloads []*payload.Payload
}

func (c *captureSubmitter) Submit(p *payload.Payload) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
	return true
}

func (c *captureSubmitter) only(t *testing.T) *payload.Payload {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) != 1 {
		t.Fatalf("submitted %d payloads, want 1", len(c.payloads))
	}
	return c.payloads[0]
}

func testGatherer(t *testing.T, mutate ...func(*gatherer.Config)) *gatherer.Gatherer {
	t.Helper()
	cfg := gatherer.DefaultConfig()
	cfg.SDKToken = "sdk-token"
	cfg.APIKey = "api-key"
	cfg.Environment = "production"
	for _, fn := range mutate {
		fn(&cfg)
	}
	tmpl := payload.NewTemplateWithServer(cfg.APIKey, cfg.SDKToken, payload.Server{IP: "10.0.0.1", Timezone: "UTC"})
	return gatherer.New(cfg, gatherer.WithTemplate(tmpl), gatherer.WithLogger(logging.Nop()))
}

func serve(h http.Handler, req *http.Request) (rec *httptest.ResponseRecorder, recovered any) {
	rec = httptest.NewRecorder()
	defer func() { recovered = recover() }()
	h.ServeHTTP(rec, req)
	return rec, nil
}

func TestTelemetry_CapturesExchange(t *testing.T) {
	sub := &captureSubmitter{}
	mux := http.NewServeMux()
	var seen string
	mux.HandleFunc("POST /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Authorization", "Bearer response-secret")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":42,"secret":"abc"}`)
	})

	handler := Telemetry(testGatherer(t), sub)(mux)

	body := `{"name":"Ana","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/users/42?page=1&page=2", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "8.8.8.8, 10.0.0.1")
	req.Header.Set("Authorization", "Bearer abc123")

	rec, recovered := serve(handler, req)
	if recovered != nil {
		t.Fatalf("unexpected panic: %v", recovered)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if seen != body {
		t.Errorf("handler read %q, want full body", seen)
	}

	p := sub.only(t)
	if p.RequestID == "" || p.Timestamp == "" {
		t.Error("payload not finalized")
	}

	r := p.Data.Request
	if r.Method != http.MethodPost || r.URL != "http://example.com/users/42?page=1&page=2" {
		t.Errorf("request = %s %s", r.Method, r.URL)
	}
	if r.RoutePath != "/users/{id}" {
		t.Errorf("route = %q, want /users/{id}", r.RoutePath)
	}
	if r.IP != "8.8.8.8" {
		t.Errorf("ip = %q, want 8.8.8.8", r.IP)
	}
	if r.Headers["Authorization"] != "Bearer ******" {
		t.Errorf("authorization = %q", r.Headers["Authorization"])
	}
	if r.Query["page"] != "1" {
		t.Errorf("query page = %v, want first value", r.Query["page"])
	}
	reqBody := r.Body.(map[string]any)
	if reqBody["password"] != "*******" || reqBody["name"] != "Ana" {
		t.Errorf("request body = %v", reqBody)
	}

	resp := p.Data.Response
	if resp.Code != http.StatusCreated {
		t.Errorf("response code = %d", resp.Code)
	}
	if resp.Size != int64(len(`{"id":42,"secret":"abc"}`)) {
		t.Errorf("response size = %d", resp.Size)
	}
	respBody := resp.Body.(map[string]any)
	if respBody["secret"] != "***" {
		t.Errorf("response body = %v", respBody)
	}
	if resp.Headers["Authorization"] == "Bearer response-secret" {
		t.Error("response authorization header not masked")
	}
	if len(p.Data.Errors) != 0 {
		t.Errorf("errors = %+v", p.Data.Errors)
	}
}

func TestTelemetry_RequestBodyLimit(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantCaptured  bool
	}{
		{"under limit", `{"a":1}`, 7, true},
		{"declared over limit", `{"a":1}`, 64, false},
		{"unknown length under limit", `{"a":1}`, -1, true},
		{"unknown length over limit", `{"a":"` + strings.Repeat("x", 40) + `"}`, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &captureSubmitter{}
			g := testGatherer(t, func(c *gatherer.Config) { c.RequestBodyLimit = 16 })

			var seen string
			handler := Telemetry(g, sub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				seen = string(b)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			serve(handler, req)

			if seen != tt.body {
				t.Errorf("handler read %q, want %q", seen, tt.body)
			}
			body := sub.only(t).Data.Request.Body.(map[string]any)
			if captured := len(body) > 0; captured != tt.wantCaptured {
				t.Errorf("captured = %v, want %v (body %v)", captured, tt.wantCaptured, body)
			}
		})
	}
}

func TestTelemetry_Streaming(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "flush",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"chunk":1}`)
				http.NewResponseController(w).Flush()
				_, _ = io.WriteString(w, `{"chunk":2}`)
			},
		},
		{
			name: "event stream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
				_, _ = io.WriteString(w, "data: {}\n\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &captureSubmitter{}
			rec, _ := serve(Telemetry(testGatherer(t), sub)(tt.handler), httptest.NewRequest(http.MethodGet, "/stream", nil))
			if rec.Body.Len() == 0 {
				t.Error("client received nothing")
			}

			resp := sub.only(t).Data.Response
			if resp.Size != 0 {
				t.Errorf("size = %d, want 0", resp.Size)
			}
			if body := resp.Body.(map[string]any); len(body) != 0 {
				t.Errorf("body = %v, want {}", body)
			}
		})
	}
}

func TestTelemetry_OversizedResponse(t *testing.T) {
	sub := &captureSubmitter{}
	big := strings.Repeat("a", gatherer.MaxResponseBodySize+1)
	handler := Telemetry(testGatherer(t), sub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, big)
	}))

	rec, _ := serve(handler, httptest.NewRequest(http.MethodGet, "/big", nil))
	if rec.Body.Len() != len(big) {
		t.Errorf("client received %d bytes, want %d", rec.Body.Len(), len(big))
	}

	p := sub.only(t)
	if len(p.Data.Errors) != 1 || p.Data.Errors[0].Type != gatherer.OversizedErrorType {
		t.Fatalf("errors = %+v", p.Data.Errors)
	}
	if p.Data.Response.Size != 0 {
		t.Errorf("size = %d, want 0", p.Data.Response.Size)
	}
}

func TestTelemetry_PanicIsRecordedAndReraised(t *testing.T) {
	sub := &captureSubmitter{}
	boom := errors.New("boom")
	handler := Telemetry(testGatherer(t), sub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(boom)
	}))

	_, recovered := serve(handler, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if recovered != boom {
		t.Fatalf("recovered %v, want original panic value", recovered)
	}

	p := sub.only(t)
	if p.Data.Response.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", p.Data.Response.Code)
	}
	if len(p.Data.Errors) != 1 {
		t.Fatalf("errors = %+v", p.Data.Errors)
	}
	rec := p.Data.Errors[0]
	if rec.Message != "boom" || rec.Source != payload.ErrorSource {
		t.Errorf("record = %+v", rec)
	}
	if !strings.HasSuffix(rec.File, "telemetry_test.go") || rec.Line == 0 {
		t.Errorf("panic site = %s:%d, want telemetry_test.go", rec.File, rec.Line)
	}
}

func TestTelemetry_ReportError(t *testing.T) {
	sub := &captureSubmitter{}
	handler := Telemetry(testGatherer(t), sub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ReportError(r, errors.New("first"))
		ReportError(r, errors.New("second"))
		w.WriteHeader(http.StatusBadGateway)
	}))

	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	p := sub.only(t)
	if len(p.Data.Errors) != 1 || p.Data.Errors[0].Message != "first" {
		t.Errorf("errors = %+v", p.Data.Errors)
	}
	if p.Data.Response.Code != http.StatusBadGateway {
		t.Errorf("code = %d", p.Data.Response.Code)
	}

	// Outside Telemetry it is a no-op.
	ReportError(httptest.NewRequest(http.MethodGet, "/", nil), errors.New("ignored"))
}

func TestTelemetry_Disabled(t *testing.T) {
	sub := &captureSubmitter{}
	g := testGatherer(t, func(c *gatherer.Config) { c.SDKToken = "" })

	called := false
	handler := Telemetry(g, sub)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("handler not called")
	}
	if len(sub.payloads) != 0 {
		t.Errorf("submitted %d payloads while disabled", len(sub.payloads))
	}
}

func TestTelemetry_Routes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders/{id}", func(http.ResponseWriter, *http.Request) {})
	mux.HandleFunc("/static/", func(http.ResponseWriter, *http.Request) {})

	tests := []struct {
		name string
		opts []Option
		path string
		want string
	}{
		{"pattern after dispatch", nil, "/orders/7", "/orders/{id}"},
		{"subtree keeps path", nil, "/static/app.js", "/static/app.js"},
		{"unmatched keeps path", nil, "/missing", "/missing"},
		{"serve mux option", []Option{ServeMuxRoutes(mux)}, "/orders/9", "/orders/{id}"},
		{"route func", []Option{WithRouteFunc(func(*http.Request) string { return "/custom" })}, "/orders/1", "/custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &captureSubmitter{}
			serve(Telemetry(testGatherer(t), sub, tt.opts...)(mux), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if got := sub.only(t).Data.Request.RoutePath; got != tt.want {
				t.Errorf("route = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRouteFromPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    string
	}{
		{"", "/x", ""},
		{"/users/{id}", "/users/1", "/users/{id}"},
		{"GET /users/{id}", "/users/1", "/users/{id}"},
		{"POST api.example.com/users/{id}", "/users/1", "/users/{id}"},
		{"/", "/", "/"},
		{"/", "/anything", "/anything"},
		{"/files/{path...}", "/files/a/b", "/files/{path...}"},
	}

	for _, tt := range tests {
		if got := routeFromPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("routeFromPattern(%q, %q) = %q, want %q", tt.pattern, tt.path, got, tt.want)
		}
	}
}
