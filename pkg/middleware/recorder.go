package middleware

import (
	"bytes"
	"mime"
	"net/http"
)

// responseRecorder tracks what a handler writes. It buffers at most capture
// bytes of the body and counts every byte.
type responseRecorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
	size        int64
	streaming   bool

	capture int64
	body    bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter, capture int64) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, capture: capture}
}

func (r *responseRecorder) WriteHeader(code int) {
	// Informational responses are passed through without fixing the status.
	if code >= 100 && code < 200 {
		r.ResponseWriter.WriteHeader(code)
		return
	}
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	if isEventStream(r.Header().Get("Content-Type")) {
		r.streaming = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += int64(n)

	if !r.streaming {
		if room := r.capture - int64(r.body.Len()); room > 0 {
			r.body.Write(b[:min(int64(n), room)])
		}
	}
	return n, err
}

// Flush marks the response as streaming and forwards the flush.
func (r *responseRecorder) Flush() {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.streaming = true
	r.body.Reset()
	_ = http.NewResponseController(r.ResponseWriter).Flush()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// statusCode returns the recorded status, or 200 if nothing was written.
func (r *responseRecorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func isEventStream(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/event-stream"
}
