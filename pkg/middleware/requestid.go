package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"treblle-hq/agent/pkg/telemetry/logging"
)

// RequestIDHeader is the HTTP header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID adds a request ID to the context and the response headers. A
// client-supplied X-Request-ID is reused. The ID correlates the agent's own
// logs; the payload request id is generated separately at finalize.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}
