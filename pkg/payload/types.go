package payload

import "time"

// TimeFormat is the layout of every timestamp in a payload (UTC).
const TimeFormat = "2006-01-02 15:04:05"

// ErrorSource tags error records produced by the instrumentation.
const ErrorSource = "onError"

// Payload is the root telemetry document for one exchange.
type Payload struct {
	APIKey    string `json:"api_key"`
	ProjectID string `json:"project_id"`
	SDK       string `json:"sdk"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      Data   `json:"data"`
}

// Data groups the server identity with the exchange sections.
type Data struct {
	Server   Server        `json:"server"`
	Language Language      `json:"language"`
	Request  *Request      `json:"request,omitempty"`
	Response *Response     `json:"response,omitempty"`
	Errors   []ErrorRecord `json:"errors"`
}

// Server describes the host running the instrumented application.
type Server struct {
	IP       string `json:"ip"`
	Timezone string `json:"timezone"`
	OS       OS     `json:"os"`
	Software string `json:"software"`
	Protocol string `json:"protocol"`
}

// OS identifies the operating system.
type OS struct {
	Name         string `json:"name"`
	Release      string `json:"release"`
	Architecture string `json:"architecture"`
}

// Language identifies the runtime.
type Language struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Request is the masked request section.
type Request struct {
	Timestamp string            `json:"timestamp"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	RoutePath string            `json:"route_path"`
	UserAgent string            `json:"user_agent"`
	Headers   map[string]string `json:"headers"`
	IP        string            `json:"ip"`
	Query     map[string]any    `json:"query"`
	Body      any               `json:"body"`
}

// Response is the masked response section.
type Response struct {
	Code     int               `json:"code"`
	Headers  map[string]string `json:"headers"`
	LoadTime int64             `json:"load_time"`
	Size     int64             `json:"size"`
	Body     any               `json:"body"`
}

// ErrorRecord describes one error observed during an exchange. Only the
// innermost frame is ever reported.
type ErrorRecord struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// FormatTime renders t in the payload timestamp layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// EmptyBody is the substitute for absent, unparseable or oversized bodies.
func EmptyBody() map[string]any {
	return map[string]any{}
}

// AppendError adds an error record to the payload.
func (p *Payload) AppendError(rec ErrorRecord) {
	if rec.Source == "" {
		rec.Source = ErrorSource
	}
	p.Data.Errors = append(p.Data.Errors, rec)
}
