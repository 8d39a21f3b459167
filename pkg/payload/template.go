package payload

import (
	"net"
	"os"
	"runtime"
	"time"
)

const (
	// SDKName identifies this agent to the backend.
	SDKName = "go"

	// SchemaVersion is the payload format version.
	SchemaVersion = 1

	// Bogon is reported whenever an IP address cannot be determined.
	Bogon = "bogon"

	unknown = "Unknown"
)

// Template is the immutable, process-wide part of every payload.
type Template struct {
	apiKey    string
	projectID string
	server    Server
	language  Language
}

// NewTemplate detects the server identity once and binds it to the
// credential pair. apiKey is the SDK token sent as the api key, projectID
// identifies the project.
func NewTemplate(projectID, apiKey string) *Template {
	return &Template{
		apiKey:    apiKey,
		projectID: projectID,
		server:    detectServer(),
		language:  Language{Name: "go", Version: orUnknown(runtime.Version())},
	}
}

// NewTemplateWithServer builds a template with an explicit server identity.
func NewTemplateWithServer(projectID, apiKey string, server Server) *Template {
	return &Template{
		apiKey:    apiKey,
		projectID: projectID,
		server:    server,
		language:  Language{Name: "go", Version: orUnknown(runtime.Version())},
	}
}

// Server returns the detected server identity.
func (t *Template) Server() Server {
	return t.server
}

// NewPayload returns a fresh payload for one exchange. The returned value
// shares nothing mutable with the template or with other payloads.
func (t *Template) NewPayload() *Payload {
	return &Payload{
		APIKey:    t.apiKey,
		ProjectID: t.projectID,
		SDK:       SDKName,
		Version:   SchemaVersion,
		Data: Data{
			Server:   t.server,
			Language: t.language,
			Errors:   []ErrorRecord{},
		},
	}
}

func detectServer() Server {
	release, arch := uname()

	return Server{
		IP:       hostIPv4(),
		Timezone: timezone(),
		OS: OS{
			Name:         osName(),
			Release:      orUnknown(release),
			Architecture: orUnknown(arch),
		},
		Software: "Go net/http",
		Protocol: "HTTP/1.1",
	}
}

func hostIPv4() string {
	hostname, err := os.Hostname()
	if err != nil {
		return Bogon
	}
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return Bogon
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	return Bogon
}

func timezone() string {
	name, _ := time.Now().Zone()
	if name == "" {
		return "UTC"
	}
	return name
}

func osName() string {
	switch runtime.GOOS {
	case "linux":
		return "Linux"
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	case "":
		return unknown
	}
	return runtime.GOOS
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
