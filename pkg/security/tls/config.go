package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// ServerConfig is the TLS configuration of the proxy listener.
type ServerConfig struct {
	// Enabled indicates whether the listener serves TLS.
	Enabled bool `yaml:"enabled"`

	// CertFile is the path to the PEM-encoded certificate file.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded private key file.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum TLS version to accept ("1.2" or "1.3").
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// CipherSuites restricts the TLS 1.2 cipher suites. Empty uses Go's
	// defaults.
	CipherSuites []string `yaml:"cipher_suites"`
}

// ClientConfig is the TLS configuration of the delivery client.
type ClientConfig struct {
	// CAFile is a PEM bundle trusted in addition to the system roots.
	CAFile string `yaml:"ca_file"`

	// MinVersion is the minimum TLS version offered ("1.2" or "1.3").
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`
}

// ToTLSConfig loads the certificate pair and returns the listener
// configuration. It returns nil when TLS is disabled.
func (c *ServerConfig) ToTLSConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}

	if c.CertFile == "" {
		return nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if c.KeyFile == "" {
		return nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return nil, fmt.Errorf("certificate validation failed: %w", err)
	}

	suites, err := parseCipherSuites(c.CipherSuites)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is validated (TLS 1.0/1.1 rejected)
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   parseTLSVersion(c.MinVersion, tls.VersionTLS13),
		CipherSuites: suites,
	}, nil
}

// ToTLSConfig returns the client configuration. It returns nil when nothing
// differs from the http.DefaultTransport defaults.
func (c ClientConfig) ToTLSConfig() (*tls.Config, error) {
	if c.CAFile == "" && c.MinVersion == "" {
		return nil, nil
	}

	cfg := &tls.Config{MinVersion: parseTLSVersion(c.MinVersion, tls.VersionTLS12)}
	if c.CAFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", c.CAFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// NewHTTPClient returns an HTTP client for deliveries, or nil when c needs no
// custom transport so the caller keeps its default client.
func NewHTTPClient(c ClientConfig, timeout time.Duration) (*http.Client, error) {
	tlsConfig, err := c.ToTLSConfig()
	if err != nil || tlsConfig == nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// ValidVersion reports whether v is an accepted MinVersion value.
func ValidVersion(v string) bool {
	return v == "" || v == "1.2" || v == "1.3"
}

func parseTLSVersion(v string, def uint16) uint16 {
	switch v {
	case "1.2":
		return tls.VersionTLS12
	case "1.3":
		return tls.VersionTLS13
	default:
		return def
	}
}

func parseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("unsupported cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuiteMap lists the TLS 1.2 suites that may be selected. TLS 1.3
// suites are not configurable in crypto/tls.
var cipherSuiteMap = map[string]uint16{
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}
