/*
Package tls builds crypto/tls configurations for the agent.

# Proxy listener

The sidecar started by `treblle run` can terminate TLS itself:

	cfg := &tls.ServerConfig{
		Enabled:    true,
		CertFile:   "/etc/treblle/tls/server.crt",
		KeyFile:    "/etc/treblle/tls/server.key",
		MinVersion: "1.3",
	}

	tlsConfig, err := cfg.ToTLSConfig()

# Delivery client

Deliveries normally use the system roots. Networks that intercept TLS can add
their own CA bundle:

	client, err := tls.NewHTTPClient(tls.ClientConfig{CAFile: "/etc/ssl/corp-ca.pem"}, 2*time.Second)
*/
package tls
