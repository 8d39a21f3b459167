package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// ExpiryWarningWindow is how close to expiry a certificate draws a warning.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// ValidateCertificate checks that the leaf of cert is currently valid.
func ValidateCertificate(cert *tls.Certificate) error {
	leaf, err := leafCertificate(cert)
	if err != nil {
		return err
	}
	return ValidateX509Certificate(leaf, time.Now())
}

// ValidateX509Certificate checks cert against its validity window at now.
func ValidateX509Certificate(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// ExpiryWarning returns a message when the leaf of cfg expires within
// ExpiryWarningWindow, and "" otherwise.
func ExpiryWarning(cfg *tls.Config, now time.Time) string {
	if cfg == nil || len(cfg.Certificates) == 0 {
		return ""
	}
	leaf, err := leafCertificate(&cfg.Certificates[0])
	if err != nil {
		return ""
	}
	remaining := leaf.NotAfter.Sub(now)
	if remaining >= ExpiryWarningWindow {
		return ""
	}
	return fmt.Sprintf("certificate expires in %d days (on %s)",
		int(remaining.Hours()/24), leaf.NotAfter.Format("2006-01-02"))
}

func leafCertificate(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return leaf, nil
}
