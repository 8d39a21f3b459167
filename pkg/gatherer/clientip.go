package gatherer

import (
	"net"
	"strings"

	"treblle-hq/agent/pkg/payload"
)

// ResolveClientIP returns the client IPv4 address for an exchange.
//
// The first forwarded-for entry wins when it is a valid IPv4 literal,
// otherwise the first valid IPv4 entry in the list, otherwise the
// connection address. Anything else resolves to payload.Bogon.
func ResolveClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		candidates := strings.Split(forwardedFor, ",")
		if first := strings.TrimSpace(candidates[0]); isIPv4(first) {
			return first
		}
		for _, c := range candidates[1:] {
			if c = strings.TrimSpace(c); isIPv4(c) {
				return c
			}
		}
	}

	addr := strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if isIPv4(addr) {
		return addr
	}
	return payload.Bogon
}

// isIPv4 accepts dotted-quad literals only, rejecting IPv4-mapped IPv6 forms.
func isIPv4(s string) bool {
	if s == "" || strings.Contains(s, ":") || strings.Count(s, ".") != 3 {
		return false
	}
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}
