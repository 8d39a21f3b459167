package masking

import "strings"

// AuthSchemes are the authorization schemes kept visible by MaskAuthorization.
var AuthSchemes = map[string]struct{}{
	"Basic":            {},
	"Bearer":           {},
	"Digest":           {},
	"Negotiate":        {},
	"OAuth":            {},
	"AWS4-HMAC-SHA256": {},
	"HOBA":             {},
	"Mutual":           {},
}

// sensitiveHeaders are masked regardless of the hidden key list.
var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"x-api-key":     {},
}

// IsSensitiveHeader reports whether name is always masked.
func IsSensitiveHeader(name string) bool {
	_, ok := sensitiveHeaders[strings.ToLower(name)]
	return ok
}

// MaskHeaders returns a masked copy of a flattened header map.
//
// Sensitive headers are masked first. The authorization header keeps its
// scheme when auth header masking is enabled; every other sensitive header is
// masked in full. Remaining headers then go through hidden-key masking.
func (m *Masker) MaskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		switch {
		case lower == "authorization" && m.maskAuthHeader:
			out[name] = m.MaskAuthorization(value)
		case IsSensitiveHeader(lower):
			out[name] = stars(value)
		case m.IsHidden(name):
			out[name] = MaskValue(value)
		default:
			out[name] = value
		}
	}
	return out
}

// MaskAuthorization masks the credential part of an authorization header.
// A header that does not split into a known scheme and a value on the first
// space is masked entirely.
func (m *Masker) MaskAuthorization(header string) string {
	scheme, credential, ok := strings.Cut(header, " ")
	if !ok {
		return stars(header)
	}
	if _, known := AuthSchemes[scheme]; !known {
		return stars(header)
	}
	return scheme + " " + stars(credential)
}
