package masking

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ImagePlaceholder replaces hidden values that look like base64 encoded images.
const ImagePlaceholder = "base64 encoded images are too big to process"

// DefaultHiddenKeys are masked when no explicit list is configured.
var DefaultHiddenKeys = []string{
	"password", "pwd", "secret", "password_confirmation",
	"passwordConfirmation", "cc", "card_number", "cardNumber", "ccv",
	"ssn", "credit_score", "creditScore", "authorization",
}

// Masker applies hidden-key and header masking rules.
type Masker struct {
	hidden         map[string]struct{}
	maskAuthHeader bool
}

// New creates a Masker. Hidden keys are matched case-insensitively.
// A nil or empty list disables key masking; header masking still applies.
func New(hiddenKeys []string, maskAuthHeader bool) *Masker {
	hidden := make(map[string]struct{}, len(hiddenKeys))
	for _, key := range hiddenKeys {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		hidden[key] = struct{}{}
	}

	return &Masker{
		hidden:         hidden,
		maskAuthHeader: maskAuthHeader,
	}
}

// IsHidden reports whether key is one of the configured hidden keys.
func (m *Masker) IsHidden(key string) bool {
	if len(m.hidden) == 0 {
		return false
	}
	_, ok := m.hidden[strings.ToLower(key)]
	return ok
}

// Mask returns a redacted copy of data. Maps and slices are copied and
// walked recursively; the input is never modified. Scalars outside a hidden
// key pass through unchanged.
func (m *Masker) Mask(data any) any {
	switch v := data.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			if m.IsHidden(key) {
				out[key] = MaskValue(value)
				continue
			}
			out[key] = m.Mask(value)
		}
		return out

	case map[string]string:
		out := make(map[string]string, len(v))
		for key, value := range v {
			if m.IsHidden(key) {
				out[key] = MaskValue(value)
				continue
			}
			out[key] = value
		}
		return out

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = m.Mask(item)
		}
		return out
	}

	return data
}

// MaskValue redacts a single value regardless of its key.
func MaskValue(value any) string {
	s := Stringify(value)
	if IsBase64Image(s) {
		return ImagePlaceholder
	}
	return stars(s)
}

// Stringify returns the representation whose length a masked value preserves.
// Composite values use their compact JSON encoding.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any, map[string]string:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return fmt.Sprint(value)
}

func stars(s string) string {
	return strings.Repeat("*", utf8.RuneCountInString(s))
}
