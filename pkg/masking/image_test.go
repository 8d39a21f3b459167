package masking

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestIsBase64Image(t *testing.T) {
	encode := func(prefix string) string {
		raw := append([]byte(prefix), make([]byte, 150)...)
		return base64.StdEncoding.EncodeToString(raw)
	}

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"jpeg", encode("\xff\xd8\xff\xe0"), true},
		{"png", encode("\x89PNG\r\n\x1a\n"), true},
		{"gif", encode("GIF89a"), true},
		{"riff", encode("RIFF\x00\x00\x00\x00WEBP"), true},
		{"data uri", "data:image/png;base64," + strings.Repeat("A", 120), true},
		{"data uri with padding", "data:image/jpeg;base64," + strings.Repeat("QUJD", 30) + "==", true},
		{"plain base64", base64.StdEncoding.EncodeToString([]byte(strings.Repeat("hello world ", 20))), false},
		{"too short", base64.StdEncoding.EncodeToString([]byte("\x89PNG")), false},
		{"not base64", strings.Repeat("!", 120), false},
		{"long text", strings.Repeat("lorem ipsum ", 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBase64Image(tt.value); got != tt.want {
				t.Errorf("IsBase64Image() = %v, want %v", got, tt.want)
			}
		})
	}
}
