package masking

import (
	"bytes"
	"encoding/base64"
	"regexp"
)

// minImageLength is the shortest string considered for image detection.
const minImageLength = 100

var dataURIPattern = regexp.MustCompile(`^data:image/[a-zA-Z]*;base64,[A-Za-z0-9+/]+={0,2}$`)

var imageMagic = [][]byte{
	{0xff, 0xd8, 0xff}, // JPEG
	[]byte("\x89PNG"),  // PNG
	[]byte("GIF8"),     // GIF
	[]byte("RIFF"),     // WEBP and friends
}

// IsBase64Image guesses whether value is a base64 encoded image, either as a
// data URI or as raw base64 whose decoded prefix carries a known image magic
// number. Short strings are never treated as images.
func IsBase64Image(value string) bool {
	if len(value) < minImageLength {
		return false
	}

	if dataURIPattern.MatchString(value) {
		return true
	}

	decoded, err := base64.StdEncoding.DecodeString(value[:minImageLength])
	if err != nil {
		return false
	}
	for _, magic := range imageMagic {
		if bytes.HasPrefix(decoded, magic) {
			return true
		}
	}
	return false
}
