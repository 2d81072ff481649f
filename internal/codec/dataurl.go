package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"stickerforge/internal/domain"
)

// DataURL renders data as a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripDataURL removes a "data:<type>;base64," prefix if one is present.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.IndexByte(s, ','); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// DecodeDataURL returns the bytes and media type carried by a base64 data URL.
// A bare base64 string is accepted and reported without a media type.
func DecodeDataURL(s string) ([]byte, string, error) {
	var mediaType string
	payload := s
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", fmt.Errorf("%w: malformed data url", domain.ErrDecode)
		}
		meta := s[len("data:"):idx]
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: data url is not base64", domain.ErrDecode)
		}
		mediaType = strings.TrimSuffix(meta, ";base64")
		payload = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return data, mediaType, nil
}
