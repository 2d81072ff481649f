// Package codec converts uploaded image files into the base64 payload and
// media type the generation backends expect, and handles data URLs.
package codec

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"stickerforge/internal/domain"
)

// MaxUploadBytes caps how much of an upload is read.
const MaxUploadBytes = 20 << 20

var supportedMedia = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// Supported reports whether mediaType is accepted as a reference image.
func Supported(mediaType string) bool {
	_, ok := supportedMedia[normalizeMediaType(mediaType)]
	return ok
}

// Encode reads r fully and returns its bytes as base64 together with the
// media type. An empty declared type is sniffed from the content.
func Encode(r io.Reader, mediaType string) (domain.ReferenceImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if len(data) == 0 {
		return domain.ReferenceImage{}, fmt.Errorf("%w: empty file", domain.ErrIO)
	}
	if len(data) > MaxUploadBytes {
		return domain.ReferenceImage{}, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrIO, MaxUploadBytes)
	}
	mediaType = normalizeMediaType(mediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = normalizeMediaType(http.DetectContentType(data))
	}
	if !Supported(mediaType) {
		return domain.ReferenceImage{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, mediaType)
	}
	return domain.ReferenceImage{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
	}, nil
}

// EncodeFile encodes the file at path, deriving the media type from its
// extension.
func EncodeFile(path string) (domain.ReferenceImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer f.Close()
	return Encode(f, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
}

// EncodeMultipart encodes an uploaded form file using its declared
// Content-Type.
func EncodeMultipart(fh *multipart.FileHeader) (domain.ReferenceImage, error) {
	if fh == nil {
		return domain.ReferenceImage{}, fmt.Errorf("%w: no file", domain.ErrIO)
	}
	f, err := fh.Open()
	if err != nil {
		return domain.ReferenceImage{}, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer f.Close()
	return Encode(f, fh.Header.Get("Content-Type"))
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}
