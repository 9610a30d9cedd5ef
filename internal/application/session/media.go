package session

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

var aliases = map[string]string{
	"image/jpg":      "image/jpeg",
	"image/pjpeg":    "image/jpeg",
	"image/x-png":    "image/png",
	"image/x-ms-bmp": "image/bmp",
}

// resolveMediaType returns the canonical image type for a payload or an InvalidInputError.
func resolveMediaType(declared string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &domain.InvalidInputError{Reason: "file is empty"}
	}

	sniffed := baseType(mimetype.Detect(data).String())
	typ := baseType(declared)
	if a, ok := aliases[typ]; ok {
		typ = a
	}

	// tanpa tipe yang dideklarasikan, pakai hasil deteksi isi file
	if typ == "" || typ == "application/octet-stream" {
		if imageTypes[sniffed] {
			return sniffed, nil
		}
		return "", &domain.InvalidInputError{Reason: "file is not a supported image"}
	}

	if !imageTypes[typ] {
		return "", &domain.InvalidInputError{Reason: "file must be an image (JPEG, PNG, GIF, WebP, BMP or TIFF)"}
	}
	// Bytes that are recognizably something else contradict the declared type.
	if sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "image/") {
		return "", &domain.InvalidInputError{Reason: "file content does not match its image type"}
	}
	return typ, nil
}

func baseType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(strings.TrimSpace(strings.SplitN(s, ";", 2)[0]))
}
