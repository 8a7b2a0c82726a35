// Package imagestore uploads product photos to object storage.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"kasirbutik/backend/internal/store"
)

// MaxUploadBytes caps a single product image.
const MaxUploadBytes = 5 << 20

var (
	allowedExtensions   = []string{".jpeg", ".jpg", ".png", ".webp", ".gif"}
	allowedContentTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
)

type Uploader interface {
	Upload(ctx context.Context, filename string, content []byte) (string, error)
}

// Validate checks the file name, the declared content type and the sniffed
// content of an upload.
func Validate(filename string, declaredType string, content []byte) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(allowedExtensions, ext) {
		return fmt.Errorf("%w: extension %q not allowed", store.ErrUnsupportedMedia, ext)
	}
	if !slices.Contains(allowedContentTypes, baseType(declaredType)) {
		return fmt.Errorf("%w: content type %q not allowed", store.ErrUnsupportedMedia, declaredType)
	}
	if len(content) == 0 {
		return fmt.Errorf("%w: empty file", store.ErrValidation)
	}
	if len(content) > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", store.ErrValidation, MaxUploadBytes)
	}
	if sniffed := baseType(http.DetectContentType(content)); !slices.Contains(allowedContentTypes, sniffed) {
		return fmt.Errorf("%w: content looks like %q", store.ErrUnsupportedMedia, sniffed)
	}
	return nil
}

// ReadLimited reads at most MaxUploadBytes+1 bytes so oversize files are
// detected without buffering them whole.
func ReadLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
}

func baseType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
