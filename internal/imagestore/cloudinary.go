package imagestore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"kasirbutik/backend/internal/store"
	"kasirbutik/backend/internal/xid"
)

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cloudName string, apiKey string, apiSecret string, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, bytes.NewReader(content), uploader.UploadParams{
		Folder:       c.folder,
		ResourceType: "auto",
		PublicID:     publicID(filename),
	})
	if err != nil {
		return "", store.Upstream("cloudinary.upload", err)
	}
	if resp.Error.Message != "" {
		return "", store.Upstream("cloudinary.upload", errors.New(resp.Error.Message))
	}
	return resp.SecureURL, nil
}

// publicID keeps the upload's base name readable and appends a unique
// suffix, so two files named foto.jpg never share an ID.
func publicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "img"
	}
	return xid.New(base)
}
