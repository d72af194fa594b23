package storage

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/prn-tf/storefront/internal/domain"
)

// ImageInfo describes a validated image.
type ImageInfo struct {
	Format      string
	ContentType string
	Extension   string
	Width       int
	Height      int
}

var formats = map[string]ImageInfo{
	"png":  {Format: "png", ContentType: "image/png", Extension: "png"},
	"jpeg": {Format: "jpeg", ContentType: "image/jpeg", Extension: "jpg"},
	"gif":  {Format: "gif", ContentType: "image/gif", Extension: "gif"},
	"webp": {Format: "webp", ContentType: "image/webp", Extension: "webp"},
}

// DetectImage decodes the image header of data.
// Returns domain.ErrUnsupportedImage unless data is a PNG, JPEG, GIF or WebP image.
func DetectImage(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, domain.ErrUnsupportedImage
	}

	info, ok := formats[format]
	if !ok || cfg.Width == 0 || cfg.Height == 0 {
		return ImageInfo{}, domain.ErrUnsupportedImage.WithResource(format)
	}

	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}
