// Package imagecheck verifies that an uploaded payload really is an image
// before it is sent to object storage.
package imagecheck

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/yungbote/travelog-backend/internal/platform/apierr"
)

const DefaultMaxBytes = 10 << 20

// Info is what Inspect learned about a payload.
type Info struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// Inspect decodes the image header of data. maxBytes <= 0 means
// DefaultMaxBytes. Failures are validation errors.
func Inspect(data []byte, maxBytes int) (Info, error) {
	const op = "imagecheck.inspect"
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) == 0 {
		return Info{}, apierr.Validation(op, "image payload is empty")
	}
	if len(data) > maxBytes {
		return Info{}, apierr.Validation(op, "image is %d bytes, limit is %d", len(data), maxBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, apierr.Validation(op, "payload is not a supported image: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, apierr.Validation(op, "image has invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return Info{
		Format:      format,
		ContentType: contentTypeFor(format),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

func contentTypeFor(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png", "gif", "webp":
		return "image/" + format
	default:
		return fmt.Sprintf("image/%s", format)
	}
}
