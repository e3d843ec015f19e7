package imagecheck

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/yungbote/travelog-backend/internal/platform/apierr"
)

func encoded(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestInspectAcceptsImages(t *testing.T) {
	for _, format := range []string{"png", "jpeg", "gif"} {
		info, err := Inspect(encoded(t, format), 0)
		if err != nil {
			t.Fatalf("Inspect(%s): %v", format, err)
		}
		if info.Format != format {
			t.Fatalf("format: want=%s got=%s", format, info.Format)
		}
		if info.Width != 4 || info.Height != 3 {
			t.Fatalf("dims: want=4x3 got=%dx%d", info.Width, info.Height)
		}
	}
	if info, _ := Inspect(encoded(t, "jpeg"), 0); info.ContentType != "image/jpeg" {
		t.Fatalf("content type: got=%s", info.ContentType)
	}
}

func TestInspectRejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"text":      []byte("hello, this is not an image"),
		"too big":   encoded(t, "png"),
		"truncated": encoded(t, "png")[:10],
	}
	for name, data := range cases {
		limit := 0
		if name == "too big" {
			limit = 8
		}
		if _, err := Inspect(data, limit); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("%s: want validation error got %v", name, err)
		}
	}
}
