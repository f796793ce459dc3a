package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/enums"
)

func encodePNG(t *testing.T, width, height int) *bytes.Reader {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture png: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestRenderScalesDownPreservingAspect(t *testing.T) {
	t.Parallel()

	proc := NewProcessor(config.MediaConfig{})
	renditions, err := proc.Render(encodePNG(t, 2000, 1000), false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(renditions) != 2 {
		t.Fatalf("got %d renditions, want 2", len(renditions))
	}

	thumb, large := renditions[0], renditions[1]
	if thumb.Kind != enums.VariantKindThumb || large.Kind != enums.VariantKindLarge {
		t.Fatalf("unexpected kinds: %s, %s", thumb.Kind, large.Kind)
	}
	if thumb.Width != 240 || thumb.Height != 120 {
		t.Errorf("thumb = %dx%d, want 240x120", thumb.Width, thumb.Height)
	}
	if large.Width != 800 || large.Height != 400 {
		t.Errorf("large = %dx%d, want 800x400", large.Width, large.Height)
	}
	for _, r := range renditions {
		if r.ContentType != "image/webp" {
			t.Errorf("%s content type = %q", r.Kind, r.ContentType)
		}
		if len(r.Data) == 0 {
			t.Errorf("%s rendition is empty", r.Kind)
		}
	}
}

func TestRenderNeverUpscales(t *testing.T) {
	t.Parallel()

	proc := NewProcessor(config.MediaConfig{})
	renditions, err := proc.Render(encodePNG(t, 100, 50), false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, r := range renditions {
		if r.Width != 100 || r.Height != 50 {
			t.Errorf("%s = %dx%d, want original 100x50", r.Kind, r.Width, r.Height)
		}
	}
}

func TestRenderAVIFVariant(t *testing.T) {
	t.Parallel()

	proc := NewProcessor(config.MediaConfig{})
	renditions, err := proc.Render(encodePNG(t, 1200, 900), true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(renditions) != 3 {
		t.Fatalf("got %d renditions, want 3", len(renditions))
	}
	avifRendition := renditions[2]
	if avifRendition.Kind != enums.VariantKindAVIF {
		t.Fatalf("third rendition kind = %s", avifRendition.Kind)
	}
	if avifRendition.ContentType != "image/avif" {
		t.Errorf("avif content type = %q", avifRendition.ContentType)
	}
	if avifRendition.Width != renditions[1].Width || avifRendition.Height != renditions[1].Height {
		t.Errorf("avif dimensions %dx%d differ from large %dx%d",
			avifRendition.Width, avifRendition.Height, renditions[1].Width, renditions[1].Height)
	}
	if len(avifRendition.Data) == 0 {
		t.Error("avif rendition is empty")
	}
}

func TestRenderRejectsUndecodableBytes(t *testing.T) {
	t.Parallel()

	proc := NewProcessor(config.MediaConfig{})
	_, err := proc.Render(strings.NewReader("not an image"), false)
	if err == nil {
		t.Fatal("expected decode error")
	}
}
