package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	"github.com/4245877/liteforest-backend/pkg/config"
	"github.com/4245877/liteforest-backend/pkg/enums"
)

// Rendition is one encoded variant ready for upload.
type Rendition struct {
	Kind        enums.VariantKind
	Width       int
	Height      int
	ContentType string
	Data        []byte
}

// Processor turns a source image stream into the variant set. Stateless and
// safe for concurrent use.
type Processor struct {
	thumbBound  int
	largeBound  int
	webpQuality int
	avifQuality int
	avifSpeed   int
}

func NewProcessor(cfg config.MediaConfig) *Processor {
	p := &Processor{
		thumbBound:  cfg.ThumbBound,
		largeBound:  cfg.LargeBound,
		webpQuality: cfg.WebPQuality,
		avifQuality: cfg.AVIFQuality,
		avifSpeed:   cfg.AVIFSpeed,
	}
	if p.thumbBound <= 0 {
		p.thumbBound = 240
	}
	if p.largeBound <= 0 {
		p.largeBound = 800
	}
	if p.webpQuality <= 0 {
		p.webpQuality = 80
	}
	if p.avifQuality <= 0 {
		p.avifQuality = 50
	}
	if p.avifSpeed <= 0 {
		p.avifSpeed = 6
	}
	return p
}

// Render decodes the source and produces the thumb and large webp variants,
// plus an avif large variant when enabled. A decode failure means the bytes
// are not a usable image and retrying cannot help.
func (p *Processor) Render(r io.Reader, enableAVIF bool) ([]Rendition, error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding source image: %w", err)
	}
	if src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("decoded image is empty")
	}

	thumb := fitInside(src, p.thumbBound)
	large := fitInside(src, p.largeBound)

	renditions := make([]Rendition, 0, 3)

	thumbData, err := p.encodeWebP(thumb)
	if err != nil {
		return nil, fmt.Errorf("encoding thumb webp: %w", err)
	}
	renditions = append(renditions, Rendition{
		Kind:        enums.VariantKindThumb,
		Width:       thumb.Bounds().Dx(),
		Height:      thumb.Bounds().Dy(),
		ContentType: "image/webp",
		Data:        thumbData,
	})

	largeData, err := p.encodeWebP(large)
	if err != nil {
		return nil, fmt.Errorf("encoding large webp: %w", err)
	}
	renditions = append(renditions, Rendition{
		Kind:        enums.VariantKindLarge,
		Width:       large.Bounds().Dx(),
		Height:      large.Bounds().Dy(),
		ContentType: "image/webp",
		Data:        largeData,
	})

	if enableAVIF {
		avifData, err := p.encodeAVIF(large)
		if err != nil {
			return nil, fmt.Errorf("encoding large avif: %w", err)
		}
		renditions = append(renditions, Rendition{
			Kind:        enums.VariantKindAVIF,
			Width:       large.Bounds().Dx(),
			Height:      large.Bounds().Dy(),
			ContentType: "image/avif",
			Data:        avifData,
		})
	}

	return renditions, nil
}

// fitInside scales the image down so neither dimension exceeds bound,
// preserving aspect ratio. Sources already within the bound pass through
// at their original size.
func fitInside(src image.Image, bound int) image.Image {
	if src.Bounds().Dx() <= bound && src.Bounds().Dy() <= bound {
		return src
	}
	return imaging.Fit(src, bound, bound, imaging.Lanczos)
}

func (p *Processor) encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: p.webpQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Processor) encodeAVIF(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := avif.Encode(&buf, img, avif.Options{Quality: p.avifQuality, Speed: p.avifSpeed}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
