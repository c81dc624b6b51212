// Package media downloads chat images and turns them into sticker-ready PNGs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	// StickerSide is the length of the longer side of a static sticker.
	StickerSide = 512
	// MaxStickerBytes is the upload limit for a static sticker file.
	MaxStickerBytes = 512 * 1024
)

var (
	// ErrTooLarge is returned when input or output exceeds a size limit.
	ErrTooLarge = errors.New("media: image too large")
	// ErrEmpty is returned for zero-length input.
	ErrEmpty = errors.New("media: empty image")
)

// Normalizer fits images into a StickerSide square and encodes them as PNG.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes raw (PNG, JPEG, GIF, BMP, TIFF or WebP), scales it so the longer
// side is exactly StickerSide keeping the aspect ratio, and returns PNG bytes.
func (n *Normalizer) Normalize(_ context.Context, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmpty
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("media: decode: %w", err)
	}
	img = fit(img)

	out, err := encodePNG(img, png.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if len(out) > MaxStickerBytes {
		if out, err = encodePNG(img, png.BestCompression); err != nil {
			return nil, err
		}
	}
	if len(out) > MaxStickerBytes {
		return nil, fmt.Errorf("%w: %d bytes after encoding", ErrTooLarge, len(out))
	}
	return out, nil
}

func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		if b.Dx() == StickerSide {
			return img
		}
		return imaging.Resize(img, StickerSide, 0, imaging.Lanczos)
	}
	if b.Dy() == StickerSide {
		return img
	}
	return imaging.Resize(img, 0, StickerSide, imaging.Lanczos)
}

func encodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, fmt.Errorf("media: encode: %w", err)
	}
	return buf.Bytes(), nil
}
