package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // decoders
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ThumbnailSize is the longest edge of generated thumbnails.
const ThumbnailSize = 256

// maxPixels refuses to decode images that would blow up memory.
const maxPixels = 40_000_000

// ImageThumbnailer renders JPEG thumbnails with golang.org/x/image/draw.
type ImageThumbnailer struct {
	Quality int
}

// NewThumbnailer creates a thumbnailer with JPEG quality 85.
func NewThumbnailer() *ImageThumbnailer {
	return &ImageThumbnailer{Quality: 85}
}

// Thumbnail decodes the image in r and scales it to fit a size×size box,
// keeping the aspect ratio. Smaller images are re-encoded unscaled.
func (t *ImageThumbnailer) Thumbnail(r io.Reader, size int) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	nw, nh := w, h
	if w > size || h > size {
		if w >= h {
			nw, nh = size, max(1, h*size/w)
		} else {
			nw, nh = max(1, w*size/h), size
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
