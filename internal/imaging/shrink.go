// Package imaging prepares catch photos for the vision model.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path"
	"strings"

	// Decoders for the formats browsers upload.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxLongEdge is the longest edge the model accepts without
	// resizing the image on its side.
	DefaultMaxLongEdge = 1568
	// DefaultQuality is the JPEG quality used for re-encoding.
	DefaultQuality = 85
	// MaxPixels caps width*height of any image that is decoded in full.
	MaxPixels = 50_000_000
)

// ErrImageTooLarge is returned for images whose header declares more than
// MaxPixels pixels.
var ErrImageTooLarge = errors.New("image exceeds maximum pixel count")

// Shrink decodes an image, scales it so its longer edge is at most maxLongEdge
// (preserving aspect ratio, never upscaling) and re-encodes it as JPEG.
// The input slice is not modified.
func Shrink(data []byte, maxLongEdge, quality int) ([]byte, error) {
	if maxLongEdge <= 0 {
		return nil, fmt.Errorf("maxLongEdge must be positive, got %d", maxLongEdge)
	}
	if _, _, err := CheckedDimensions(data); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxLongEdge)

	// Always draw onto an opaque RGBA canvas; JPEG has no alpha and paletted
	// sources encode poorly.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions returns the width and height of an encoded image without
// decoding its pixels.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// CheckedDimensions is Dimensions plus the MaxPixels cap. Only the header is
// read, so oversized images are rejected before any pixel buffer exists.
func CheckedDimensions(data []byte) (int, int, error) {
	w, h, err := Dimensions(data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if int64(w)*int64(h) > MaxPixels {
		return 0, 0, fmt.Errorf("%dx%d: %w", w, h, ErrImageTooLarge)
	}
	return w, h, nil
}

// fitWithin returns the target size for a w×h image bounded by maxEdge.
func fitWithin(w, h, maxEdge int) (int, int) {
	long := max(w, h)
	if long <= maxEdge {
		return w, h
	}
	scale := float64(maxEdge) / float64(long)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	// Rounding must not push the long edge past the bound.
	if w >= h {
		nw = maxEdge
	} else {
		nh = maxEdge
	}
	return nw, nh
}

// MediaTypeForKey guesses a media type from the storage key's extension.
// It does not inspect the content.
func MediaTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
