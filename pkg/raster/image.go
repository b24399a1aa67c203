package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// ExactPNG returns data as a PNG of exactly width × height. A capture of the
// right size is returned unchanged; anything else, typically a 2x HiDPI
// screenshot, is resampled. It reports whether resampling happened.
func ExactPNG(data []byte, width, height int) ([]byte, bool, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode png: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return data, false, nil
	}
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, false, fmt.Errorf("empty capture")
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, false, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), true, nil
}

// Size returns the dimensions of a PNG without decoding the pixels.
func Size(data []byte) (width, height int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
