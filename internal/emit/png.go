package emit

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// PNG encodes img losslessly with maximum compression.
func PNG(img image.Image) ([]byte, error) {
	if isEmpty(img) {
		return nil, ErrEmptyImage
	}
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPNG, err)
	}
	return buf.Bytes(), nil
}

func isEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0
}

// toNRGBA converts img to 8-bit non-premultiplied RGBA, the only PNG layout
// the PDF writer embeds without error.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
