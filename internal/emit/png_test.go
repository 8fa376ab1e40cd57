package emit

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"
)

func TestPNG_Lossless(t *testing.T) {
	t.Parallel()

	src := solidImage(40, 30)
	out, err := PNG(src)
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", decoded.Bounds(), src.Bounds())
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			r1, g1, b1, a1 := src.At(x, y).RGBA()
			r2, g2, b2, a2 := decoded.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) changed", x, y)
			}
		}
	}
}

func TestPNG_EmptyImage(t *testing.T) {
	t.Parallel()

	if _, err := PNG(image.NewNRGBA(image.Rect(0, 0, 5, 0))); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("PNG() error = %v, want ErrEmptyImage", err)
	}
}

func TestMarkdown_Unchanged(t *testing.T) {
	t.Parallel()

	in := "# T\n\n\\(x\\) ```\n"
	if got := string(Markdown(in)); got != in {
		t.Errorf("Markdown() = %q, want %q", got, in)
	}
}
