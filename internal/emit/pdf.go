package emit

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/jung-kurt/gofpdf"
)

// Pagination geometry on an A4 portrait sheet, in millimetres. The stride
// between pages is 2mm shorter than the 297mm sheet.
const (
	DefaultPageWidth  = 210.0
	DefaultPageHeight = 295.0
)

// pageEpsilon absorbs float noise so an image of exactly N page heights
// yields N pages.
const pageEpsilon = 1e-9

const captureImageName = "capture"

// PDFOptions controls pagination. Zero values use the A4 defaults.
type PDFOptions struct {
	PageWidth  float64 // image width in mm
	PageHeight float64 // vertical stride between pages in mm
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.PageWidth <= 0 {
		o.PageWidth = DefaultPageWidth
	}
	if o.PageHeight <= 0 {
		o.PageHeight = DefaultPageHeight
	}
	return o
}

// PDF paginates img across A4 pages. The image is scaled to the page width
// and drawn whole on every page, shifted up by one page height per page.
func PDF(img image.Image, opts PDFOptions) ([]byte, error) {
	if isEmpty(img) {
		return nil, fmt.Errorf("%w: %v", ErrPDF, ErrEmptyImage)
	}
	opts = opts.withDefaults()

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, toNRGBA(img)); err != nil {
		return nil, fmt.Errorf("%w: encoding page image: %v", ErrPDF, err)
	}

	b := img.Bounds()
	imgWidth := opts.PageWidth
	imgHeight := float64(b.Dy()) * imgWidth / float64(b.Dx())

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG", AllowNegativePosition: true}
	pdf.RegisterImageOptionsReader(captureImageName, imgOpts, &encoded)

	for _, y := range PageOffsets(imgHeight, opts.PageHeight) {
		pdf.AddPage()
		pdf.ImageOptions(captureImageName, 0, y, imgWidth, imgHeight, false, imgOpts, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDF, err)
	}
	return out.Bytes(), nil
}

// PageOffsets returns the vertical draw offset for each page. There is
// always at least one page; content spanning exactly N page heights gets N.
func PageOffsets(imgHeight, pageHeight float64) []float64 {
	if pageHeight <= 0 || imgHeight <= 0 {
		return []float64{0}
	}
	n := int(math.Ceil(imgHeight/pageHeight - pageEpsilon))
	if n < 1 {
		n = 1
	}
	offsets := make([]float64, n)
	for k := range offsets {
		offsets[k] = -float64(k) * pageHeight
	}
	return offsets
}

// PageCount returns how many pages PDF produces for img.
func PageCount(img image.Image, opts PDFOptions) int {
	if isEmpty(img) {
		return 0
	}
	opts = opts.withDefaults()
	b := img.Bounds()
	return len(PageOffsets(float64(b.Dy())*opts.PageWidth/float64(b.Dx()), opts.PageHeight))
}
