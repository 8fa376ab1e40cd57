package mdexport

import (
	"fmt"
	"strings"
	"time"

	"github.com/alnah/go-mdexport/internal/dom"
)

// Format identifies an export target.
type Format string

// Supported export formats. The value doubles as the file extension.
const (
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
	FormatImage    Format = "png"
	FormatWord     Format = "docx"
)

// Formats lists every supported format in menu order.
var Formats = []Format{FormatMarkdown, FormatPDF, FormatImage, FormatWord}

var mimeTypes = map[Format]string{
	FormatMarkdown: "text/markdown",
	FormatPDF:      "application/pdf",
	FormatImage:    "image/png",
	FormatWord:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var formatAliases = map[string]Format{
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
	"pdf":      FormatPDF,
	"png":      FormatImage,
	"image":    FormatImage,
	"docx":     FormatWord,
	"word":     FormatWord,
}

// ParseFormat resolves a format name or alias, case-insensitively.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (must be md, pdf, png or docx)", ErrInvalidFormat, s)
}

// Extension returns the file extension without a leading dot.
func (f Format) Extension() string {
	return string(f)
}

// MIMEType returns the content type of artifacts in this format.
func (f Format) MIMEType() string {
	return mimeTypes[f]
}

// rasterized reports whether the format is captured from rendered HTML.
func (f Format) rasterized() bool {
	return f == FormatPDF || f == FormatImage
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// Artifact is a fully built export held in memory.
type Artifact struct {
	Filename string
	MIMEType string
	Format   Format
	Data     []byte
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int {
	return len(a.Data)
}

func newArtifact(format Format, filename string, data []byte) *Artifact {
	return &Artifact{
		Filename: filename,
		MIMEType: format.MIMEType(),
		Format:   format,
		Data:     data,
	}
}

// Rasterization defaults.
const (
	DefaultScale      = 2.0
	DefaultBackground = "#ffffff"
	MaxScale          = 4.0

	// DefaultSettleDelay is the pause between creating a screenshot container
	// and capturing it.
	DefaultSettleDelay = 100 * time.Millisecond

	// DefaultTimeout bounds a single browser load and capture.
	DefaultTimeout = 30 * time.Second
)

// DefaultMathStylesheetURL provides glyph styles for typeset formulas.
const DefaultMathStylesheetURL = "https://cdn.jsdelivr.net/npm/katex@0.16.21/dist/katex.min.css"

// RasterConfig controls how an element is captured into an image.
type RasterConfig struct {
	Scale             float64  // device pixels per CSS pixel
	UseCORS           bool     // load remote images with crossorigin="anonymous"
	AllowTaint        bool     // accept captures whose cross-origin images failed to load
	Background        string   // hex color painted behind transparent areas
	IgnoreTags        []string // elements dropped from the capture
	MathStylesheetURL string   // empty to skip
	SafeStyle         string   // replacement stylesheet; empty uses the embedded one
}

// DefaultRasterConfig returns the capture settings used when none are given.
func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		Scale:             DefaultScale,
		UseCORS:           true,
		AllowTaint:        false,
		Background:        DefaultBackground,
		IgnoreTags:        []string{"script", "style"},
		MathStylesheetURL: DefaultMathStylesheetURL,
	}
}

// Validate checks scale and background.
func (c RasterConfig) Validate() error {
	if c.Scale <= 0 || c.Scale > MaxScale {
		return fmt.Errorf("%w: scale %.2f must be in (0, %.0f]", ErrInvalidRasterConfig, c.Scale, MaxScale)
	}
	if _, err := parseHexColor(c.Background); err != nil {
		return fmt.Errorf("%w: background: %v", ErrInvalidRasterConfig, err)
	}
	return nil
}

// ContainerStyle describes an off-screen container's forced layout.
type ContainerStyle = dom.ContainerStyle

// DefaultPDFContainerStyle is the borderless 800px layout used by ExportPDF.
func DefaultPDFContainerStyle() ContainerStyle {
	return dom.PDFContainerStyle()
}

// DefaultImageContainerStyle is the framed layout used for content images.
func DefaultImageContainerStyle() ContainerStyle {
	return dom.ScreenshotContainerStyle()
}
