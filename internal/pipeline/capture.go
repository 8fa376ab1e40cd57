package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sentinel errors for capture page construction.
var (
	ErrCaptureTemplate = errors.New("capture template rendering failed")
	ErrCaptureTarget   = errors.New("capture target is empty")
)

// CaptureRootAttr marks the cloned element inside the capture page.
// The rasterizer measures this element to size the screenshot.
const CaptureRootAttr = "data-capture-root"

// DefaultMathStylesheetURL provides glyph styles for typeset formulas.
const DefaultMathStylesheetURL = "https://cdn.jsdelivr.net/npm/katex@0.16.21/dist/katex.min.css"

// positionProperties are dropped from the capture root so it paints at the origin.
var positionProperties = map[string]bool{
	"position": true,
	"left":     true,
	"top":      true,
}

// CaptureConfig controls how a live element is cloned for rasterization.
type CaptureConfig struct {
	IgnoreTags        []string // elements excluded from capture (e.g. script, style)
	UseCORS           bool     // request remote images anonymously
	MathStylesheetURL string   // external stylesheet for math glyphs, empty to skip
	SafeCSS           string   // replacement stylesheet
}

// CaptureData holds the values rendered into the capture page template.
type CaptureData struct {
	MathStylesheetURL string
	SafeCSS           template.CSS
	Body              template.HTML
}

// CaptureBuilder builds standalone capture pages from live elements.
type CaptureBuilder struct {
	tmpl *template.Template
}

// NewCaptureBuilder parses the capture page template.
func NewCaptureBuilder(templateContent string) (*CaptureBuilder, error) {
	tmpl, err := template.New("capture").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("parsing capture template: %w", err)
	}
	return &CaptureBuilder{tmpl: tmpl}, nil
}

// Build clones the first element of sel and renders it into a capture page.
// The live element is never mutated: every change happens on the clone.
//
// On the clone:
//   - ignored tags, <style> and stylesheet <link> elements are removed
//   - the root loses its off-canvas position
//   - remote images get crossorigin="anonymous" when UseCORS is set
//
// The page head carries only the math stylesheet link and SafeCSS.
func (b *CaptureBuilder) Build(ctx context.Context, sel *goquery.Selection, cfg CaptureConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sel == nil || sel.Length() == 0 {
		return "", ErrCaptureTarget
	}

	clone := sel.First().Clone()
	for _, tag := range cfg.IgnoreTags {
		clone.Find(tag).Remove()
	}
	clone.Find(`style, link[rel~="stylesheet"]`).Remove()

	resetPosition(clone)
	clone.SetAttr(CaptureRootAttr, "")

	if cfg.UseCORS {
		clone.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
			if src, _ := img.Attr("src"); isRemoteURL(src) {
				img.SetAttr("crossorigin", "anonymous")
			}
		})
	}

	body, err := goquery.OuterHtml(clone)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureTemplate, err)
	}

	data := CaptureData{
		MathStylesheetURL: cfg.MathStylesheetURL,
		SafeCSS:           template.CSS(sanitizeCSS(cfg.SafeCSS)), // #nosec G203 -- embedded or operator-supplied stylesheet
		Body:              template.HTML(body),                    // #nosec G203 -- produced by the renderer without raw HTML
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureTemplate, err)
	}
	return buf.String(), nil
}

// resetPosition removes position, left and top from the element's inline style.
func resetPosition(el *goquery.Selection) {
	raw, ok := el.Attr("style")
	if !ok {
		return
	}
	decls, err := parseInlineStyle(raw)
	if err != nil {
		return
	}
	var parts []string
	for _, d := range decls {
		if positionProperties[strings.ToLower(d.Property)] {
			continue
		}
		parts = append(parts, d.String())
	}
	el.SetAttr("style", strings.Join(parts, " "))
}

// isRemoteURL reports whether src is fetched over the network.
func isRemoteURL(src string) bool {
	return strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "//")
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
