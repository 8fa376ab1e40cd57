package dom

import (
	"fmt"
	"strconv"
	"strings"
)

// Forced container colors. Custom property overrides use the same values so
// inherited var(--color) and var(--background) resolve to plain hex.
const (
	ContainerColor      = "#000000"
	ContainerBackground = "#ffffff"
)

// ContainerStyle describes the inline styles forced onto an off-screen
// container and its inner wrapper. Sizes are in CSS pixels.
type ContainerStyle struct {
	Width         int
	Padding       int
	FontFamily    string
	FontSize      int
	LineHeight    float64
	Border        string // empty for none
	BorderRadius  int
	InnerMaxWidth int
}

// ScreenshotContainerStyle is the framed layout used for image exports of
// generated content.
func ScreenshotContainerStyle() ContainerStyle {
	s := baseContainerStyle()
	s.Border = "1px solid #dddddd"
	s.BorderRadius = 8
	s.InnerMaxWidth = 760
	return s
}

// PDFContainerStyle is the borderless layout used for PDF exports.
func PDFContainerStyle() ContainerStyle {
	s := baseContainerStyle()
	s.InnerMaxWidth = 800
	return s
}

func baseContainerStyle() ContainerStyle {
	return ContainerStyle{
		Width:      800,
		Padding:    20,
		FontFamily: "Arial, sans-serif",
		FontSize:   14,
		LineHeight: 1.6,
	}
}

// OuterCSS renders the container's inline style. The container sits off
// canvas so it never paints into the visible page.
func (s ContainerStyle) OuterCSS() string {
	var b strings.Builder
	b.WriteString("position: absolute; left: -9999px; top: -9999px; ")
	fmt.Fprintf(&b, "width: %dpx; padding: %dpx; ", s.Width, s.Padding)
	fmt.Fprintf(&b, "font-family: %s; font-size: %dpx; line-height: %s; ", s.FontFamily, s.FontSize, formatFloat(s.LineHeight))
	fmt.Fprintf(&b, "color: %s; background-color: %s; ", ContainerColor, ContainerBackground)
	if s.Border != "" {
		fmt.Fprintf(&b, "border: %s; border-radius: %dpx; ", s.Border, s.BorderRadius)
	}
	fmt.Fprintf(&b, "--color: %s; --background: %s;", ContainerColor, ContainerBackground)
	return b.String()
}

// InnerCSS renders the inline style of the wrapper around the fragment.
func (s ContainerStyle) InnerCSS() string {
	return fmt.Sprintf("max-width: %dpx; padding: %dpx; font-family: %s; line-height: %s; color: %s;",
		s.InnerMaxWidth, s.Padding, s.FontFamily, formatFloat(s.LineHeight), ContainerColor)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
