package pipeline

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// UnsupportedColorTokens lists value substrings the rasterizer cannot paint.
// Matching is case-insensitive and substring-based, so it errs toward removal.
var UnsupportedColorTokens = []string{
	"oklch(",
	"oklab(",
	"lab(",
	"lch(",
	"hwb(",
	"color(",
	"color-mix(",
	"light-dark(",
	"var(--",
}

// StyleSanitizer strips inline style declarations the rasterizer cannot represent.
type StyleSanitizer struct {
	// Deny holds value substrings that disqualify a declaration.
	// Nil means UnsupportedColorTokens.
	Deny []string

	// AllowProperties, when non-empty, also drops any property not listed.
	AllowProperties []string
}

// SanitizeStyles applies the default sanitizer to every descendant of sel.
func SanitizeStyles(sel *goquery.Selection) {
	(&StyleSanitizer{}).Sanitize(sel)
}

// Sanitize mutates the style attribute of every descendant element of sel.
// The root elements of sel are left alone. Safe on empty selections.
func (s *StyleSanitizer) Sanitize(sel *goquery.Selection) {
	if sel == nil || sel.Length() == 0 {
		return
	}
	sel.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		raw, _ := el.Attr("style")
		cleaned, changed := s.CleanStyle(raw)
		if !changed {
			return
		}
		if cleaned == "" {
			el.RemoveAttr("style")
			return
		}
		el.SetAttr("style", cleaned)
	})
}

// CleanStyle filters one inline style value.
// Returns the rebuilt value and whether anything was dropped.
// An unparseable value that contains a denied token is dropped whole.
func (s *StyleSanitizer) CleanStyle(style string) (string, bool) {
	if strings.TrimSpace(style) == "" {
		return style, false
	}

	decls, err := parseInlineStyle(style)
	if err != nil {
		if s.denied(style) {
			return "", true
		}
		return style, false
	}

	kept := make([]*css.Declaration, 0, len(decls))
	for _, d := range decls {
		if s.denied(d.Value) || !s.allowed(d.Property) {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) == len(decls) {
		return style, false
	}

	parts := make([]string, len(kept))
	for i, d := range kept {
		parts[i] = d.String()
	}
	return strings.Join(parts, " "), true
}

func (s *StyleSanitizer) denied(value string) bool {
	deny := s.Deny
	if deny == nil {
		deny = UnsupportedColorTokens
	}
	lower := strings.ToLower(value)
	for _, token := range deny {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func (s *StyleSanitizer) allowed(property string) bool {
	if len(s.AllowProperties) == 0 {
		return true
	}
	property = strings.ToLower(strings.TrimSpace(property))
	for _, p := range s.AllowProperties {
		if strings.EqualFold(p, property) {
			return true
		}
	}
	return false
}

// parseInlineStyle parses a style attribute into declarations.
// douceur only closes a declaration on ';' or '}', so a final one needs a terminator.
func parseInlineStyle(style string) ([]*css.Declaration, error) {
	trimmed := strings.TrimSpace(style)
	if !strings.HasSuffix(trimmed, ";") {
		trimmed += ";"
	}
	return parser.ParseDeclarations(trimmed)
}
