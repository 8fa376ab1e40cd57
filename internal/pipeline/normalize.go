package pipeline

import (
	"context"
	"regexp"
	"strings"
)

// MathDelimiter is the marker the math extension recognizes for both
// display and inline formulas.
const MathDelimiter = "$$"

// mathDelimiterReplacer rewrites bracket and parenthesis delimiters.
// Double-escaped variants come first so `\\[` never degrades to `\$$`.
var mathDelimiterReplacer = strings.NewReplacer(
	`\\[`, MathDelimiter,
	`\\]`, MathDelimiter,
	`\\(`, MathDelimiter,
	`\\)`, MathDelimiter,
	`\[`, MathDelimiter,
	`\]`, MathDelimiter,
	`\(`, MathDelimiter,
	`\)`, MathDelimiter,
)

// Precompiled fence patterns, applied in order.
var (
	markdownFenceOpen = regexp.MustCompile("(?m)^```markdown\n")
	textFenceOpen     = regexp.MustCompile("(?m)^```text\n")
	bareFenceLine     = regexp.MustCompile("(?m)^```\n")
	closingFence      = regexp.MustCompile("(?m)\n```$")
)

// Normalizer defines the contract for markdown normalization.
type Normalizer interface {
	Normalize(ctx context.Context, content string) string
}

// DelimiterNormalizer rewrites delimiter variants into the renderer's canonical form.
type DelimiterNormalizer struct{}

// Normalize applies all rewrites. Returns content unchanged if ctx is done.
func (n *DelimiterNormalizer) Normalize(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}
	return Normalize(content)
}

// Normalize rewrites math delimiters to MathDelimiter and strips wrapper fences.
//
// Delimiter rewriting is idempotent. Fence stripping is lossy: bare fences of
// real code blocks in the content are removed as well.
func Normalize(content string) string {
	content = NormalizeMathDelimiters(content)
	return stripWrapperFences(content)
}

// NormalizeMathDelimiters rewrites \[ \] \( \) and their double-escaped forms.
func NormalizeMathDelimiters(content string) string {
	return mathDelimiterReplacer.Replace(content)
}

// stripWrapperFences removes ```markdown / ```text openers, bare fence lines,
// and fences that close a line.
func stripWrapperFences(content string) string {
	content = markdownFenceOpen.ReplaceAllString(content, "")
	content = textFenceOpen.ReplaceAllString(content, "")
	content = bareFenceLine.ReplaceAllString(content, "")
	return closingFence.ReplaceAllString(content, "")
}
