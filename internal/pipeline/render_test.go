package pipeline

// Notes:
// - Tests GoldmarkRenderer through ToHTML with substring assertions; exact
//   chroma token markup is not asserted since it depends on the lexer
// - Determinism is checked by rendering the same input twice
// - Cancellation is only tested before start; mid-conversion cancellation
//   depends on goroutine scheduling and is not deterministic

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Compile-time interface check.
var _ Renderer = (*GoldmarkRenderer)(nil)

// ---------------------------------------------------------------------------
// TestGoldmarkRenderer_ToHTML - Element Styling
// ---------------------------------------------------------------------------

func TestGoldmarkRenderer_ToHTML(t *testing.T) {
	t.Parallel()

	r := NewGoldmarkRenderer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantExcludes []string
	}{
		{
			name:  "image gets capped width",
			input: "![logo](logo.png)",
			wantContains: []string{
				`<img src="logo.png" alt="logo"`,
				`style="` + ImageStyle + `"`,
			},
		},
		{
			name:  "link opens in new context",
			input: "[site](https://example.com)",
			wantContains: []string{
				`href="https://example.com"`,
				`target="_blank"`,
				`rel="noopener noreferrer"`,
				`style="` + LinkStyle + `"`,
			},
		},
		{
			name:  "autolink styled like links",
			input: "see https://example.com now",
			wantContains: []string{
				`target="_blank"`,
				`style="` + LinkStyle + `"`,
			},
		},
		{
			name:  "table header and data cells",
			input: "| A | B |\n|---|---|\n| 1 | 2 |",
			wantContains: []string{
				`<table style="` + TableStyle + `">`,
				`<th style="` + HeaderCellStyle + `">A</th>`,
				`<td style="` + DataCellStyle + `">1</td>`,
			},
		},
		{
			name:  "inline code chip",
			input: "use `go test` here",
			wantContains: []string{
				`<code style="` + InlineCodeStyle + `">go test</code>`,
			},
		},
		{
			name:  "fenced code without language",
			input: "```\n<b>bold</b>\n```",
			wantContains: []string{
				`<pre style="` + CodeBlockStyle + `"><code>`,
				`&lt;b&gt;bold&lt;/b&gt;`,
				`</code></pre>`,
			},
		},
		{
			name:  "fenced code with language is highlighted inline",
			input: "```go\nfunc main() {}\n```",
			wantContains: []string{
				`<pre style="` + CodeBlockStyle + `"><code>`,
				`<span style="`,
			},
			wantExcludes: []string{`class="chroma"`},
		},
		{
			name:  "indented code uses same panel",
			input: "para\n\n    x := 1\n",
			wantContains: []string{
				`<pre style="` + CodeBlockStyle + `"><code>x := 1`,
			},
		},
		{
			name:  "blockquote accent",
			input: "> quoted",
			wantContains: []string{
				`<blockquote style="` + BlockquoteStyle + `">`,
			},
		},
		{
			name:         "math typeset to MathML",
			input:        "$$x^2$$",
			wantContains: []string{`<math`},
			wantExcludes: []string{`$$`},
		},
		{
			name:         "raw HTML dropped",
			input:        "<script>alert(1)</script>",
			wantExcludes: []string{`<script>`},
		},
		{
			name:         "output is a fragment",
			input:        "# Title",
			wantContains: []string{`<h1>Title</h1>`},
			wantExcludes: []string{`<html>`, `<body>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := r.ToHTML(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToHTML() unexpected error: %v", err)
			}

			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML() missing %q\ngot: %s", want, got)
				}
			}
			for _, exclude := range tt.wantExcludes {
				if strings.Contains(got, exclude) {
					t.Errorf("ToHTML() should not contain %q\ngot: %s", exclude, got)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestGoldmarkRenderer_ToHTML - Determinism
// ---------------------------------------------------------------------------

func TestGoldmarkRenderer_ToHTML_Deterministic(t *testing.T) {
	t.Parallel()

	input := "# Report\n\n| a | b |\n|:-:|---|\n| 1 | 2 |\n\n```python\nprint('x')\n```\n\n$$y=mx+b$$\n"

	first, err := NewGoldmarkRenderer().ToHTML(context.Background(), input)
	if err != nil {
		t.Fatalf("first ToHTML() error: %v", err)
	}

	r := NewGoldmarkRenderer()
	for i := 0; i < 3; i++ {
		got, err := r.ToHTML(context.Background(), input)
		if err != nil {
			t.Fatalf("ToHTML() run %d error: %v", i, err)
		}
		if got != first {
			t.Fatalf("ToHTML() run %d differs from first render", i)
		}
	}
}

// ---------------------------------------------------------------------------
// TestGoldmarkRenderer_ToHTML - Context Handling
// ---------------------------------------------------------------------------

func TestGoldmarkRenderer_ToHTML_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoldmarkRenderer().ToHTML(ctx, "# Title")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ToHTML() error = %v, want context.Canceled", err)
	}
}
