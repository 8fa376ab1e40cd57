package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrRender indicates markdown to HTML rendering failed.
var ErrRender = errors.New("markdown rendering failed")

// Inline styles applied to rendered elements.
// They live on the elements so the fragment looks the same in any host page.
const (
	ImageStyle      = "max-width:100%;height:auto;border-radius:4px"
	LinkStyle       = "color:#0066cc;text-decoration:underline"
	TableStyle      = "width:100%;border-collapse:collapse;margin:16px 0;border:1px solid #e5e7eb"
	HeaderCellStyle = "padding:8px 12px;background-color:#f9fafb;border:1px solid #e5e7eb;font-weight:bold;text-align:left"
	DataCellStyle   = "padding:8px 12px;border:1px solid #e5e7eb"
	InlineCodeStyle = "background-color:#f3f4f6;padding:2px 4px;border-radius:3px;font-size:0.9em;font-family:monospace"
	CodeBlockStyle  = "background-color:#f8f9fa;padding:16px;border-radius:6px;overflow:auto;font-size:14px;font-family:monospace;margin:16px 0"
	BlockquoteStyle = "border-left:4px solid #cccccc;padding-left:16px;margin:16px 0;font-style:italic;color:#666666"
)

// Link attributes: rendered links open in a new browsing context.
const (
	LinkTarget = "_blank"
	LinkRel    = "noopener noreferrer"
)

// Renderer abstracts Markdown to HTML fragment conversion.
type Renderer interface {
	ToHTML(ctx context.Context, content string) (string, error)
}

// GoldmarkRenderer converts Markdown to a styled HTML fragment using goldmark (pure Go).
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewGoldmarkRenderer creates a GoldmarkRenderer with GFM, math typesetting,
// highlighted code panels, and fixed inline styling.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // Tables, strikethrough, autolinks, task lists
			Math,          // $...$ and $$...$$ to MathML
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false), // inline styles survive stylesheet removal
					chromahtml.PreventSurroundingPre(true),
				),
				highlighting.WithWrapperRenderer(writeCodePanel),
			),
		),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(&styleTransformer{}, 100)),
		),
		goldmark.WithRendererOptions(
			// Indented code blocks share the fenced panel.
			renderer.WithNodeRenderers(util.Prioritized(newCodeBlockRenderer(), 100)),
			// Note: WithUnsafe() intentionally NOT used; raw HTML is dropped.
		),
	)
	return &GoldmarkRenderer{md: md}
}

// ToHTML converts Markdown content to an HTML fragment.
// Supports context cancellation via goroutine + select pattern since
// Goldmark doesn't natively support context.
func (r *GoldmarkRenderer) ToHTML(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrRender, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.html, res.err
	}
}

// writeCodePanel wraps fenced code, highlighted or not, in the styled panel.
func writeCodePanel(w util.BufWriter, _ highlighting.CodeBlockContext, entering bool) {
	if entering {
		_, _ = w.WriteString(`<pre style="` + CodeBlockStyle + `"><code>`)
		return
	}
	_, _ = w.WriteString("</code></pre>\n")
}

// styleTransformer attaches inline styles to nodes whose default renderers
// emit attributes.
type styleTransformer struct{}

func (t *styleTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindImage:
			n.SetAttributeString("style", []byte(ImageStyle))
		case ast.KindLink, ast.KindAutoLink:
			n.SetAttributeString("target", []byte(LinkTarget))
			n.SetAttributeString("rel", []byte(LinkRel))
			n.SetAttributeString("style", []byte(LinkStyle))
		case ast.KindCodeSpan:
			n.SetAttributeString("style", []byte(InlineCodeStyle))
		case ast.KindBlockquote:
			n.SetAttributeString("style", []byte(BlockquoteStyle))
		case east.KindTable:
			n.SetAttributeString("style", []byte(TableStyle))
		case east.KindTableCell:
			if n.Parent() != nil && n.Parent().Kind() == east.KindTableHeader {
				n.SetAttributeString("style", []byte(HeaderCellStyle))
			} else {
				n.SetAttributeString("style", []byte(DataCellStyle))
			}
		}
		return ast.WalkContinue, nil
	})
}

// codeBlockRenderer renders indented code blocks as styled panels.
type codeBlockRenderer struct {
	html.Config
}

func newCodeBlockRenderer() *codeBlockRenderer {
	return &codeBlockRenderer{Config: html.NewConfig()}
}

// SetOption receives renderer options so escaping follows the main renderer.
func (r *codeBlockRenderer) SetOption(name renderer.OptionName, value any) {
	r.Config.SetOption(name, value)
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
}

func (r *codeBlockRenderer) renderCodeBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		writeCodePanel(w, nil, false)
		return ast.WalkContinue, nil
	}
	writeCodePanel(w, nil, true)
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.Writer.RawWrite(w, line.Value(source))
	}
	return ast.WalkContinue, nil
}
