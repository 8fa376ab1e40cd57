package pipeline

import (
	"bytes"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/wyatt915/treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Math typesetting.
//
// Normalize rewrites every TeX delimiter to $$, so a $$ region inside a
// paragraph is inline math and a $$ region owning whole lines is display
// math. Single $ pairs are inline math only when they cannot be read as
// currency: the opener is followed by a non-space, the closer is preceded
// by a non-space and not followed by a digit. Anything that does not close
// stays literal text.

var (
	KindMathInline = ast.NewNodeKind("MathInline")
	KindMathBlock  = ast.NewNodeKind("MathBlock")
)

var mathDelim = []byte("$$")

var errUnbalancedMath = errors.New("unbalanced braces in math")

// MathInline is a TeX expression inside running text.
type MathInline struct {
	ast.BaseInline
	TeX   []byte
	Delim string
}

func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"TeX": string(n.TeX)}, nil)
}

// MathBlock is a display TeX expression spanning one or more lines.
type MathBlock struct {
	ast.BaseBlock
	closed bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

func (n *MathBlock) IsRaw() bool { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

func (p *mathInlineParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()

	var tex []byte
	var delim string
	var consumed int
	if bytes.HasPrefix(line, mathDelim) {
		end := bytes.Index(line[len(mathDelim):], mathDelim)
		if end < 0 {
			return nil
		}
		tex = line[len(mathDelim) : len(mathDelim)+end]
		delim = string(mathDelim)
		consumed = 2*len(mathDelim) + end
	} else {
		end := closingDollar(line)
		if end < 0 {
			return nil
		}
		tex = line[1:end]
		delim = "$"
		consumed = end + 1
	}
	if len(bytes.TrimSpace(tex)) == 0 {
		return nil
	}

	block.Advance(consumed)
	return &MathInline{TeX: bytes.Clone(tex), Delim: delim}
}

// closingDollar returns the index of the $ closing the single-dollar region
// opened at line[0], or -1.
func closingDollar(line []byte) int {
	if len(line) < 3 || util.IsSpace(line[1]) || line[1] == '$' {
		return -1
	}
	for i := 2; i < len(line); i++ {
		if line[i] != '$' {
			continue
		}
		if line[i-1] == '\\' {
			continue
		}
		// The first unescaped $ decides: a price never closes a region.
		if util.IsSpace(line[i-1]) || (i+1 < len(line) && line[i+1] >= '0' && line[i+1] <= '9') {
			return -1
		}
		return i
	}
	return -1
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (p *mathBlockParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, seg := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pc.BlockIndent() > 3 || !bytes.HasPrefix(line[pos:], mathDelim) {
		return nil, parser.NoChildren
	}
	start := pos + len(mathDelim)
	rest := util.TrimRightSpace(line[start:])
	node := &MathBlock{}

	if end := bytes.Index(rest, mathDelim); end >= 0 {
		// $$...$$ owns the block only when nothing follows the closer.
		if end != len(rest)-len(mathDelim) || len(bytes.TrimSpace(rest[:end])) == 0 {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(seg.Start+start, seg.Start+start+end))
		node.closed = true
		reader.AdvanceToEOL()
		return node, parser.NoChildren
	}

	if !hasClosingLine(reader) {
		return nil, parser.NoChildren
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		node.Lines().Append(text.NewSegment(seg.Start+start, seg.Stop))
	}
	reader.AdvanceToEOL()
	return node, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	n := node.(*MathBlock)
	if n.closed {
		return parser.Close
	}
	line, seg := reader.PeekLine()
	trimmed := util.TrimRightSpace(line)
	if bytes.HasSuffix(trimmed, mathDelim) {
		end := len(trimmed) - len(mathDelim)
		if len(bytes.TrimSpace(trimmed[:end])) > 0 {
			n.Lines().Append(text.NewSegment(seg.Start, seg.Start+end))
		}
		n.closed = true
		reader.AdvanceToEOL()
		return parser.Close
	}
	n.Lines().Append(seg)
	reader.AdvanceToEOL()
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(ast.Node, text.Reader, parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

// hasClosingLine reports whether a later line ends with $$, leaving the
// reader where it was.
func hasClosingLine(reader text.Reader) bool {
	line, seg := reader.Position()
	defer reader.SetPosition(line, seg)
	for {
		reader.AdvanceLine()
		next, _ := reader.PeekLine()
		if next == nil {
			return false
		}
		if bytes.HasSuffix(util.TrimRightSpace(next), mathDelim) {
			return true
		}
	}
}

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathInline, r.renderInline)
	reg.Register(KindMathBlock, r.renderBlock)
}

func (r *mathRenderer) renderInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathInline)
	mml, err := typeset(n.TeX, false)
	if err != nil {
		_, _ = w.Write(util.EscapeHTML([]byte(n.Delim + string(n.TeX) + n.Delim)))
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(mml)
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var tex bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		tex.Write(seg.Value(source))
	}
	mml, err := typeset(tex.Bytes(), true)
	if err != nil {
		_, _ = w.WriteString("<p>")
		_, _ = w.Write(util.EscapeHTML([]byte("$$" + tex.String() + "$$")))
		_, _ = w.WriteString("</p>\n")
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(mml)
	_ = w.WriteByte('\n')
	return ast.WalkSkipChildren, nil
}

// typeset converts TeX to MathML. Malformed input is reported rather than
// rendered so callers can keep the source text.
func typeset(tex []byte, display bool) (string, error) {
	if !balancedBraces(tex) {
		return "", errUnbalancedMath
	}
	src := strings.TrimSpace(string(tex))
	var mml string
	var err error
	if display {
		mml, err = treeblood.DisplayStyle(src, nil)
	} else {
		mml, err = treeblood.InlineStyle(src, nil)
	}
	if err != nil {
		return "", err
	}
	return canonicalMathML(mml), nil
}

func balancedBraces(tex []byte) bool {
	depth := 0
	for i := 0; i < len(tex); i++ {
		switch tex[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

var (
	mathStartTag  = regexp.MustCompile(`<[a-zA-Z][\w:-]*(?:\s+[\w:-]+="[^"]*")+\s*/?>`)
	mathAttribute = regexp.MustCompile(`\s+([\w:-]+)="([^"]*)"`)
)

// canonicalMathML sorts attributes and style declarations so identical TeX
// always yields identical bytes.
func canonicalMathML(mml string) string {
	return mathStartTag.ReplaceAllStringFunc(mml, func(tag string) string {
		name := tag[:strings.IndexAny(tag, " \t\n\r")]
		closer := ">"
		if strings.HasSuffix(tag, "/>") {
			closer = "/>"
		}

		matches := mathAttribute.FindAllStringSubmatch(tag, -1)
		slices.SortStableFunc(matches, func(a, b []string) int { return strings.Compare(a[1], b[1]) })

		var b strings.Builder
		b.WriteString(name)
		for _, m := range matches {
			value := m[2]
			if m[1] == "style" {
				value = sortDeclarations(value)
			}
			b.WriteString(" " + m[1] + `="` + value + `"`)
		}
		b.WriteString(closer)
		return b.String()
	})
}

func sortDeclarations(style string) string {
	var decls []string
	for d := range strings.SplitSeq(style, ";") {
		if d = strings.TrimSpace(d); d != "" {
			decls = append(decls, d)
		}
	}
	slices.Sort(decls)
	return strings.Join(decls, ";") + ";"
}

type mathExtension struct{}

// Math typesets $$...$$ and $...$ regions to MathML.
var Math goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 90)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 50)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{}, 100)),
	)
}
