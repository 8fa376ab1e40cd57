package emit

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultParagraphSpacing is the space after each paragraph in twentieths
// of a point.
const DefaultParagraphSpacing = 200

// Markdown markers removed before building paragraphs.
var (
	headingMarker = regexp.MustCompile(`(?m)^#+\s*`)
	boldMarker    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicMarker  = regexp.MustCompile(`\*(.*?)\*`)
	bulletMarker  = regexp.MustCompile(`(?m)^- `)
)

// WordOptions controls paragraph layout.
type WordOptions struct {
	SpacingAfter int // twentieths of a point; zero uses DefaultParagraphSpacing
}

// WordParagraphs strips markdown markers and splits content into paragraphs
// on "\n\n". A line holding only spaces does not separate paragraphs.
func WordParagraphs(content string) []string {
	text := headingMarker.ReplaceAllString(content, "")
	text = boldMarker.ReplaceAllString(text, "$1")
	text = italicMarker.ReplaceAllString(text, "$1")
	text = bulletMarker.ReplaceAllString(text, "• ")
	text = strings.TrimSpace(text)

	parts := strings.Split(text, "\n\n")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Word builds a DOCX package with one paragraph per WordParagraphs entry.
func Word(content string, opts WordOptions) ([]byte, error) {
	spacing := opts.SpacingAfter
	if spacing <= 0 {
		spacing = DefaultParagraphSpacing
	}

	body, err := documentXML(WordParagraphs(content), spacing)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocx, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", body},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrDocx, p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("%w: writing %s: %v", ErrDocx, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocx, err)
	}
	return buf.Bytes(), nil
}

// documentXML renders the main document part. Single newlines inside a
// paragraph become line breaks.
func documentXML(paragraphs []string, spacing int) (string, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	after := strconv.Itoa(spacing)
	for _, p := range paragraphs {
		b.WriteString(`<w:p><w:pPr><w:spacing w:after="` + after + `"/></w:pPr><w:r>`)
		for i, line := range strings.Split(p, "\n") {
			if i > 0 {
				b.WriteString(`<w:br/>`)
			}
			b.WriteString(`<w:t xml:space="preserve">`)
			if err := xml.EscapeText(&b, []byte(line)); err != nil {
				return "", err
			}
			b.WriteString(`</w:t>`)
		}
		b.WriteString(`</w:r></w:p>`)
	}

	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.String(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
