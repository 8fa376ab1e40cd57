package emit

// Notes:
// - DOCX output is inspected by reopening the zip and reading document.xml
// - Paragraph text assertions go through WordParagraphs, the pure half

import (
	"archive/zip"
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestWordParagraphs
// ---------------------------------------------------------------------------

func TestWordParagraphs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "heading bold and list",
			input: "# Title\n\n**bold** text\n\n- item",
			want:  []string{"Title", "bold text", "• item"},
		},
		{
			name:  "italic and nested heading levels",
			input: "### Deep\n\n*soft* word",
			want:  []string{"Deep", "soft word"},
		},
		{
			name:  "single newline stays in paragraph",
			input: "- a\n- b",
			want:  []string{"• a\n• b"},
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "\n\n  one  \n\n  two  \n\n",
			want:  []string{"one", "two"},
		},
		{
			name:  "empty input gives one empty paragraph",
			input: "",
			want:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := WordParagraphs(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("WordParagraphs(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWord - Package structure
// ---------------------------------------------------------------------------

func readDocx(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader() error = %v", err)
	}
	parts := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		parts[f.Name] = string(b)
	}
	return parts
}

func TestWord(t *testing.T) {
	t.Parallel()

	out, err := Word("# Title\n\n**bold** <text> & more\n\n- a\n- b", WordOptions{})
	if err != nil {
		t.Fatalf("Word() error = %v", err)
	}

	parts := readDocx(t, out)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if _, ok := parts[name]; !ok {
			t.Errorf("DOCX missing part %s", name)
		}
	}

	doc := parts["word/document.xml"]
	if got := strings.Count(doc, "<w:p>"); got != 3 {
		t.Errorf("paragraph count = %d, want 3", got)
	}
	if got := strings.Count(doc, `<w:spacing w:after="200"/>`); got != 3 {
		t.Errorf("spacing count = %d, want 3", got)
	}

	wantContains := []string{
		`<w:t xml:space="preserve">Title</w:t>`,
		`bold &lt;text&gt; &amp; more`,
		`• a</w:t><w:br/><w:t xml:space="preserve">• b`,
	}
	for _, want := range wantContains {
		if !strings.Contains(doc, want) {
			t.Errorf("document.xml missing %q\ngot: %s", want, doc)
		}
	}
}

func TestWord_CustomSpacing(t *testing.T) {
	t.Parallel()

	out, err := Word("a\n\nb", WordOptions{SpacingAfter: 120})
	if err != nil {
		t.Fatalf("Word() error = %v", err)
	}
	doc := readDocx(t, out)["word/document.xml"]
	if !strings.Contains(doc, `w:after="120"`) {
		t.Errorf("document.xml missing custom spacing: %s", doc)
	}
}
