package dom

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Sentinel errors for live document operations.
var (
	ErrParseDocument = errors.New("failed to parse document")
	ErrNoBody        = errors.New("document has no body")
)

const emptyPage = "<!DOCTYPE html><html><head></head><body></body></html>"

// Document is a mutex-guarded live HTML document.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// NewDocument parses page into a live document. An empty page starts
// from a blank HTML skeleton.
func NewDocument(page string) (*Document, error) {
	if strings.TrimSpace(page) == "" {
		page = emptyPage
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseDocument, err)
	}
	if doc.Find("body").Length() == 0 {
		return nil, ErrNoBody
	}
	return &Document{doc: doc}, nil
}

// Append parses html and appends it to <body>.
func (d *Document) Append(html string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	body := d.doc.Find("body").First()
	if body.Length() == 0 {
		return ErrNoBody
	}
	body.AppendHtml(html)
	return nil
}

// ElementByID returns a detached copy of the element whose id equals id.
// The copy can be read freely; changes to it do not reach the live document.
func (d *Document) ElementByID(id string) (*goquery.Selection, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := FindByID(d.doc, id)
	if el.Length() == 0 {
		return nil, false
	}
	return el.Clone(), true
}

// Contains reports whether an element with the given id is present.
func (d *Document) Contains(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return FindByID(d.doc, id).Length() > 0
}

// Remove detaches the element with the given id. It reports whether an
// element was removed.
func (d *Document) Remove(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	el := FindByID(d.doc, id)
	if el.Length() == 0 {
		return false
	}
	el.Remove()
	return true
}

// With runs fn while holding the document lock.
func (d *Document) With(fn func(doc *goquery.Document) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.doc)
}

// HTML serializes the whole live document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// FindByID matches the first element whose id attribute equals id exactly.
// Attribute filtering avoids selector escaping for ids with special characters.
func FindByID(doc *goquery.Document, id string) *goquery.Selection {
	if id == "" {
		return doc.FindNodes()
	}
	return doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}
