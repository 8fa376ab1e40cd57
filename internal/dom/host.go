package dom

import (
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ContainerIDPrefix starts every off-screen container id.
const ContainerIDPrefix = "temp-screenshot-"

// ErrNilDocument indicates a Host was built without a live document.
var ErrNilDocument = errors.New("host requires a live document")

// Host creates and removes off-screen containers in a live document.
type Host struct {
	doc *Document
	now func() time.Time
}

// NewHost returns a Host bound to doc.
func NewHost(doc *Document) (*Host, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	return &Host{doc: doc, now: time.Now}, nil
}

// Document returns the live document the host writes into.
func (h *Host) Document() *Document {
	return h.doc
}

// Create appends a container holding fragment to <body> and returns its id.
func (h *Host) Create(fragment string, style ContainerStyle) (string, error) {
	id := h.newID()
	markup := fmt.Sprintf(`<div id="%s" style="%s"><div style="%s">
    %s
  </div></div>`, id, html.EscapeString(style.OuterCSS()), html.EscapeString(style.InnerCSS()), fragment)

	if err := h.doc.Append(markup); err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}
	return id, nil
}

// Cleanup removes the container with the given id. Unknown ids are ignored.
func (h *Host) Cleanup(id string) {
	h.doc.Remove(id)
}

// Acquire creates a container and returns a release func that removes it.
// Release is safe to call more than once.
func (h *Host) Acquire(fragment string, style ContainerStyle) (string, func(), error) {
	id, err := h.Create(fragment, style)
	if err != nil {
		return "", func() {}, err
	}
	var once sync.Once
	return id, func() { once.Do(func() { h.Cleanup(id) }) }, nil
}

// newID combines the creation time with a random suffix so two containers
// created in the same millisecond never share an id.
func (h *Host) newID() string {
	return fmt.Sprintf("%s%d-%s", ContainerIDPrefix, h.now().UnixMilli(), uuid.NewString()[:8])
}
