package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Built-in asset names.
const (
	// SafeStyleName is the replacement stylesheet injected into capture pages.
	SafeStyleName = "safe"

	// CaptureTemplateName is the page template that wraps a cloned element.
	CaptureTemplateName = "capture"
)

// Kind selects the directory and extension of an asset.
type Kind struct {
	dir string
	ext string
}

// Asset kinds.
var (
	Stylesheet = Kind{dir: "styles", ext: ".css"}
	Template   = Kind{dir: "templates", ext: ".html"}
)

func (k Kind) String() string {
	return strings.TrimSuffix(k.dir, "s")
}

// path maps a bare name to its slash-separated location inside a source.
func (k Kind) path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return k.dir + "/" + name + k.ext, nil
}

// Source reads named assets.
type Source interface {
	Read(kind Kind, name string) (string, error)
}

// fsSource reads assets from a filesystem laid out as styles/ and templates/.
type fsSource struct {
	fsys  fs.FS
	label string
}

func (s fsSource) Read(kind Kind, name string) (string, error) {
	p, err := kind.path(name)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(s.fsys, p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s %q in %s", ErrNotFound, kind, name, s.label)
	case err != nil:
		return "", fmt.Errorf("%w: %s %q: %v", ErrRead, kind, name, err)
	}
	return string(data), nil
}

// Layered reads from each source in turn. It moves to the next source only
// when an asset is missing; invalid names and read failures stop the search.
type Layered []Source

// Read implements Source.
func (l Layered) Read(kind Kind, name string) (string, error) {
	err := fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
	for _, s := range l {
		content, rerr := s.Read(kind, name)
		if rerr == nil {
			return content, nil
		}
		if !errors.Is(rerr, ErrNotFound) {
			return "", rerr
		}
		err = rerr
	}
	return "", err
}

// Bundle holds what every capture page needs.
type Bundle struct {
	SafeCSS         string
	CaptureTemplate string
}

// Load reads the bundle. Files under dir replace the embedded copies one at
// a time; an empty dir uses the embedded copies only.
func Load(dir string) (*Bundle, error) {
	if dir == "" {
		return LoadFrom(Embedded())
	}
	d, err := OpenDir(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Close() }()
	return LoadFrom(Layered{d, Embedded()})
}

// LoadFrom reads the bundle from src.
func LoadFrom(src Source) (*Bundle, error) {
	css, err := src.Read(Stylesheet, SafeStyleName)
	if err != nil {
		return nil, err
	}
	tmpl, err := src.Read(Template, CaptureTemplateName)
	if err != nil {
		return nil, err
	}
	return &Bundle{SafeCSS: css, CaptureTemplate: tmpl}, nil
}

// Compile-time interface checks.
var (
	_ Source = fsSource{}
	_ Source = Layered(nil)
	_ Source = (*DirSource)(nil)
)
