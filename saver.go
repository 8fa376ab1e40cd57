package mdexport

import (
	"context"
	"fmt"
	"os"

	"github.com/alnah/go-mdexport/internal/fileutil"
)

// Saver delivers a finished artifact to the user: a file on disk, an HTTP
// response, or nowhere at all.
type Saver interface {
	Save(ctx context.Context, a *Artifact) error
}

// SaverFunc adapts an ordinary function to the Saver interface.
type SaverFunc func(ctx context.Context, a *Artifact) error

// Save calls f(ctx, a).
func (f SaverFunc) Save(ctx context.Context, a *Artifact) error {
	return f(ctx, a)
}

// DiscardSaver drops every artifact. It is the default for library use,
// where callers read the artifact returned by the Export methods.
var DiscardSaver Saver = SaverFunc(func(context.Context, *Artifact) error { return nil })

// DirSaver writes artifacts into a directory under their own filename.
type DirSaver struct {
	dir  string
	perm os.FileMode
}

// Compile-time interface check.
var _ Saver = (*DirSaver)(nil)

// defaultFilePerm is applied to saved artifacts.
const defaultFilePerm os.FileMode = 0o644

// NewDirSaver returns a DirSaver for dir, creating it if needed.
func NewDirSaver(dir string) (*DirSaver, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %v", ErrSave, err)
	}
	return &DirSaver{dir: dir, perm: defaultFilePerm}, nil
}

// Dir returns the output directory.
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save writes the artifact atomically. An existing file of the same name
// is replaced.
func (s *DirSaver) Save(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: nil artifact", ErrSave)
	}
	if err := fileutil.ValidateFilename(a.Filename); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if _, err := fileutil.WriteFileAtomic(s.dir, a.Filename, a.Data, s.perm); err != nil {
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}
