package assets

import (
	"fmt"
	"os"
)

// DirSource reads assets from an operator directory. Reads go through an
// os.Root, which refuses paths and symlinks that leave the directory.
type DirSource struct {
	fsSource
	root *os.Root
}

// OpenDir opens path as a DirSource. Close it when done.
func OpenDir(path string) (*DirSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, path)
	}

	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	return &DirSource{
		fsSource: fsSource{fsys: root.FS(), label: path},
		root:     root,
	}, nil
}

// Close releases the directory handle.
func (d *DirSource) Close() error {
	return d.root.Close()
}
