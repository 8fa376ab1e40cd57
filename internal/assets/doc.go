// Package assets provides the stylesheet and page template used to build
// capture pages.
//
// Assets are read through a Source. Three implementations exist:
//
//	Source (interface)
//	    │
//	    ├── Embedded()  - copies compiled into the binary
//	    ├── DirSource   - an operator directory, opened with os.OpenRoot
//	    └── Layered     - tries each source in order on ErrNotFound
//
// Load combines an optional directory with the embedded copies, so an
// operator can override the stylesheet alone and keep the built-in template.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── safe.css
//	└── templates/
//	    └── capture.html
//
// # Security
//
// Names may not contain separators or dots. DirSource reads through an
// os.Root, so neither ".." nor symlinks can leave the base directory.
package assets
