// Package emit turns export inputs into final file bytes.
//
// Markdown passes through unchanged. PDF and PNG are built from a raster
// image produced by the browser. Word is built from a plain text transform
// of the markdown source and never touches the browser.
package emit
