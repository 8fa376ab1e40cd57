// Package pipeline implements the markdown-to-raster preparation stages.
//
// This package turns a markdown string into something a browser can paint:
//   - Markdown normalization (math delimiters, wrapper fences)
//   - Markdown to styled HTML fragment conversion via Goldmark
//   - Inline style sanitization on a live DOM subtree
//   - Relative path rewriting for local images
//   - Capture page construction (stylesheet removal, safe style injection)
//
// Rasterization is handled separately by the root mdexport package using
// headless Chrome (go-rod), and packing into PDF/PNG/DOCX by internal/emit.
// This package never talks to a browser.
package pipeline
