// Package dom holds the exporter's live HTML document and the off-screen
// containers that markdown is rendered into before rasterization.
//
// The live document is shared by every export call on an exporter, so all
// reads and writes go through Document, which serializes them behind a mutex.
// Selections handed to With callbacks must not escape the callback.
package dom
