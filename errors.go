package mdexport

import "errors"

// Sentinel errors for export operations.
var (
	ErrEmptyMarkdown  = errors.New("markdown content cannot be empty")
	ErrInvalidFormat  = errors.New("invalid export format")
	ErrTargetNotFound = errors.New("element to capture not found")
	ErrRender         = errors.New("markdown rendering failed")

	// Rasterization errors.
	ErrBrowserConnect      = errors.New("failed to connect to browser")
	ErrPageCreate          = errors.New("failed to create browser page")
	ErrPageLoad            = errors.New("failed to load page")
	ErrRasterize           = errors.New("rasterization failed")
	ErrTaintedImage        = errors.New("cross-origin image could not be loaded without tainting the capture")
	ErrInvalidRasterConfig = errors.New("invalid raster configuration")

	// Emitter errors.
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrImageEncode    = errors.New("image encoding failed")
	ErrDocxGeneration = errors.New("DOCX generation failed")

	// Output errors.
	ErrSave        = errors.New("failed to save artifact")
	ErrInvalidName = errors.New("invalid artifact filename")
	ErrPoolClosed  = errors.New("exporter pool is closed")
)
