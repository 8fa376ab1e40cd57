package emit

import "errors"

// Sentinel errors for emitters.
var (
	ErrPDF        = errors.New("PDF generation failed")
	ErrPNG        = errors.New("PNG encoding failed")
	ErrDocx       = errors.New("DOCX generation failed")
	ErrEmptyImage = errors.New("image has no pixels")
)
