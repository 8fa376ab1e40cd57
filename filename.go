package mdexport

import (
	"time"

	"github.com/alnah/go-mdexport/internal/dateutil"
)

// DefaultBaseName prefixes generated filenames.
const DefaultBaseName = "research-report"

// fallbackLayout is DefaultTimestampFormat expressed as a Go layout.
const fallbackLayout = "2006-01-02_15-04-05"

// GenerateFilename returns "<base>-YYYY-MM-DD_HH-MM-SS.<ext>" for t in its
// own location, every field zero padded.
func GenerateFilename(base, ext string, t time.Time) string {
	return base + "-" + t.Format(fallbackLayout) + "." + ext
}

// generateFilename is GenerateFilename with a configurable timestamp layout.
// An invalid layout falls back to the default.
func generateFilename(base, ext, layout string, t time.Time) string {
	if layout == "" || layout == dateutil.DefaultTimestampFormat {
		return GenerateFilename(base, ext, t)
	}
	stamp, err := dateutil.FormatTimestamp(layout, t)
	if err != nil {
		return GenerateFilename(base, ext, t)
	}
	return base + "-" + stamp + "." + ext
}
