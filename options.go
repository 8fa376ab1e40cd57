package mdexport

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-mdexport/internal/dateutil"
	"github.com/alnah/go-mdexport/internal/dom"
	"github.com/alnah/go-mdexport/internal/emit"
)

// Option configures an Exporter.
type Option func(*Exporter)

// exporterConfig holds internal configuration for Exporter.
type exporterConfig struct {
	raster          RasterConfig
	settleDelay     time.Duration
	timeout         time.Duration
	sourceDir       string
	page            string
	assetPath       string
	baseName        string
	timestampFormat string
	allowProperties []string
	pdfStyle        dom.ContainerStyle
	imageStyle      dom.ContainerStyle
	pdf             emit.PDFOptions
	word            emit.WordOptions
}

func defaultExporterConfig() exporterConfig {
	return exporterConfig{
		raster:          DefaultRasterConfig(),
		settleDelay:     DefaultSettleDelay,
		timeout:         DefaultTimeout,
		baseName:        DefaultBaseName,
		timestampFormat: dateutil.DefaultTimestampFormat,
		pdfStyle:        dom.PDFContainerStyle(),
		imageStyle:      dom.ScreenshotContainerStyle(),
	}
}

// WithLogger sets the logger for stage and container lifecycle events.
// A nil logger keeps the silent default.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSaver sets where DownloadAs* deliver their artifacts.
// A nil saver keeps DiscardSaver.
func WithSaver(s Saver) Option {
	return func(e *Exporter) {
		if s != nil {
			e.saver = s
		}
	}
}

// WithRasterConfig replaces the capture settings. NewExporter validates them.
func WithRasterConfig(cfg RasterConfig) Option {
	return func(e *Exporter) {
		e.cfg.raster = cfg
	}
}

// WithSettleDelay sets the pause between creating a container and capturing it.
// Zero disables the pause.
func WithSettleDelay(d time.Duration) Option {
	return func(e *Exporter) {
		if d >= 0 {
			e.cfg.settleDelay = d
		}
	}
}

// WithTimeout bounds each browser load and capture.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdexport: WithTimeout duration must be positive")
	}
	return func(e *Exporter) {
		e.cfg.timeout = d
	}
}

// WithSourceDir resolves relative image and link paths in rendered content
// against dir. Paths escaping dir are left as written.
func WithSourceDir(dir string) Option {
	return func(e *Exporter) {
		e.cfg.sourceDir = dir
	}
}

// WithPage seeds the live document with an existing HTML page, so
// ExportImage can capture elements it already contains.
func WithPage(html string) Option {
	return func(e *Exporter) {
		e.cfg.page = html
	}
}

// WithAssetPath loads the safe stylesheet and capture template from dir,
// falling back to the embedded copies for missing files.
func WithAssetPath(dir string) Option {
	return func(e *Exporter) {
		e.cfg.assetPath = dir
	}
}

// WithBaseName sets the prefix of generated filenames.
func WithBaseName(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.cfg.baseName = name
		}
	}
}

// WithTimestampFormat sets the timestamp layout of generated filenames,
// using dateutil tokens (e.g. "YYYY-MM-DD_HH-mm-ss") or a preset name.
func WithTimestampFormat(format string) Option {
	return func(e *Exporter) {
		if format != "" {
			e.cfg.timestampFormat = format
		}
	}
}

// WithAllowProperties restricts inline styles in captured content to the
// listed CSS properties, on top of the unsupported-color deny-list.
func WithAllowProperties(props ...string) Option {
	return func(e *Exporter) {
		e.cfg.allowProperties = append([]string(nil), props...)
	}
}

// WithContainerStyles overrides the off-screen container layouts used for
// PDF and image exports.
func WithContainerStyles(pdf, image ContainerStyle) Option {
	return func(e *Exporter) {
		e.cfg.pdfStyle = pdf
		e.cfg.imageStyle = image
	}
}

// WithParagraphSpacing sets the space after each Word paragraph, in
// twentieths of a point.
func WithParagraphSpacing(twips int) Option {
	return func(e *Exporter) {
		e.cfg.word.SpacingAfter = twips
	}
}
