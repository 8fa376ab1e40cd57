package mdexport

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/alnah/go-mdexport/internal/assets"
	"github.com/alnah/go-mdexport/internal/dom"
	"github.com/alnah/go-mdexport/internal/emit"
	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/logging"
	"github.com/alnah/go-mdexport/internal/pipeline"
)

// Exporter turns markdown into downloadable artifacts. It owns a live
// document for off-screen rendering and a lazily started browser.
// Methods are safe for concurrent use: DOM mutation is serialized, while
// rasterization runs in parallel browser tabs.
type Exporter struct {
	cfg        exporterConfig
	logger     *log.Logger
	saver      Saver
	normalizer pipeline.Normalizer
	renderer   pipeline.Renderer
	sanitizer  *pipeline.StyleSanitizer
	capture    *pipeline.CaptureBuilder
	safeCSS    string
	doc        *dom.Document
	host       *dom.Host
	raster     rasterizer
	now        func() time.Time
	closeOnce  sync.Once
	closeErr   error
}

// NewExporter creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithSaver, WithRasterConfig).
// The browser is not started until the first PDF or image export.
func NewExporter(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg:        defaultExporterConfig(),
		logger:     logging.Discard(),
		saver:      DiscardSaver,
		normalizer: &pipeline.DelimiterNormalizer{},
		renderer:   pipeline.NewGoldmarkRenderer(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.raster.Validate(); err != nil {
		return nil, err
	}
	if err := e.loadAssets(); err != nil {
		return nil, err
	}

	doc, err := dom.NewDocument(e.cfg.page)
	if err != nil {
		return nil, fmt.Errorf("creating live document: %w", err)
	}
	host, err := dom.NewHost(doc)
	if err != nil {
		return nil, fmt.Errorf("creating render host: %w", err)
	}
	e.doc = doc
	e.host = host
	e.sanitizer = &pipeline.StyleSanitizer{AllowProperties: e.cfg.allowProperties}

	// Create rasterizer if not injected (e.g., by tests)
	if e.raster == nil {
		e.raster = newRodRasterizer(e.cfg.timeout)
	}

	return e, nil
}

// loadAssets resolves the safe stylesheet and the capture page template.
func (e *Exporter) loadAssets() error {
	bundle, err := assets.Load(e.cfg.assetPath)
	if err != nil {
		return fmt.Errorf("loading assets: %w", err)
	}

	e.safeCSS = e.cfg.raster.SafeStyle
	if e.safeCSS == "" {
		e.safeCSS = bundle.SafeCSS
	}
	if e.capture, err = pipeline.NewCaptureBuilder(bundle.CaptureTemplate); err != nil {
		return err
	}
	return nil
}

// Document returns the live document the exporter renders into. Callers
// may add their own elements and capture them with ExportImage.
func (e *Exporter) Document() *dom.Document {
	return e.doc
}

// Close releases browser resources. Safe to call more than once.
func (e *Exporter) Close() error {
	e.closeOnce.Do(func() {
		if e.raster != nil {
			e.closeErr = e.raster.Close()
		}
	})
	return e.closeErr
}

// ---------------------------------------------------------------------------
// Artifact builders
// ---------------------------------------------------------------------------

// Export builds an artifact in the given format. For FormatImage the content
// is rendered into a temporary container first (see ExportContentImage).
func (e *Exporter) Export(ctx context.Context, format Format, content, filename string) (*Artifact, error) {
	switch format {
	case FormatMarkdown:
		return e.ExportMarkdown(ctx, content, filename)
	case FormatPDF:
		return e.ExportPDF(ctx, content, filename)
	case FormatImage:
		return e.ExportContentImage(ctx, content, filename)
	case FormatWord:
		return e.ExportWord(ctx, content, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// ExportMarkdown returns content unchanged as a markdown artifact.
func (e *Exporter) ExportMarkdown(ctx context.Context, content, filename string) (a *Artifact, err error) {
	defer recoverExport(&a, &err)

	name, err := e.prepare(ctx, content, filename, FormatMarkdown)
	if err != nil {
		return nil, err
	}
	return newArtifact(FormatMarkdown, name, emit.Markdown(content)), nil
}

// ExportWord converts content into paragraphs of plain text in a DOCX package.
func (e *Exporter) ExportWord(ctx context.Context, content, filename string) (a *Artifact, err error) {
	defer recoverExport(&a, &err)

	name, err := e.prepare(ctx, content, filename, FormatWord)
	if err != nil {
		return nil, err
	}
	progress := logging.NewProgress(e.logger)

	data, err := emit.Word(content, e.cfg.word)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocxGeneration, err)
	}

	progress.Done("exported", "file", name, "bytes", len(data))
	return newArtifact(FormatWord, name, data), nil
}

// ExportPDF renders content into an off-screen container, rasterizes it and
// slices the bitmap across A4 pages. The container is removed on every path.
func (e *Exporter) ExportPDF(ctx context.Context, content, filename string) (a *Artifact, err error) {
	defer recoverExport(&a, &err)

	name, err := e.prepare(ctx, content, filename, FormatPDF)
	if err != nil {
		return nil, err
	}
	progress := logging.NewProgress(e.logger)

	fragment, err := e.render(ctx, content)
	if err != nil {
		return nil, err
	}

	id, release, err := e.host.Acquire(fragment, e.cfg.pdfStyle)
	if err != nil {
		return nil, err
	}
	defer release()
	e.logger.Debug("container created", "id", id, "format", FormatPDF)

	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	img, err := e.rasterizeElement(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := emit.PDF(img, e.cfg.pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	progress.Done("exported", "file", name, "pages", emit.PageCount(img, e.cfg.pdf), "bytes", len(data))
	return newArtifact(FormatPDF, name, data), nil
}

// ExportImage captures the element with the given id in the live document
// as a PNG. A missing element fails with ErrTargetNotFound before any
// rasterization.
func (e *Exporter) ExportImage(ctx context.Context, elementID, filename string) (a *Artifact, err error) {
	defer recoverExport(&a, &err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.doc.Contains(elementID) {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, elementID)
	}
	name, err := e.resolveFilename(filename, FormatImage)
	if err != nil {
		return nil, err
	}
	progress := logging.NewProgress(e.logger)

	img, err := e.rasterizeElement(ctx, elementID)
	if err != nil {
		return nil, err
	}

	data, err := emit.PNG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageEncode, err)
	}

	b := img.Bounds()
	progress.Done("exported", "file", name, "width", b.Dx(), "height", b.Dy(), "bytes", len(data))
	return newArtifact(FormatImage, name, data), nil
}

// ExportContentImage renders content into a framed temporary container,
// waits for the settle delay, and captures it with ExportImage.
func (e *Exporter) ExportContentImage(ctx context.Context, content, filename string) (a *Artifact, err error) {
	defer recoverExport(&a, &err)

	if _, err := e.prepare(ctx, content, filename, FormatImage); err != nil {
		return nil, err
	}

	id, err := e.CreateTempElementForScreenshot(ctx, content)
	if err != nil {
		return nil, err
	}
	defer e.CleanupTempElement(id)

	if err := e.settle(ctx); err != nil {
		return nil, err
	}
	return e.ExportImage(ctx, id, filename)
}

// ---------------------------------------------------------------------------
// Downloads
// ---------------------------------------------------------------------------

// DownloadAsMarkdown exports content as markdown and hands it to the saver.
// Save failures are logged, not returned.
func (e *Exporter) DownloadAsMarkdown(ctx context.Context, content, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.ExportMarkdown(ctx, content, filename) })
}

// DownloadAsPDF exports content as a PDF and hands it to the saver.
func (e *Exporter) DownloadAsPDF(ctx context.Context, content, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.ExportPDF(ctx, content, filename) })
}

// DownloadAsImage captures an existing element and hands the PNG to the saver.
func (e *Exporter) DownloadAsImage(ctx context.Context, elementID, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.ExportImage(ctx, elementID, filename) })
}

// DownloadAsWord exports content as DOCX and hands it to the saver.
func (e *Exporter) DownloadAsWord(ctx context.Context, content, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.ExportWord(ctx, content, filename) })
}

// DownloadContentAsImage renders content, captures it as a PNG and hands it
// to the saver.
func (e *Exporter) DownloadContentAsImage(ctx context.Context, content, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.ExportContentImage(ctx, content, filename) })
}

// Download exports in the given format and hands the artifact to the saver.
func (e *Exporter) Download(ctx context.Context, format Format, content, filename string) (*Artifact, error) {
	return e.download(ctx, func() (*Artifact, error) { return e.Export(ctx, format, content, filename) })
}

func (e *Exporter) download(ctx context.Context, build func() (*Artifact, error)) (*Artifact, error) {
	a, err := build()
	if err != nil {
		return nil, err
	}
	if err := e.saver.Save(ctx, a); err != nil {
		e.logger.Warn("save failed", "file", a.Filename, "err", err)
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Temporary containers
// ---------------------------------------------------------------------------

// CreateTempElementForScreenshot renders content into a framed off-screen
// container and returns its id. Pair every call with CleanupTempElement.
func (e *Exporter) CreateTempElementForScreenshot(ctx context.Context, content string) (string, error) {
	fragment, err := e.render(ctx, content)
	if err != nil {
		return "", err
	}
	id, err := e.host.Create(fragment, e.cfg.imageStyle)
	if err != nil {
		return "", err
	}
	e.logger.Debug("container created", "id", id, "format", FormatImage)
	return id, nil
}

// CleanupTempElement removes a container created by
// CreateTempElementForScreenshot. Unknown ids are ignored.
func (e *Exporter) CleanupTempElement(id string) {
	e.host.Cleanup(id)
	e.logger.Debug("container removed", "id", id)
}

// ---------------------------------------------------------------------------
// Pipeline stages
// ---------------------------------------------------------------------------

// prepare checks the context and content, then resolves the filename.
// Blank content only fails formats that capture a rendered container;
// markdown and word exports of blank content are valid empty documents.
func (e *Exporter) prepare(ctx context.Context, content, filename string, format Format) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if format.rasterized() && strings.TrimSpace(content) == "" {
		return "", ErrEmptyMarkdown
	}
	return e.resolveFilename(filename, format)
}

// resolveFilename validates an explicit filename or generates one.
func (e *Exporter) resolveFilename(filename string, format Format) (string, error) {
	if filename == "" {
		return generateFilename(e.cfg.baseName, format.Extension(), e.cfg.timestampFormat, e.now()), nil
	}
	if err := fileutil.ValidateFilename(filename); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return filename, nil
}

// render normalizes and converts markdown to an HTML fragment.
func (e *Exporter) render(ctx context.Context, content string) (string, error) {
	normalized := e.normalizer.Normalize(ctx, content)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fragment, err := e.renderer.ToHTML(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRender, err)
	}
	e.logger.Debug("rendered", "bytes", len(fragment))
	return fragment, nil
}

// settle pauses so the container is fully laid out before capture.
func (e *Exporter) settle(ctx context.Context) error {
	if e.cfg.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.cfg.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rasterizeElement sanitizes the live element, builds its capture page under
// the document lock, then rasterizes outside it.
func (e *Exporter) rasterizeElement(ctx context.Context, id string) (image.Image, error) {
	var page string
	err := e.doc.With(func(doc *goquery.Document) error {
		el := dom.FindByID(doc, id)
		if el.Length() == 0 {
			return fmt.Errorf("%w: %q", ErrTargetNotFound, id)
		}
		e.sanitizer.Sanitize(el)

		clone := el.Clone()
		if err := pipeline.RewriteRelativePaths(clone, e.cfg.sourceDir); err != nil {
			return fmt.Errorf("%w: %v", ErrRasterize, err)
		}

		var err error
		page, err = e.capture.Build(ctx, clone, e.captureConfig())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRasterize, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("capture page built", "id", id, "bytes", len(page))

	img, err := e.raster.Rasterize(ctx, page, e.cfg.raster)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("rasterized", "id", id, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

func (e *Exporter) captureConfig() pipeline.CaptureConfig {
	return pipeline.CaptureConfig{
		IgnoreTags:        e.cfg.raster.IgnoreTags,
		UseCORS:           e.cfg.raster.UseCORS,
		MathStylesheetURL: e.cfg.raster.MathStylesheetURL,
		SafeCSS:           e.safeCSS,
	}
}

// recoverExport converts a panic in an export stage into an error, so one
// malformed document cannot take down a server or a batch run.
func recoverExport(a **Artifact, err *error) {
	if r := recover(); r != nil {
		*a = nil
		*err = fmt.Errorf("internal error: %v", r)
	}
}
