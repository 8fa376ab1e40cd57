// Package mdexport turns a markdown report into a downloadable artifact:
// the markdown itself, a paginated PDF, a PNG image or a Word document.
//
// # Quick Start
//
// Create an exporter, export, and close when done:
//
//	exp, err := mdexport.NewExporter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exp.Close()
//
//	a, err := exp.ExportPDF(ctx, "# Findings\n\nSee table.", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(a.Filename, a.Data, 0644)
//
// An empty filename generates "research-report-YYYY-MM-DD_HH-MM-SS.<ext>".
//
// # Export Pipeline
//
// Markdown and Word exports are pure text transforms. PDF and image exports
// go through the browser:
//
//  1. Math delimiter and wrapper fence normalization
//  2. Markdown to HTML via Goldmark (GFM, MathML, inline-styled elements)
//  3. Rendering into an off-screen container in the exporter's live document
//  4. Removal of inline colors the rasterizer cannot paint
//  5. A standalone capture page with a safe stylesheet, screenshotted by
//     headless Chrome (go-rod)
//  6. PNG encoding, or slicing into A4 pages with gofpdf
//
// The container is removed on every exit path.
//
// # Downloads
//
// The DownloadAs* methods build the same artifacts and hand them to a Saver.
// Save errors are logged, never returned:
//
//	saver, err := mdexport.NewDirSaver("./exports")
//	exp, err := mdexport.NewExporter(
//	    mdexport.WithSaver(saver),
//	    mdexport.WithRasterConfig(mdexport.RasterConfig{Scale: 3, Background: "#ffffff"}),
//	)
//	a, err := exp.DownloadAsWord(ctx, content, "")
//
// # Parallel Processing
//
// Each exporter owns one browser. For servers and batch runs, use
// ExporterPool:
//
//	pool := mdexport.NewExporterPool(mdexport.ResolvePoolSize(0))
//	defer pool.Close()
//
//	exp, err := pool.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Release(exp)
//
// # Custom Assets
//
// WithAssetPath overrides the embedded safe stylesheet and capture page
// template. Missing files fall back to the embedded copies:
//
//	assets/
//	├── styles/
//	│   └── safe.css
//	└── templates/
//	    └── capture.html
//
// # Command Line and Server
//
// cmd/mdexport wraps the library: "mdexport export" writes files,
// "mdexport serve" answers POST /export/{format} with the artifact as an
// attachment, and "mdexport doctor" checks the browser setup.
//
// # Browser Requirements
//
// PDF and image exports require Chrome/Chromium. The go-rod library
// downloads a managed Chromium on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, set ROD_NO_SANDBOX=1 to disable the
// Chrome sandbox. Use ROD_BROWSER_BIN to specify a custom Chrome binary.
package mdexport
