package mdexport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/pipeline"
	"github.com/alnah/go-mdexport/internal/process"
)

// rasterizer paints a standalone capture page into a bitmap. It abstracts
// the browser so the exporter can be tested without one.
type rasterizer interface {
	Rasterize(ctx context.Context, captureHTML string, cfg RasterConfig) (image.Image, error)
	Close() error
}

// Compile-time interface check.
var _ rasterizer = (*rodRasterizer)(nil)

// measureScript locates the capture root and counts cross-origin images
// that finished loading without any pixels.
const measureScript = `() => {
  const root = document.querySelector('[` + pipeline.CaptureRootAttr + `]');
  if (!root) return null;
  const rect = root.getBoundingClientRect();
  let tainted = 0;
  for (const img of root.querySelectorAll('img')) {
    let origin = location.origin;
    try { origin = new URL(img.src, location.href).origin; } catch (e) {}
    if (img.complete && img.naturalWidth === 0 && origin !== location.origin) tainted++;
  }
  return {
    x: rect.left + window.scrollX,
    y: rect.top + window.scrollY,
    width: rect.width,
    height: rect.height,
    tainted: tainted
  };
}`

// captureRect is the capture root's box in CSS pixels.
type captureRect struct {
	X, Y, Width, Height float64
	Tainted             int
}

// rodRasterizer implements rasterizer with headless Chrome via go-rod.
// The browser starts on first use and is shared by concurrent captures.
type rodRasterizer struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

// newRodRasterizer creates a rodRasterizer with the given load timeout.
func newRodRasterizer(timeout time.Duration) *rodRasterizer {
	return &rodRasterizer{timeout: timeout}
}

// ensureBrowser lazily launches and connects to the browser.
// Callers must hold r.mu.
func (r *rodRasterizer) ensureBrowser() (*rod.Browser, error) {
	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		killLauncher(l)
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher = l
	r.browser = browser
	return browser, nil
}

// Rasterize loads captureHTML in a fresh tab and screenshots the capture root
// at cfg.Scale device pixels per CSS pixel.
func (r *rodRasterizer) Rasterize(ctx context.Context, captureHTML string, cfg RasterConfig) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bg, _ := parseHexColor(cfg.Background)

	r.mu.Lock()
	browser, err := r.ensureBrowser()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(captureHTML, "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}
	defer cleanup()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	// Wait for page to load with timeout from context or default
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	return capture(page.Context(ctx).Timeout(timeout), cfg, bg)
}

// capture runs the load, measure and screenshot steps on a bounded page.
func capture(page *rod.Page, cfg RasterConfig, bg color.NRGBA) (image.Image, error) {
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	rect, err := measure(page)
	if err != nil {
		return nil, err
	}
	if rect.Tainted > 0 && !cfg.AllowTaint {
		return nil, fmt.Errorf("%w: %d image(s)", ErrTaintedImage, rect.Tainted)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(math.Ceil(rect.X + rect.Width)),
		Height:            int(math.Ceil(rect.Y + rect.Height)),
		DeviceScaleFactor: cfg.Scale,
	}); err != nil {
		return nil, fmt.Errorf("%w: setting viewport: %v", ErrRasterize, err)
	}

	alpha := float64(bg.A) / 255
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: int(bg.R), G: int(bg.G), B: int(bg.B), A: &alpha},
	}).Call(page); err != nil {
		return nil, fmt.Errorf("%w: setting background: %v", ErrRasterize, err)
	}

	shot, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      rect.X,
			Y:      rect.Y,
			Width:  rect.Width,
			Height: rect.Height,
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterize, err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding screenshot: %v", ErrRasterize, err)
	}
	return img, nil
}

// measure evaluates measureScript and validates the returned box.
func measure(page *rod.Page) (captureRect, error) {
	res, err := page.Eval(measureScript)
	if err != nil {
		return captureRect{}, fmt.Errorf("%w: measuring capture root: %v", ErrRasterize, err)
	}
	if res.Value.Nil() {
		return captureRect{}, fmt.Errorf("%w: capture root missing from page", ErrRasterize)
	}

	rect := captureRect{
		X:       res.Value.Get("x").Num(),
		Y:       res.Value.Get("y").Num(),
		Width:   res.Value.Get("width").Num(),
		Height:  res.Value.Get("height").Num(),
		Tainted: res.Value.Get("tainted").Int(),
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return captureRect{}, fmt.Errorf("%w: capture root has no size (%.0fx%.0f)", ErrRasterize, rect.Width, rect.Height)
	}
	return rect, nil
}

// Close shuts the browser down and kills its whole process tree.
// Safe to call more than once.
func (r *rodRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		killLauncher(r.launcher)
		r.launcher = nil
	}
	return err
}

// killLauncher kills the browser process group, then lets the launcher reap
// the leader and remove its profile directory.
func killLauncher(l *launcher.Launcher) {
	process.KillProcessGroup(l.PID())
	l.Kill()
	l.Cleanup()
}

// parseHexColor parses "#rgb" or "#rrggbb" into an opaque color.
func parseHexColor(s string) (color.NRGBA, error) {
	if len(s) != 4 && len(s) != 7 {
		return color.NRGBA{}, fmt.Errorf("%q is not a #rgb or #rrggbb color", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%q is not a #rgb or #rrggbb color", s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
