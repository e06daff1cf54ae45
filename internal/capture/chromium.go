package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Default capture parameters. The viewport width matches the dashboard's
// chart width so the PNG carries no horizontal scroll.
const (
	DefaultWidth      = 1400
	DefaultHeight     = 900
	DefaultTimeoutSec = 30

	// ReadySelector marks the chart page as fully rendered.
	ReadySelector = `[data-ready="true"]`
)

// Options defines parameters for a Chromium-based chart snapshot.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/chart".
	URL string

	// OutputPath is where the PNG is written, e.g. "./cache/preview.png".
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. Zero means
	// DefaultWidth / DefaultHeight.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// ChartPNG launches a headless Chromium via chromedp, opens opts.URL
// (normally the dashboard's /chart page), waits for ReadySelector and writes
// a full-page PNG to opts.OutputPath.
//
// The write goes through a temp file in the same directory so /preview.png
// never serves a half-written image.
func ChartPNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let the last paint settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	return writePNG(opts.OutputPath, png)
}

func writePNG(path string, png []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("capture: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".preview-*.png")
	if err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
