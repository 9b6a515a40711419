package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults match the medium widget canvas at 3x device scale.
const (
	DefaultWidth   = 364
	DefaultHeight  = 382
	DefaultScale   = 3.0
	DefaultTimeout = 30 * time.Second
)

// Options defines a headless Chromium screenshot of the widget page.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/widget".
	URL string
	// OutputPath receives the PNG, e.g. "/var/lib/untiswidget/widget.png".
	OutputPath string

	Width  int
	Height int
	// Scale is the device pixel ratio.
	Scale float64

	// Timeout bounds the whole capture.
	Timeout time.Duration
}

func (o Options) withDefaults() (Options, error) {
	if o.URL == "" {
		return o, errors.New("capture: URL is required")
	}
	if o.OutputPath == "" {
		return o, errors.New("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o, nil
}

// WidgetPNG navigates to opts.URL, waits until the page body signals
// data-ready="true" and writes a screenshot of the viewport to
// opts.OutputPath. The file is replaced atomically.
func WidgetPNG(parentCtx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height), chromedp.EmulateScale(opts.Scale)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`body[data-ready="true"]`, chromedp.ByQuery),
		// Web fonts and final paints.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.CaptureScreenshot(&png),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".widget-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
