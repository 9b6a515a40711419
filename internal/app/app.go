package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"untiswidget/internal/capture"
	"untiswidget/internal/clock"
	"untiswidget/internal/config"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/render"
	"untiswidget/internal/widget"
)

// Publisher receives every pass, e.g. the preview server.
type Publisher interface {
	Publish(res *widget.Result)
	PublishFailure(err error, at time.Time)
}

// Capturer turns the rendered HTML file into a PNG.
type Capturer func(ctx context.Context, opts capture.Options) error

// App wires one render pass: orchestrate, persist settings, render,
// publish and optionally capture.
type App struct {
	Settings     *config.Settings
	SettingsPath string
	Orchestrator *widget.Orchestrator
	Backend      render.Backend
	Clock        clock.Clock

	// Publisher is optional.
	Publisher Publisher

	// HTMLPath receives the rendered page; PNGPath the capture when
	// Capture is set.
	HTMLPath string
	PNGPath  string
	Capture  Capturer
}

// Paths returns the default output files below outputDir.
func Paths(outputDir string) (htmlPath, pngPath string) {
	return filepath.Join(outputDir, "widget.html"), filepath.Join(outputDir, "widget.png")
}

// Pass runs one render pass and returns when the next is due. A failed
// pass still renders the fallback view and returns the error.
func (a *App) Pass(ctx context.Context) (time.Time, error) {
	now := a.Clock.Now()
	started := time.Now()

	res, err := a.Orchestrator.Run(ctx, now)
	if err != nil {
		appLog.Error("render pass failed", err, "now", now.Format(time.RFC3339))
		a.fail(ctx, err, now)
		return time.Time{}, err
	}

	if a.Settings.Dirty() && a.SettingsPath != "" {
		if err := a.Settings.Save(a.SettingsPath); err != nil {
			appLog.Error("saving settings failed", err, "path", a.SettingsPath)
		} else {
			appLog.Info("settings saved", "path", a.SettingsPath)
		}
	}

	var buf bytes.Buffer
	if err := a.Backend.Widget(&buf, res); err != nil {
		appLog.Error("render widget failed", err)
		a.fail(ctx, err, now)
		return time.Time{}, err
	}
	if a.Publisher != nil {
		a.Publisher.Publish(res)
	}
	a.output(ctx, buf.Bytes())

	appLog.Info("render pass completed",
		"lessons_today", len(res.Lessons),
		"next_day", res.NextDayKey,
		"exams", len(res.Exams),
		"refresh_at", res.RefreshAt.Format(time.RFC3339),
		"elapsed", time.Since(started).String(),
	)
	return res.RefreshAt, nil
}

func (a *App) fail(ctx context.Context, err error, now time.Time) {
	if a.Publisher != nil {
		a.Publisher.PublishFailure(err, now)
	}
	var buf bytes.Buffer
	if rerr := a.Backend.Failure(&buf, err, now); rerr != nil {
		appLog.Error("render failure view failed", rerr)
		return
	}
	a.output(ctx, buf.Bytes())
}

// output writes the page and captures it. Errors are logged only; the
// pass result is already published.
func (a *App) output(ctx context.Context, page []byte) {
	if a.HTMLPath == "" {
		return
	}
	if err := writeFile(a.HTMLPath, page); err != nil {
		appLog.Error("write widget HTML failed", err, "path", a.HTMLPath)
		return
	}
	if a.Capture == nil || a.PNGPath == "" {
		return
	}
	abs, err := filepath.Abs(a.HTMLPath)
	if err != nil {
		appLog.Error("resolve widget HTML path failed", err, "path", a.HTMLPath)
		return
	}
	if err := a.Capture(ctx, capture.Options{URL: "file://" + abs, OutputPath: a.PNGPath}); err != nil {
		appLog.Error("capture widget PNG failed", err, "path", a.PNGPath)
		return
	}
	appLog.Debug("widget PNG written", "path", a.PNGPath)
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
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
