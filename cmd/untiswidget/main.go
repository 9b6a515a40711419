package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"untiswidget/internal/app"
	"untiswidget/internal/cache"
	"untiswidget/internal/capture"
	"untiswidget/internal/clock"
	"untiswidget/internal/config"
	appLog "untiswidget/internal/log"
	"untiswidget/internal/notify"
	"untiswidget/internal/render"
	"untiswidget/internal/scheduler"
	"untiswidget/internal/untis"
	"untiswidget/internal/web"
	"untiswidget/internal/widget"
)

type flagConfig struct {
	configPath   string
	envPath      string
	listen       string
	now          string
	once         bool
	debug        bool
	png          bool
	showSettings bool
	clearCache   bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	level := appLog.ParseLevel(conf.Log.Level)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.Configure(conf.Log.Format, level)
	defer appLog.Sync()

	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	if flags.showSettings {
		config.Walk(conf.Describe(), config.Printer{W: os.Stdout})
		return
	}

	store, err := cache.NewFileStore(conf.CacheDir)
	if err != nil {
		appLog.Error("failed to open cache", err, "cache_dir", conf.CacheDir)
		os.Exit(1)
	}
	if flags.clearCache {
		if err := store.ClearAll(); err != nil {
			appLog.Error("failed to clear cache", err, "cache_dir", conf.CacheDir)
			os.Exit(1)
		}
		appLog.Info("cache cleared", "cache_dir", conf.CacheDir)
	}

	loc := conf.Location()
	var clk clock.Clock = clock.System{Location: loc}
	if flags.now != "" {
		fixed, err := clock.Parse(flags.now, loc)
		if err != nil {
			appLog.Error("invalid -now value", err, "now", flags.now)
			os.Exit(2)
		}
		clk = fixed
	}

	client, err := untis.NewClient(untis.Options{
		BaseURL:     "https://" + conf.Untis.Server,
		School:      conf.Untis.School,
		ElementType: untis.ElementType(conf.Untis.ElementType),
		ElementID:   conf.Untis.ElementID,
		Credentials: untis.EnvCredentials{File: flags.envPath},
	})
	if err != nil {
		appLog.Error("failed to create Untis client", err, "server", conf.Untis.Server)
		os.Exit(1)
	}

	backend, err := render.NewHTML(loc, 0, 0)
	if err != nil {
		appLog.Error("failed to load templates", err)
		os.Exit(1)
	}

	htmlPath, pngPath := app.Paths(conf.OutputDir)
	notifier := &notify.Notifier{
		Sink: notify.Multi{
			notify.LogSink{},
			&notify.FileSink{Path: filepath.Join(conf.OutputDir, "notifications.jsonl")},
		},
		Settings: conf,
		Location: loc,
	}

	a := &app.App{
		Settings:     conf,
		SettingsPath: flags.configPath,
		Orchestrator: &widget.Orchestrator{
			Source:   client,
			Store:    store,
			Settings: conf,
			Notifier: notifier,
			Location: loc,
		},
		Backend:  backend,
		Clock:    clk,
		HTMLPath: htmlPath,
		PNGPath:  pngPath,
	}
	if flags.png {
		a.Capture = capture.WidgetPNG
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"server", conf.Untis.Server,
		"school", conf.Untis.School,
		"cache_dir", conf.CacheDir,
		"output_dir", conf.OutputDir,
		"once", flags.once,
		"png", flags.png,
		"now", clk.Now().Format(time.RFC3339),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	defer client.Logout(context.Background())

	if flags.once {
		next, err := a.Pass(ctx)
		if err != nil {
			client.Logout(context.Background())
			appLog.Sync()
			os.Exit(1)
		}
		// Printed for the device-side agent that schedules the next run.
		fmt.Println(next.Format(time.RFC3339))
		return
	}

	srv := web.NewServer(conf, backend, pngPath)
	a.Publisher = srv
	go func() {
		if err := srv.Serve(ctx); err != nil {
			appLog.Error("HTTP server failed", err, "listen", conf.Listen)
			cancel()
		}
	}()

	runner, err := scheduler.NewRunner(conf.Refresh.Cron, loc, a.Pass)
	if err != nil {
		appLog.Error("failed to create scheduler", err, "cron", conf.Refresh.Cron)
		os.Exit(1)
	}
	runner.Run(ctx)

	appLog.Info("untiswidget exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/untiswidget/config.yaml", "Path to config file")
	flag.StringVar(&cfg.envPath, "env", ".env", "Optional .env file with UNTIS_USERNAME and UNTIS_PASSWORD")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.now, "now", "", "Pretend the current time is this value, e.g. 2024-05-10T18:00")
	flag.BoolVar(&cfg.once, "once", false, "Run one render pass, print the next refresh time and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&cfg.png, "png", false, "Capture the rendered widget as PNG via headless Chromium")
	flag.BoolVar(&cfg.showSettings, "settings", false, "Print the settings tree and exit")
	flag.BoolVar(&cfg.clearCache, "clear-cache", false, "Remove all cached snapshots before running")

	flag.Parse()

	return cfg
}
