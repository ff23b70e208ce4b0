// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/pisentry/internal/api"
	"github.com/ManuGH/pisentry/internal/camera"
	"github.com/ManuGH/pisentry/internal/config"
	"github.com/ManuGH/pisentry/internal/device"
	pslog "github.com/ManuGH/pisentry/internal/log"
	"github.com/ManuGH/pisentry/internal/motion"
	"github.com/ManuGH/pisentry/internal/notify"
	"github.com/ManuGH/pisentry/internal/pipeline"
	"github.com/ManuGH/pisentry/internal/store"
	"github.com/ManuGH/pisentry/internal/transcoder"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// alerter is the union of the notification surfaces the coordinator and the
// pipeline need.
type alerter interface {
	SendText(ctx context.Context, message string)
	SendVideo(ctx context.Context, path string)
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Read the level directly: the config loader logs through this logger,
	// so it must be configured before any config helper runs.
	pslog.Configure(pslog.Config{
		Level:   os.Getenv("PISENTRY_LOG_LEVEL"),
		Service: "pisentry",
		Version: version,
	})
	logger := pslog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewLoader(*configPath).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}
	if *configPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", *configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	for _, dir := range []string{cfg.VideosDir(), cfg.ThumbnailsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "daemon.mkdir_failed").
				Str("dir", dir).
				Msg("cannot create data directory")
		}
	}

	events, err := store.New(cfg.DBPath())
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.store_failed").
			Str("path", cfg.DBPath()).
			Msg("cannot open event store")
	}
	defer func() { _ = events.Close() }()

	var noti alerter
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Error().
				Err(err).
				Str("event", "daemon.telegram_failed").
				Msg("telegram unavailable, alerts degrade to logs")
			noti = notify.NewNoop()
		} else {
			noti = tg
		}
	} else {
		logger.Info().Str("event", "daemon.telegram_unconfigured").Msg("telegram not configured")
		noti = notify.NewNoop()
	}

	dev, err := device.NewRpicam(cfg.Tools.RpicamVid, cfg.Tools.RpicamStill)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.device_failed").
			Msg("invalid camera tool configuration")
	}

	ffmpeg, err := transcoder.New(cfg.Tools.FFmpeg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.transcoder_failed").
			Msg("invalid ffmpeg configuration")
	}

	pipe := pipeline.New(ffmpeg, noti, events, cfg.ThumbnailsDir())

	coordinator := camera.New(dev, noti, pipe, camera.Config{
		MainResolution:    camera.Resolution{Width: cfg.Camera.MainWidth, Height: cfg.Camera.MainHeight},
		PreviewResolution: camera.Resolution{Width: cfg.Camera.PreviewWidth, Height: cfg.Camera.PreviewHeight},
		RecordDuration:    cfg.Camera.RecordDuration,
		FrameInterval:     cfg.Camera.FrameInterval,
		AutofocusSettle:   cfg.Camera.AutofocusSettle,
		VideosDir:         cfg.VideosDir(),
	}, nil)

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.New(api.Config{
			APIToken:        cfg.APIToken,
			AuthAnonymous:   cfg.AuthAnonymous,
			VideosDir:       cfg.VideosDir(),
			ThumbnailsDir:   cfg.ThumbnailsDir(),
			RateLimit:       cfg.RateLimit.RequestLimit,
			RateLimitWindow: cfg.RateLimit.Window,
		}, coordinator, events).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	noti.SendText(ctx, "Security camera system is starting...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pir, err := motion.NewPIR(cfg.Motion.Chip, cfg.Motion.Pin)
		if err != nil {
			// The dashboard still works without the sensor; don't take
			// the daemon down.
			logger.Error().
				Err(err).
				Str("event", "daemon.motion_disabled").
				Msg("PIR sensor unavailable, motion detection disabled")
			return nil
		}
		defer func() { _ = pir.Close() }()

		watcher := motion.New(pir, coordinator, motion.Config{
			Settle:       cfg.Motion.Settle,
			Cooldown:     cfg.Motion.Cooldown,
			PollInterval: cfg.Motion.PollInterval,
		}, nil)
		if err := watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().
			Str("event", "daemon.listening").
			Str("addr", cfg.ListenAddr).
			Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
}
