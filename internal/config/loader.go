// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	path string
}

// NewLoader creates a loader. path may be empty (no config file).
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:    "/var/lib/pisentry",
		ListenAddr: ":8080",
		LogLevel:   "info",
		Camera: CameraConfig{
			MainWidth:       800,
			MainHeight:      600,
			PreviewWidth:    640,
			PreviewHeight:   360,
			RecordDuration:  10 * time.Second,
			FrameInterval:   50 * time.Millisecond,
			AutofocusSettle: 2 * time.Second,
		},
		Motion: MotionConfig{
			Chip:         "gpiochip0",
			Pin:          23,
			Settle:       30 * time.Second,
			Cooldown:     30 * time.Second,
			PollInterval: 100 * time.Millisecond,
		},
		Tools: ToolsConfig{
			FFmpeg:      "/usr/bin/ffmpeg",
			RpicamVid:   "/usr/bin/rpicam-vid",
			RpicamStill: "/usr/bin/rpicam-still",
		},
		RateLimit: RateLimitConfig{
			RequestLimit: 60,
			Window:       time.Minute,
		},
	}
}

// Load resolves the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc FileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		mergeFile(&cfg, &fc)
	}

	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeFile(cfg *Config, fc *FileConfig) {
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.APIToken, fc.APIToken)
	if fc.AuthAnonymous != nil {
		cfg.AuthAnonymous = *fc.AuthAnonymous
	}

	setInt(&cfg.Camera.MainWidth, fc.Camera.MainWidth)
	setInt(&cfg.Camera.MainHeight, fc.Camera.MainHeight)
	setInt(&cfg.Camera.PreviewWidth, fc.Camera.PreviewWidth)
	setInt(&cfg.Camera.PreviewHeight, fc.Camera.PreviewHeight)
	setDuration(&cfg.Camera.RecordDuration, fc.Camera.RecordDuration)
	setDuration(&cfg.Camera.FrameInterval, fc.Camera.FrameInterval)
	setDuration(&cfg.Camera.AutofocusSettle, fc.Camera.AutofocusSettle)

	setString(&cfg.Telegram.BotToken, fc.Telegram.BotToken)
	if fc.Telegram.ChatID != 0 {
		cfg.Telegram.ChatID = fc.Telegram.ChatID
	}

	setString(&cfg.Motion.Chip, fc.Motion.Chip)
	if fc.Motion.Pin != nil {
		cfg.Motion.Pin = *fc.Motion.Pin
	}
	setDuration(&cfg.Motion.Settle, fc.Motion.Settle)
	setDuration(&cfg.Motion.Cooldown, fc.Motion.Cooldown)
	setDuration(&cfg.Motion.PollInterval, fc.Motion.PollInterval)

	setString(&cfg.Tools.FFmpeg, fc.Tools.FFmpeg)
	setString(&cfg.Tools.RpicamVid, fc.Tools.RpicamVid)
	setString(&cfg.Tools.RpicamStill, fc.Tools.RpicamStill)

	setInt(&cfg.RateLimit.RequestLimit, fc.RateLimit.RequestLimit)
	setDuration(&cfg.RateLimit.Window, fc.RateLimit.Window)
}

func mergeEnv(cfg *Config) {
	cfg.DataDir = ParseString("PISENTRY_DATA", cfg.DataDir)
	cfg.ListenAddr = ParseString("PISENTRY_LISTEN", cfg.ListenAddr)
	cfg.LogLevel = ParseString("PISENTRY_LOG_LEVEL", cfg.LogLevel)
	cfg.APIToken = ParseString("PISENTRY_API_TOKEN", cfg.APIToken)
	cfg.AuthAnonymous = ParseBool("PISENTRY_AUTH_ANONYMOUS", cfg.AuthAnonymous)

	cfg.Camera.MainWidth = ParseInt("PISENTRY_CAMERA_MAIN_WIDTH", cfg.Camera.MainWidth)
	cfg.Camera.MainHeight = ParseInt("PISENTRY_CAMERA_MAIN_HEIGHT", cfg.Camera.MainHeight)
	cfg.Camera.PreviewWidth = ParseInt("PISENTRY_CAMERA_PREVIEW_WIDTH", cfg.Camera.PreviewWidth)
	cfg.Camera.PreviewHeight = ParseInt("PISENTRY_CAMERA_PREVIEW_HEIGHT", cfg.Camera.PreviewHeight)
	cfg.Camera.RecordDuration = ParseDuration("PISENTRY_RECORD_DURATION", cfg.Camera.RecordDuration)
	cfg.Camera.FrameInterval = ParseDuration("PISENTRY_FRAME_INTERVAL", cfg.Camera.FrameInterval)
	cfg.Camera.AutofocusSettle = ParseDuration("PISENTRY_AUTOFOCUS_SETTLE", cfg.Camera.AutofocusSettle)

	cfg.Telegram.BotToken = ParseString("PISENTRY_TELEGRAM_TOKEN", cfg.Telegram.BotToken)
	cfg.Telegram.ChatID = ParseInt64("PISENTRY_TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)

	cfg.Motion.Chip = ParseString("PISENTRY_MOTION_CHIP", cfg.Motion.Chip)
	cfg.Motion.Pin = ParseInt("PISENTRY_MOTION_PIN", cfg.Motion.Pin)
	cfg.Motion.Settle = ParseDuration("PISENTRY_MOTION_SETTLE", cfg.Motion.Settle)
	cfg.Motion.Cooldown = ParseDuration("PISENTRY_MOTION_COOLDOWN", cfg.Motion.Cooldown)
	cfg.Motion.PollInterval = ParseDuration("PISENTRY_MOTION_POLL_INTERVAL", cfg.Motion.PollInterval)

	cfg.Tools.FFmpeg = ParseString("PISENTRY_FFMPEG", cfg.Tools.FFmpeg)
	cfg.Tools.RpicamVid = ParseString("PISENTRY_RPICAM_VID", cfg.Tools.RpicamVid)
	cfg.Tools.RpicamStill = ParseString("PISENTRY_RPICAM_STILL", cfg.Tools.RpicamStill)

	cfg.RateLimit.RequestLimit = ParseInt("PISENTRY_RATE_LIMIT", cfg.RateLimit.RequestLimit)
	cfg.RateLimit.Window = ParseDuration("PISENTRY_RATE_WINDOW", cfg.RateLimit.Window)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
