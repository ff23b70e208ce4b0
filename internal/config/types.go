// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"path/filepath"
	"time"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	DataDir       string
	ListenAddr    string
	LogLevel      string
	APIToken      string
	AuthAnonymous bool

	Camera    CameraConfig
	Telegram  TelegramConfig
	Motion    MotionConfig
	Tools     ToolsConfig
	RateLimit RateLimitConfig
}

// CameraConfig holds sensor and recording settings.
type CameraConfig struct {
	MainWidth     int
	MainHeight    int
	PreviewWidth  int
	PreviewHeight int

	// RecordDuration is how long each motion-triggered clip runs.
	RecordDuration time.Duration
	// FrameInterval is the target spacing between MJPEG preview frames.
	FrameInterval time.Duration
	// AutofocusSettle is how long to wait after triggering autofocus.
	AutofocusSettle time.Duration
}

// TelegramConfig holds the operator notification channel settings.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// MotionConfig holds PIR sensor settings.
type MotionConfig struct {
	// Chip is the GPIO character device, e.g. "gpiochip0".
	Chip string
	// Pin is the BCM line offset the PIR sensor is wired to.
	Pin int
	// Settle is the warm-up delay before the sensor is trusted.
	Settle time.Duration
	// Cooldown is the extra delay applied after motion clears.
	Cooldown time.Duration
	// PollInterval is the sensor polling cadence.
	PollInterval time.Duration
}

// ToolsConfig holds paths to external binaries.
type ToolsConfig struct {
	FFmpeg      string
	RpicamVid   string
	RpicamStill string
}

// RateLimitConfig holds API rate limiting settings.
type RateLimitConfig struct {
	RequestLimit int
	Window       time.Duration
}

// VideosDir returns the directory raw and container clips are written to.
func (c *Config) VideosDir() string {
	return filepath.Join(c.DataDir, "events", "videos")
}

// ThumbnailsDir returns the directory thumbnails are written to.
func (c *Config) ThumbnailsDir() string {
	return filepath.Join(c.DataDir, "events", "thumbnails")
}

// DBPath returns the sqlite database file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pisentry.db")
}

// FileConfig represents the YAML configuration structure. All fields are
// optional; unset fields fall through to environment variables and defaults.
type FileConfig struct {
	DataDir       string `yaml:"dataDir,omitempty"`
	ListenAddr    string `yaml:"listen,omitempty"`
	LogLevel      string `yaml:"logLevel,omitempty"`
	APIToken      string `yaml:"apiToken,omitempty"`
	AuthAnonymous *bool  `yaml:"authAnonymous,omitempty"`

	Camera struct {
		MainWidth       int    `yaml:"mainWidth,omitempty"`
		MainHeight      int    `yaml:"mainHeight,omitempty"`
		PreviewWidth    int    `yaml:"previewWidth,omitempty"`
		PreviewHeight   int    `yaml:"previewHeight,omitempty"`
		RecordDuration  string `yaml:"recordDuration,omitempty"`
		FrameInterval   string `yaml:"frameInterval,omitempty"`
		AutofocusSettle string `yaml:"autofocusSettle,omitempty"`
	} `yaml:"camera,omitempty"`

	Telegram struct {
		BotToken string `yaml:"botToken,omitempty"`
		ChatID   int64  `yaml:"chatId,omitempty"`
	} `yaml:"telegram,omitempty"`

	Motion struct {
		Chip         string `yaml:"chip,omitempty"`
		Pin          *int   `yaml:"pin,omitempty"`
		Settle       string `yaml:"settle,omitempty"`
		Cooldown     string `yaml:"cooldown,omitempty"`
		PollInterval string `yaml:"pollInterval,omitempty"`
	} `yaml:"motion,omitempty"`

	Tools struct {
		FFmpeg      string `yaml:"ffmpeg,omitempty"`
		RpicamVid   string `yaml:"rpicamVid,omitempty"`
		RpicamStill string `yaml:"rpicamStill,omitempty"`
	} `yaml:"tools,omitempty"`

	RateLimit struct {
		RequestLimit int    `yaml:"requestLimit,omitempty"`
		Window       string `yaml:"window,omitempty"`
	} `yaml:"rateLimit,omitempty"`
}
