// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pisentry", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 800, cfg.Camera.MainWidth)
	assert.Equal(t, 360, cfg.Camera.PreviewHeight)
	assert.Equal(t, 10*time.Second, cfg.Camera.RecordDuration)
	assert.Equal(t, 50*time.Millisecond, cfg.Camera.FrameInterval)
	assert.Equal(t, 23, cfg.Motion.Pin)
	assert.Equal(t, filepath.Join("/var/lib/pisentry", "events", "videos"), cfg.VideosDir())
	assert.Equal(t, filepath.Join("/var/lib/pisentry", "pisentry.db"), cfg.DBPath())
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("PISENTRY_DATA", "/srv/cam")
	t.Setenv("PISENTRY_RECORD_DURATION", "15s")
	t.Setenv("PISENTRY_MOTION_PIN", "17")
	t.Setenv("PISENTRY_TELEGRAM_CHAT_ID", "12345")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/cam", cfg.DataDir)
	assert.Equal(t, 15*time.Second, cfg.Camera.RecordDuration)
	assert.Equal(t, 17, cfg.Motion.Pin)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataDir: /from/file
listen: ":9000"
camera:
  recordDuration: 20s
motion:
  pin: 4
`), 0o600))

	t.Setenv("PISENTRY_DATA", "/from/env")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.DataDir, "env wins over file")
	assert.Equal(t, ":9000", cfg.ListenAddr, "file wins over defaults")
	assert.Equal(t, 20*time.Second, cfg.Camera.RecordDuration)
	assert.Equal(t, 4, cfg.Motion.Pin)
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("PISENTRY_MOTION_PIN", "not-a-number")
	t.Setenv("PISENTRY_RECORD_DURATION", "soon")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, 23, cfg.Motion.Pin)
	assert.Equal(t, 10*time.Second, cfg.Camera.RecordDuration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative data dir", func(c *Config) { c.DataDir = "relative/path" }},
		{"empty listen", func(c *Config) { c.ListenAddr = "" }},
		{"zero main resolution", func(c *Config) { c.Camera.MainWidth = 0 }},
		{"negative record duration", func(c *Config) { c.Camera.RecordDuration = -time.Second }},
		{"zero frame interval", func(c *Config) { c.Camera.FrameInterval = 0 }},
		{"relative ffmpeg", func(c *Config) { c.Tools.FFmpeg = "ffmpeg" }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
