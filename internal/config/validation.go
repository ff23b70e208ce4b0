// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"path/filepath"
)

// Validate checks the resolved configuration for values the daemon cannot
// run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	if !filepath.IsAbs(c.DataDir) {
		return fmt.Errorf("dataDir must be absolute: %s", c.DataDir)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}

	if c.Camera.MainWidth <= 0 || c.Camera.MainHeight <= 0 {
		return fmt.Errorf("invalid main resolution %dx%d", c.Camera.MainWidth, c.Camera.MainHeight)
	}
	if c.Camera.PreviewWidth <= 0 || c.Camera.PreviewHeight <= 0 {
		return fmt.Errorf("invalid preview resolution %dx%d", c.Camera.PreviewWidth, c.Camera.PreviewHeight)
	}
	if c.Camera.RecordDuration <= 0 {
		return fmt.Errorf("record duration must be positive: %s", c.Camera.RecordDuration)
	}
	if c.Camera.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive: %s", c.Camera.FrameInterval)
	}

	if c.Motion.Pin < 0 {
		return fmt.Errorf("motion pin must not be negative: %d", c.Motion.Pin)
	}
	if c.Motion.PollInterval <= 0 {
		return fmt.Errorf("motion poll interval must be positive: %s", c.Motion.PollInterval)
	}

	for name, path := range map[string]string{
		"ffmpeg":       c.Tools.FFmpeg,
		"rpicam-vid":   c.Tools.RpicamVid,
		"rpicam-still": c.Tools.RpicamStill,
	} {
		if path == "" {
			return fmt.Errorf("%s path must not be empty", name)
		}
		if !filepath.IsAbs(path) {
			return fmt.Errorf("%s path must be absolute: %s", name, path)
		}
	}

	if c.RateLimit.RequestLimit <= 0 {
		return fmt.Errorf("rate limit must be positive: %d", c.RateLimit.RequestLimit)
	}
	return nil
}
