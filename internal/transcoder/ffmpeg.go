// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package transcoder wraps ffmpeg for container remuxing and thumbnail
// extraction.
package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ManuGH/pisentry/internal/log"
	"github.com/rs/zerolog"
)

// ErrToolMissing is returned when the ffmpeg binary cannot be executed.
var ErrToolMissing = errors.New("ffmpeg not found")

const (
	// thumbnailSeek is how far into the clip the still is taken.
	thumbnailSeek = "00:00:01"
	// thumbnailWidth is the output width; height follows the aspect ratio.
	thumbnailWidth = 320
)

// FFmpeg shells out to ffmpeg. The zero value is not usable; use New.
type FFmpeg struct {
	path   string
	logger zerolog.Logger
}

// New creates an FFmpeg wrapper. path must be absolute.
func New(path string) (*FFmpeg, error) {
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return nil, fmt.Errorf("ffmpeg path must be absolute: %s", path)
	}
	return &FFmpeg{path: clean, logger: log.WithComponent("transcoder")}, nil
}

// ToMP4 remuxes a raw H.264 clip into an MP4 container next to it and
// returns the container path. The video stream is copied, not re-encoded.
func (f *FFmpeg) ToMP4(ctx context.Context, rawPath string) (string, error) {
	mp4Path := strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".mp4"

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", rawPath,
		"-c:v", "copy",
		mp4Path,
	}
	if err := f.run(ctx, args); err != nil {
		return "", fmt.Errorf("remux %s: %w", rawPath, err)
	}

	f.logger.Info().
		Str("event", "transcode.remuxed").
		Str("raw", rawPath).
		Str("mp4", mp4Path).
		Msg("converted clip to mp4")
	return mp4Path, nil
}

// ExtractThumbnail derives a still preview image from the container file and
// writes it into outDir, returning the thumbnail path.
func (f *FFmpeg) ExtractThumbnail(ctx context.Context, mp4Path, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("create thumbnail dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(mp4Path), filepath.Ext(mp4Path))
	thumbPath := filepath.Join(outDir, base+"_thumb.jpg")

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", mp4Path,
		"-ss", thumbnailSeek,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", thumbnailWidth),
		thumbPath,
	}
	if err := f.run(ctx, args); err != nil {
		return "", fmt.Errorf("thumbnail %s: %w", mp4Path, err)
	}

	f.logger.Info().
		Str("event", "transcode.thumbnail").
		Str("mp4", mp4Path).
		Str("thumbnail", thumbPath).
		Msg("thumbnail generated")
	return thumbPath, nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, f.path, args...) // #nosec G204 -- binary path validated at construction
	cmd.Stderr = stderr

	f.logger.Debug().
		Str("ffmpeg_path", f.path).
		Strs("args", args).
		Msg("running ffmpeg")

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrToolMissing, f.path)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return fmt.Errorf("ffmpeg: %w (stderr: %s)", err, msg)
	}
	return nil
}
