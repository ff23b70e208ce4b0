// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package pipeline turns a raw captured clip into a shareable, indexed
// artifact: remux to MP4, notify the operator, extract a thumbnail, persist
// the event. Stages are ordered by decreasing importance; only a failed
// remux aborts the remaining stages, and persistence never depends on the
// notification or thumbnail outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/pisentry/internal/camera"
	"github.com/ManuGH/pisentry/internal/log"
	"github.com/ManuGH/pisentry/internal/store"
	"github.com/rs/zerolog"
)

// eventType is the persisted classification for motion clips.
const eventType = "Motion Detected"

// Transcoder converts a raw clip to a playable container and derives a
// preview image from it.
type Transcoder interface {
	ToMP4(ctx context.Context, rawPath string) (string, error)
	ExtractThumbnail(ctx context.Context, mp4Path, outDir string) (string, error)
}

// Notifier delivers the converted clip to the operator, best-effort.
type Notifier interface {
	SendVideo(ctx context.Context, path string)
}

// EventStore durably records completed events.
type EventStore interface {
	RecordEvent(ctx context.Context, ev store.NewEvent) (int64, error)
}

// Pipeline orchestrates post-recording processing.
type Pipeline struct {
	transcoder Transcoder
	notifier   Notifier
	events     EventStore
	thumbsDir  string
	logger     zerolog.Logger
}

// New constructs a Pipeline writing thumbnails into thumbsDir.
func New(transcoder Transcoder, notifier Notifier, events EventStore, thumbsDir string) *Pipeline {
	return &Pipeline{
		transcoder: transcoder,
		notifier:   notifier,
		events:     events,
		thumbsDir:  thumbsDir,
		logger:     log.WithComponent("pipeline"),
	}
}

// Process runs the post-recording stages for one clip. It never returns an
// error: each stage absorbs its own failures, and a missing thumbnail or
// failed notification must never erase the fact that a video was captured
// and converted.
func (p *Pipeline) Process(ctx context.Context, clip camera.Clip) {
	logger := p.logger.With().Str("clip", clip.ID).Str("raw", clip.RawPath).Logger()

	mp4Path, err := p.transcoder.ToMP4(ctx, clip.RawPath)
	if err != nil {
		stageFailuresTotal.WithLabelValues("transcode").Inc()
		logger.Error().
			Err(err).
			Str("event", "pipeline.transcode_failed").
			Msg("mp4 conversion failed, skipping remaining stages")
		return
	}
	clip.ContainerPath = mp4Path

	// Delivery failures are absorbed inside the notifier.
	p.notifier.SendVideo(ctx, mp4Path)

	thumbPath, err := p.transcoder.ExtractThumbnail(ctx, mp4Path, p.thumbsDir)
	if err != nil {
		stageFailuresTotal.WithLabelValues("thumbnail").Inc()
		logger.Warn().
			Err(err).
			Str("event", "pipeline.thumbnail_failed").
			Msg("thumbnail generation failed, persisting without one")
		thumbPath = ""
	}
	clip.ThumbnailPath = thumbPath

	id, err := p.events.RecordEvent(ctx, store.NewEvent{
		Type:          eventType,
		RawPath:       clip.RawPath,
		ContainerPath: clip.ContainerPath,
		ThumbnailPath: clip.ThumbnailPath,
		Notes:         fmt.Sprintf("Motion at %s", clip.CreatedAt.Format("2006-01-02 15:04:05")),
		At:            clip.CreatedAt,
	})
	if err != nil {
		stageFailuresTotal.WithLabelValues("persist").Inc()
		if errors.Is(err, store.ErrDuplicatePath) {
			logger.Warn().
				Err(err).
				Str("event", "pipeline.duplicate_event").
				Msg("event already recorded, dropping the write")
		} else {
			logger.Error().
				Err(err).
				Str("event", "pipeline.persist_failed").
				Msg("could not record video event")
		}
		return
	}

	processedTotal.Inc()
	logger.Info().
		Str("event", "pipeline.done").
		Int64("id", id).
		Str("mp4", clip.ContainerPath).
		Str("thumbnail", clip.ThumbnailPath).
		Msg("clip processed")
}
