// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/pisentry/internal/log"
	"github.com/ManuGH/pisentry/internal/timeutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the coordinator's recording and preview settings.
type Config struct {
	MainResolution    Resolution
	PreviewResolution Resolution
	// RecordDuration is how long each motion clip runs.
	RecordDuration time.Duration
	// FrameInterval paces the preview frame loop (50ms ≈ 20 fps).
	FrameInterval time.Duration
	// AutofocusSettle is how long to wait after triggering autofocus.
	AutofocusSettle time.Duration
	// VideosDir is where raw clips are written.
	VideosDir string
}

// Coordinator is the single authority over the physical camera. It
// guarantees that recording and preview streaming never issue conflicting
// device operations, initializes the device at most once, and hands
// completed clips to the pipeline.
type Coordinator struct {
	dev      Device
	notifier Notifier
	pipeline Pipeline
	cfg      Config
	clock    timeutil.Clock
	logger   zerolog.Logger

	// mu is the exclusive device lock. It is held for the whole recording
	// window, for a single frame capture at a time, and during lazy init.
	mu          sync.Mutex
	initialized bool

	// stateMu guards the stream flags and clip path dedup state.
	stateMu       sync.Mutex
	streamActive  bool
	stopRequested bool
	lastStamp     string
	stampSeq      int
}

// New constructs a Coordinator. clock may be nil, in which case the system
// clock is used.
func New(dev Device, notifier Notifier, pipeline Pipeline, cfg Config, clock timeutil.Clock) *Coordinator {
	if clock == nil {
		clock = timeutil.System()
	}
	return &Coordinator{
		dev:      dev,
		notifier: notifier,
		pipeline: pipeline,
		cfg:      cfg,
		clock:    clock,
		logger:   log.WithComponent("camera"),
	}
}

// EnsureInitialized configures and starts the device exactly once,
// regardless of how many callers race on it. Autofocus is best-effort: a
// sensor without motorised focus logs a warning and carries on.
func (c *Coordinator) EnsureInitialized(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	c.logger.Info().
		Str("event", "camera.init").
		Stringer("main", c.cfg.MainResolution).
		Stringer("preview", c.cfg.PreviewResolution).
		Msg("initializing camera")

	if err := c.dev.Configure(c.cfg.MainResolution, c.cfg.PreviewResolution); err != nil {
		return fmt.Errorf("configure camera: %w", err)
	}
	if err := c.dev.Start(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}

	if err := c.dev.SetAutofocus(AutofocusAuto); err != nil {
		c.logger.Warn().
			Err(err).
			Str("event", "camera.autofocus_unavailable").
			Msg("could not set autofocus, continuing without")
	} else if c.cfg.AutofocusSettle > 0 {
		// Give the lens time to settle after the trigger.
		c.clock.Sleep(ctx, c.cfg.AutofocusSettle)
	}

	c.initialized = true
	c.logger.Info().Str("event", "camera.ready").Msg("camera initialized")
	return nil
}

// RecordMotionEvent is the motion-triggered entry point. It never returns an
// error: a missed recording is acceptable degradation and must not crash the
// sensing loop. The device lock is held only for the recording window;
// notification and pipeline work run after it is released so a blocked
// preview request resumes immediately.
func (c *Coordinator) RecordMotionEvent(ctx context.Context) {
	motionEventsTotal.Inc()

	if err := c.EnsureInitialized(ctx); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", "record.init_failed").
			Msg("failed to set up camera for recording")
		recordingsFailedTotal.Inc()
		return
	}

	if err := os.MkdirAll(c.cfg.VideosDir, 0o750); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", "record.mkdir_failed").
			Str("dir", c.cfg.VideosDir).
			Msg("cannot create videos directory")
		recordingsFailedTotal.Inc()
		return
	}

	rawPath := c.newRawPath()
	createdAt := c.clock.Now()

	c.record(ctx, rawPath)

	// Post-recording work runs outside the device lock.
	c.notifier.SendText(ctx, fmt.Sprintf("Motion! Video recorded: %s", filepath.Base(rawPath)))

	clip := Clip{
		ID:        uuid.NewString(),
		RawPath:   rawPath,
		CreatedAt: createdAt,
		Duration:  c.cfg.RecordDuration,
	}
	c.pipeline.Process(ctx, clip)
}

// record holds the device lock for the full recording window. Device errors
// are logged, not returned: post-processing proceeds best-effort with
// whatever partial file exists.
func (c *Coordinator) record(ctx context.Context, rawPath string) {
	started := time.Now()
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		recordingDuration.Observe(time.Since(started).Seconds())
	}()

	if err := c.dev.StartEncoding(rawPath); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", "record.start_failed").
			Str("path", rawPath).
			Msg("could not start encoding")
		recordingsFailedTotal.Inc()
		return
	}
	c.logger.Info().
		Str("event", "record.started").
		Str("path", rawPath).
		Dur("duration", c.cfg.RecordDuration).
		Msg("recording started")

	c.clock.Sleep(ctx, c.cfg.RecordDuration)

	if err := c.dev.StopEncoding(); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", "record.stop_failed").
			Str("path", rawPath).
			Msg("could not stop encoding cleanly")
		recordingsFailedTotal.Inc()
		return
	}
	c.logger.Info().
		Str("event", "record.stopped").
		Str("path", rawPath).
		Msg("recording stopped")
}

// newRawPath derives a unique raw clip path from the current timestamp.
// Filenames are second-resolution; a repeated stamp gets a deterministic
// numeric suffix so two recordings in the same second never collide.
func (c *Coordinator) newRawPath() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	stamp := c.clock.Now().Format("20060102_150405")
	if stamp == c.lastStamp {
		c.stampSeq++
		return filepath.Join(c.cfg.VideosDir, fmt.Sprintf("event_%s_%d.h264", stamp, c.stampSeq))
	}
	c.lastStamp = stamp
	c.stampSeq = 0
	return filepath.Join(c.cfg.VideosDir, fmt.Sprintf("event_%s.h264", stamp))
}

// StartStream marks the live preview active. It returns true immediately if
// the stream is already running (no duplicate notification), and false when
// the camera cannot be initialized.
func (c *Coordinator) StartStream(ctx context.Context) bool {
	c.stateMu.Lock()
	if c.streamActive {
		c.stateMu.Unlock()
		c.logger.Debug().Str("event", "stream.already_active").Msg("stream is already active")
		return true
	}
	c.stateMu.Unlock()

	if err := c.EnsureInitialized(ctx); err != nil {
		c.logger.Error().
			Err(err).
			Str("event", "stream.init_failed").
			Msg("camera could not be initialized for streaming")
		return false
	}

	c.stateMu.Lock()
	c.streamActive = true
	c.stopRequested = false
	c.stateMu.Unlock()
	streamActive.Set(1)

	c.logger.Info().Str("event", "stream.started").Msg("stream marked active")
	c.notifier.SendText(ctx, "Camera live stream started.")
	return true
}

// StopStream requests cooperative termination of the preview. It returns
// false when the stream was not active, which is a no-op signal to the
// caller rather than an error.
func (c *Coordinator) StopStream(ctx context.Context) bool {
	c.stateMu.Lock()
	if !c.streamActive {
		c.stateMu.Unlock()
		c.logger.Debug().Str("event", "stream.not_active").Msg("stream was not active to stop")
		return false
	}
	c.streamActive = false
	c.stopRequested = true
	c.stateMu.Unlock()
	streamActive.Set(0)

	c.logger.Info().Str("event", "stream.stopped").Msg("stream stop requested")
	c.notifier.SendText(ctx, "Camera live stream stopped.")
	return true
}

// StreamStatus reports whether the live preview is active.
func (c *Coordinator) StreamStatus() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.streamActive
}

func (c *Coordinator) streaming() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.streamActive && !c.stopRequested
}

// endStream forces the stream flags down on every frame loop exit so no two
// generator instances can believe the stream is live.
func (c *Coordinator) endStream() {
	c.stateMu.Lock()
	c.streamActive = false
	c.stopRequested = true
	c.stateMu.Unlock()
	streamActive.Set(0)
}
