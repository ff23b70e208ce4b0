// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package motion polls a PIR sensor and triggers motion recordings. The
// debounce policy lives here, not in the camera coordinator: the watcher
// settles the sensor on startup, dispatches each event synchronously, waits
// for the sensor to clear and applies an extra cooldown before re-arming.
package motion

import (
	"context"
	"time"

	"github.com/ManuGH/pisentry/internal/log"
	"github.com/ManuGH/pisentry/internal/timeutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var triggersTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pisentry_motion_triggers_total",
	Help: "Number of PIR triggers dispatched to the coordinator",
})

// Sensor reports whether motion is currently detected.
type Sensor interface {
	MotionDetected() (bool, error)
}

// Handler receives motion events. Dispatch is synchronous: the watcher does
// not re-arm until the handler returns.
type Handler interface {
	RecordMotionEvent(ctx context.Context)
}

// Config holds the watcher's debounce policy.
type Config struct {
	// Settle is the warm-up delay before the sensor is trusted.
	Settle time.Duration
	// Cooldown is applied after motion clears, before re-arming.
	Cooldown time.Duration
	// PollInterval is the sensor polling cadence.
	PollInterval time.Duration
}

// Watcher runs the motion polling loop.
type Watcher struct {
	sensor  Sensor
	handler Handler
	cfg     Config
	clock   timeutil.Clock
	logger  zerolog.Logger
}

// New constructs a Watcher. clock may be nil, in which case the system
// clock is used.
func New(sensor Sensor, handler Handler, cfg Config, clock timeutil.Clock) *Watcher {
	if clock == nil {
		clock = timeutil.System()
	}
	return &Watcher{
		sensor:  sensor,
		handler: handler,
		cfg:     cfg,
		clock:   clock,
		logger:  log.WithComponent("motion"),
	}
}

// Run polls the sensor until ctx is cancelled. Sensor read errors are logged
// and retried on the next poll; they never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.Settle > 0 {
		w.logger.Info().
			Str("event", "motion.settling").
			Dur("settle", w.cfg.Settle).
			Msg("allowing PIR sensor to settle")
		w.clock.Sleep(ctx, w.cfg.Settle)
	}
	w.logger.Info().Str("event", "motion.armed").Msg("monitoring for motion")

	for ctx.Err() == nil {
		detected, err := w.sensor.MotionDetected()
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("event", "motion.read_failed").
				Msg("could not read PIR sensor")
			w.clock.Sleep(ctx, w.cfg.PollInterval)
			continue
		}

		if detected {
			triggersTotal.Inc()
			w.logger.Info().Str("event", "motion.detected").Msg("motion detected by PIR sensor")

			// Blocks for the recording duration plus pipeline time, so
			// motion events never overlap.
			w.handler.RecordMotionEvent(ctx)

			w.waitForClear(ctx)
			if w.cfg.Cooldown > 0 {
				w.logger.Info().
					Str("event", "motion.cooldown").
					Dur("cooldown", w.cfg.Cooldown).
					Msg("motion cleared, applying cooldown")
				w.clock.Sleep(ctx, w.cfg.Cooldown)
			}
			w.logger.Info().Str("event", "motion.rearmed").Msg("resuming motion monitoring")
			continue
		}

		w.clock.Sleep(ctx, w.cfg.PollInterval)
	}
	return ctx.Err()
}

func (w *Watcher) waitForClear(ctx context.Context) {
	for ctx.Err() == nil {
		detected, err := w.sensor.MotionDetected()
		if err != nil {
			w.logger.Error().
				Err(err).
				Str("event", "motion.read_failed").
				Msg("could not read PIR sensor while waiting for clear")
		} else if !detected {
			return
		}
		w.clock.Sleep(ctx, w.cfg.PollInterval)
	}
}
