// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package camera coordinates exclusive access to the physical camera across
// live preview streaming and motion-triggered recording, and drives the
// post-recording pipeline.
package camera

import (
	"context"
	"errors"
	"fmt"
)

// Resolution is a sensor stream size in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AutofocusMode selects the autofocus behaviour of the sensor.
type AutofocusMode string

// AutofocusAuto triggers a single autofocus cycle.
const AutofocusAuto AutofocusMode = "auto"

// ErrUnsupported is returned by SetAutofocus when the sensor has no motorised
// focus. Callers treat it as a degraded feature, not a failure.
var ErrUnsupported = errors.New("autofocus not supported")

// Device is the physical camera. Implementations are not required to be
// safe for concurrent use; the Coordinator serializes every call behind its
// device lock.
type Device interface {
	// Configure sets up the dual-stream layout: a main stream for
	// recording and a lower-resolution stream for preview frames.
	Configure(main, preview Resolution) error
	// Start brings the configured sensor up.
	Start() error
	// SetAutofocus enables autofocus, returning ErrUnsupported when the
	// hardware cannot.
	SetAutofocus(mode AutofocusMode) error
	// StartEncoding begins writing the main stream to path.
	StartEncoding(path string) error
	// StopEncoding finishes the in-progress encode.
	StopEncoding() error
	// CaptureFrame grabs one preview frame as JPEG bytes.
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// Notifier delivers operator alerts. Implementations are best-effort and
// must never propagate delivery failures.
type Notifier interface {
	SendText(ctx context.Context, message string)
}

// Pipeline consumes a completed raw clip for post-processing.
type Pipeline interface {
	Process(ctx context.Context, clip Clip)
}
