// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import "time"

// Clip describes one motion-triggered capture. RawPath is always set;
// ContainerPath and ThumbnailPath are filled in by the pipeline and stay
// empty when the corresponding stage failed. An empty path is a valid
// terminal state, not corruption.
type Clip struct {
	ID            string
	RawPath       string
	ContainerPath string
	ThumbnailPath string
	CreatedAt     time.Time
	Duration      time.Duration
}
