// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package camera

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"golang.org/x/time/rate"
)

// Boundary is the multipart boundary used for MJPEG parts.
const Boundary = "frame"

// Frames returns the live MJPEG part sequence. Each yielded block is one
// complete multipart part: boundary line, content headers and the raw JPEG
// bytes. The sequence runs until the stream is stopped, the context is
// cancelled, the consumer stops pulling, or the device errors; every exit
// path forces the stream inactive. The sequence is restartable: each call
// produces an independent generator.
func (c *Coordinator) Frames(ctx context.Context) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		defer c.endStream()

		if err := c.EnsureInitialized(ctx); err != nil {
			c.logger.Error().
				Err(err).
				Str("event", "stream.unavailable").
				Msg("camera could not be initialized for MJPEG stream")
			yield(textPart("Error: camera could not be initialized for MJPEG stream."))
			return
		}

		c.logger.Info().Str("event", "stream.generating").Msg("MJPEG generation started")

		limiter := rate.NewLimiter(rate.Every(c.cfg.FrameInterval), 1)
		frames := 0
		defer func() {
			c.logger.Info().
				Str("event", "stream.ended").
				Int("frames", frames).
				Msg("MJPEG generation stopped")
		}()

		for c.streaming() && ctx.Err() == nil {
			c.mu.Lock()
			frame, err := c.dev.CaptureFrame(ctx)
			c.mu.Unlock()
			if err != nil {
				c.logger.Error().
					Err(err).
					Str("event", "stream.capture_failed").
					Msg("frame capture failed, ending stream")
				return
			}

			if !yield(jpegPart(frame)) {
				return
			}
			frames++
			framesServedTotal.Inc()

			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
	}
}

func jpegPart(frame []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(frame))
	b.Write(frame)
	b.WriteString("\r\n")
	return b.Bytes()
}

func textPart(msg string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s\r\n", Boundary, len(msg), msg)
	return b.Bytes()
}
