// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package device implements the camera.Device interface on top of the
// rpicam-apps command line tools (rpicam-vid, rpicam-still).
package device

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ManuGH/pisentry/internal/camera"
	"github.com/ManuGH/pisentry/internal/log"
	"github.com/rs/zerolog"
)

// stopGrace is how long StopEncoding waits for rpicam-vid to flush and exit
// after SIGINT before killing it.
const stopGrace = 5 * time.Second

// Rpicam drives the Raspberry Pi camera through the rpicam-apps binaries.
// It is not safe for concurrent use; the coordinator's device lock
// serializes all calls.
type Rpicam struct {
	vidPath   string
	stillPath string
	logger    zerolog.Logger

	main      camera.Resolution
	preview   camera.Resolution
	autofocus bool

	encoder *exec.Cmd
	stderr  *bytes.Buffer
}

// NewRpicam creates a device backed by the given rpicam-vid and rpicam-still
// binaries. Both paths must be absolute.
func NewRpicam(vidPath, stillPath string) (*Rpicam, error) {
	for _, p := range []string{vidPath, stillPath} {
		clean := filepath.Clean(p)
		if !filepath.IsAbs(clean) {
			return nil, fmt.Errorf("rpicam binary path must be absolute: %s", p)
		}
	}
	return &Rpicam{
		vidPath:   filepath.Clean(vidPath),
		stillPath: filepath.Clean(stillPath),
		logger:    log.WithComponent("device"),
	}, nil
}

// Configure records the dual-stream layout. The rpicam tools take the
// resolution per invocation, so this only validates and stores it.
func (d *Rpicam) Configure(main, preview camera.Resolution) error {
	if main.Width <= 0 || main.Height <= 0 || preview.Width <= 0 || preview.Height <= 0 {
		return fmt.Errorf("invalid stream layout main=%s preview=%s", main, preview)
	}
	d.main = main
	d.preview = preview
	return nil
}

// Start probes that the capture binaries exist and are runnable.
func (d *Rpicam) Start() error {
	for _, p := range []string{d.vidPath, d.stillPath} {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("camera tool unavailable: %w", err)
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return fmt.Errorf("camera tool not executable: %s", p)
		}
	}
	return nil
}

// SetAutofocus records the autofocus mode for subsequent invocations.
func (d *Rpicam) SetAutofocus(mode camera.AutofocusMode) error {
	if mode != camera.AutofocusAuto {
		return fmt.Errorf("autofocus mode %q: %w", mode, camera.ErrUnsupported)
	}
	d.autofocus = true
	return nil
}

// StartEncoding spawns rpicam-vid writing H.264 to path until StopEncoding.
func (d *Rpicam) StartEncoding(path string) error {
	if d.encoder != nil {
		return fmt.Errorf("encoder already running")
	}

	args := []string{
		"--width", strconv.Itoa(d.main.Width),
		"--height", strconv.Itoa(d.main.Height),
		"--timeout", "0", // run until signalled
		"--nopreview",
		"--codec", "h264",
		"--output", path,
	}
	if d.autofocus {
		args = append(args, "--autofocus-mode", "auto")
	}

	stderr := &bytes.Buffer{}
	cmd := exec.Command(d.vidPath, args...) // #nosec G204 -- binary path validated at construction
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start rpicam-vid: %w", err)
	}

	d.encoder = cmd
	d.stderr = stderr
	d.logger.Debug().
		Str("event", "device.encoding_started").
		Str("path", path).
		Int("pid", cmd.Process.Pid).
		Msg("rpicam-vid started")
	return nil
}

// StopEncoding signals the encoder to flush and exit.
func (d *Rpicam) StopEncoding() error {
	cmd := d.encoder
	if cmd == nil {
		return fmt.Errorf("no encoder running")
	}
	d.encoder = nil

	// rpicam-vid finalizes the output on SIGINT.
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("signal rpicam-vid: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		// Exit status after SIGINT is expected to be non-zero on some
		// rpicam-apps versions; a finalized file is all that matters.
		if err != nil {
			d.logger.Debug().
				Err(err).
				Str("event", "device.encoder_exit").
				Str("stderr", truncate(d.stderr.String(), 512)).
				Msg("rpicam-vid exited non-zero after SIGINT")
		}
		return nil
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("rpicam-vid did not exit within %s", stopGrace)
	}
}

// CaptureFrame grabs a single preview-resolution JPEG via rpicam-still.
func (d *Rpicam) CaptureFrame(ctx context.Context) ([]byte, error) {
	args := []string{
		"--width", strconv.Itoa(d.preview.Width),
		"--height", strconv.Itoa(d.preview.Height),
		"--timeout", "1",
		"--nopreview",
		"--encoding", "jpg",
		"--output", "-",
	}
	if d.autofocus {
		args = append(args, "--autofocus-mode", "auto")
	}

	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, d.stillPath, args...) // #nosec G204 -- binary path validated at construction
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("rpicam-still: %w (stderr: %s)", err, truncate(stderr.String(), 512))
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
