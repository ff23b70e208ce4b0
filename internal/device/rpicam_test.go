// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/pisentry/internal/camera"
)

func TestNewRpicamRequiresAbsolutePaths(t *testing.T) {
	_, err := NewRpicam("rpicam-vid", "/usr/bin/rpicam-still")
	assert.Error(t, err)

	_, err = NewRpicam("/usr/bin/rpicam-vid", "rpicam-still")
	assert.Error(t, err)

	_, err = NewRpicam("/usr/bin/rpicam-vid", "/usr/bin/rpicam-still")
	assert.NoError(t, err)
}

func TestConfigureRejectsInvalidLayout(t *testing.T) {
	d, err := NewRpicam("/usr/bin/rpicam-vid", "/usr/bin/rpicam-still")
	require.NoError(t, err)

	main := camera.Resolution{Width: 800, Height: 600}
	preview := camera.Resolution{Width: 640, Height: 360}

	assert.Error(t, d.Configure(camera.Resolution{}, preview))
	assert.Error(t, d.Configure(main, camera.Resolution{Width: 640}))
	assert.NoError(t, d.Configure(main, preview))
}

func TestStartProbesBinaries(t *testing.T) {
	dir := t.TempDir()
	vid := filepath.Join(dir, "rpicam-vid")
	still := filepath.Join(dir, "rpicam-still")

	d, err := NewRpicam(vid, still)
	require.NoError(t, err)

	// Missing binaries.
	assert.Error(t, d.Start())

	// Present but not executable.
	require.NoError(t, os.WriteFile(vid, []byte("#!/bin/sh\n"), 0o644))
	require.NoError(t, os.WriteFile(still, []byte("#!/bin/sh\n"), 0o644))
	assert.Error(t, d.Start())

	// Executable.
	require.NoError(t, os.Chmod(vid, 0o755))
	require.NoError(t, os.Chmod(still, 0o755))
	assert.NoError(t, d.Start())
}

func TestSetAutofocusMode(t *testing.T) {
	d, err := NewRpicam("/usr/bin/rpicam-vid", "/usr/bin/rpicam-still")
	require.NoError(t, err)

	err = d.SetAutofocus(camera.AutofocusMode("continuous"))
	assert.ErrorIs(t, err, camera.ErrUnsupported)

	assert.NoError(t, d.SetAutofocus(camera.AutofocusAuto))
}

func TestStopEncodingWithoutEncoder(t *testing.T) {
	d, err := NewRpicam("/usr/bin/rpicam-vid", "/usr/bin/rpicam-still")
	require.NoError(t, err)

	assert.Error(t, d.StopEncoding())
}
