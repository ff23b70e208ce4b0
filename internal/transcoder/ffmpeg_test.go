// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transcoder

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
}

func TestNewRequiresAbsolutePath(t *testing.T) {
	_, err := New("ffmpeg")
	assert.Error(t, err)

	_, err = New("/usr/bin/ffmpeg")
	assert.NoError(t, err)
}

func TestToMP4MissingBinary(t *testing.T) {
	f, err := New(filepath.Join(t.TempDir(), "ffmpeg"))
	require.NoError(t, err)

	_, err = f.ToMP4(context.Background(), "/tmp/event.h264")
	assert.ErrorIs(t, err, ErrToolMissing)
}

func TestExtractThumbnailMissingBinary(t *testing.T) {
	f, err := New(filepath.Join(t.TempDir(), "ffmpeg"))
	require.NoError(t, err)

	_, err = f.ExtractThumbnail(context.Background(), "/tmp/event.mp4", t.TempDir())
	assert.ErrorIs(t, err, ErrToolMissing)
}

func TestDerivedPaths(t *testing.T) {
	// Exercise the path derivation through a stubbed "ffmpeg" that just
	// exits successfully.
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	writeStub(t, stub)

	f, err := New(stub)
	require.NoError(t, err)

	mp4, err := f.ToMP4(context.Background(), "/data/videos/event_20240101_000000.h264")
	require.NoError(t, err)
	assert.Equal(t, "/data/videos/event_20240101_000000.mp4", mp4)

	thumbs := t.TempDir()
	thumb, err := f.ExtractThumbnail(context.Background(), mp4, thumbs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(thumbs, "event_20240101_000000_thumb.jpg"), thumb)
}
