// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfineRelPathAllowsFilesUnderRoot(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "event_a.mp4")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o600))

	got, err := ConfineRelPath(root, "event_a.mp4")
	require.NoError(t, err)

	// Resolve the root the same way the implementation does (macOS tmp
	// dirs are symlinked).
	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(realRoot, "event_a.mp4"), got)
}

func TestConfineRelPathRejectsTraversal(t *testing.T) {
	root := t.TempDir()

	for _, target := range []string{
		"..",
		"../secret",
		"../../etc/passwd",
		"a/../../secret",
	} {
		_, err := ConfineRelPath(root, target)
		assert.Error(t, err, "target %q must be rejected", target)
	}
}

func TestConfineRelPathRejectsAbsolute(t *testing.T) {
	_, err := ConfineRelPath(t.TempDir(), "/etc/passwd")
	assert.Error(t, err)
}

func TestConfineRelPathRejectsBackslash(t *testing.T) {
	_, err := ConfineRelPath(t.TempDir(), `..\secret`)
	assert.Error(t, err)
}

func TestConfineRelPathRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("x"), 0o600))
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "link")))

	_, err := ConfineRelPath(root, "link")
	assert.Error(t, err)
}

func TestConfineRelPathMissingFile(t *testing.T) {
	_, err := ConfineRelPath(t.TempDir(), "nope.mp4")
	assert.True(t, os.IsNotExist(err))
}
