// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type corsOverlay struct {
	Origins []string `yaml:"origins"`
}

func TestWatchFile_EmptyPathHoldsZeroValueWithNoWatcher(t *testing.T) {
	r, err := WatchFile[corsOverlay]("")
	require.NoError(t, err)
	assert.Nil(t, r.Get().Origins)
	assert.NoError(t, r.Close())
}

func TestWatchFile_LoadsInitialValueFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("origins: [\"https://a.example\"]\n"), 0o644))

	r, err := WatchFile[corsOverlay](path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"https://a.example"}, r.Get().Origins)
}

func TestWatchFile_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("origins: [\"https://a.example\"]\n"), 0o644))

	r, err := WatchFile[corsOverlay](path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, os.WriteFile(path, []byte("origins: [\"https://b.example\"]\n"), 0o644))

	require.Eventually(t, func() bool {
		origins := r.Get().Origins
		return len(origins) == 1 && origins[0] == "https://b.example"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatchFile_MissingFileErrors(t *testing.T) {
	_, err := WatchFile[corsOverlay](filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
