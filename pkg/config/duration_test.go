// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration_SupportsEachSimpleUnit(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"2h":  2 * time.Hour,
		"14d": 14 * 24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for s, want := range cases {
		got, err := ParseDuration(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
}

func TestParseDuration_FallsBackToGoNativeSyntax(t *testing.T) {
	got, err := ParseDuration("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got)
}

func TestParseDuration_RejectsEmptyString(t *testing.T) {
	_, err := ParseDuration("")
	assert.Error(t, err)
}

func TestParseDuration_RejectsBelowMinimum(t *testing.T) {
	_, err := ParseDuration("10s")
	assert.Error(t, err)
}

func TestParseDuration_RejectsAboveMaximum(t *testing.T) {
	_, err := ParseDuration("4000d")
	assert.Error(t, err)
}

func TestMustParseDuration_PanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { MustParseDuration("") })
}

func TestMustParseDuration_ReturnsParsedValueOnValidInput(t *testing.T) {
	assert.Equal(t, 15*time.Minute, MustParseDuration("15m"))
}
