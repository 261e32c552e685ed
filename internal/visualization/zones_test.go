// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package visualization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneBounds_UnknownZoneFails(t *testing.T) {
	_, ok := ZoneBounds("nowhere")
	assert.False(t, ok)
}

func TestZoneBounds_NineZonesTileTheCanvasWithoutOverlap(t *testing.T) {
	names := []string{
		"top_left", "top_center", "top_right",
		"center_left", "center", "center_right",
		"bottom_left", "bottom_center", "bottom_right",
	}
	var boxes []Box
	for _, name := range names {
		box, ok := ZoneBounds(name)
		require.True(t, ok, "zone %s must be a known zone", name)
		assert.Greater(t, box.W, 0.0)
		assert.Greater(t, box.H, 0.0)
		assert.GreaterOrEqual(t, box.X, 0.0)
		assert.GreaterOrEqual(t, box.Y, 0.0)
		assert.LessOrEqual(t, box.X+box.W, float64(CanvasWidth))
		assert.LessOrEqual(t, box.Y+box.H, float64(CanvasHeight))
		boxes = append(boxes, box)
	}
	for i := range boxes {
		for j := range boxes {
			if i == j {
				continue
			}
			assert.False(t, intersects(boxes[i], boxes[j]), "zones %d and %d must not overlap", i, j)
		}
	}
}

func TestZoneBounds_CenterIsCentral(t *testing.T) {
	center, ok := ZoneBounds("center")
	require.True(t, ok)
	midX := center.X + center.W/2
	midY := center.Y + center.H/2
	assert.InDelta(t, float64(CanvasWidth)/2, midX, center.W)
	assert.InDelta(t, float64(CanvasHeight)/2, midY, center.H)
}
