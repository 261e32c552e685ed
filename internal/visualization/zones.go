// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package visualization turns a candidate scene sequence into a
// positioned, timed, persisted Visualization through a five-stage
// pipeline: structural validation, coordinate resolution, animation
// reconciliation, timing, and persistence.
package visualization

// Canvas geometry, fixed and not configurable per request.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
	canvasPad    = 50
	zoneGap      = 20
	zoneCols     = 3
	zoneRows     = 3
)

// Box is an axis-aligned bounding box in canvas pixels.
type Box struct {
	X, Y, W, H float64
}

// zoneWidth and zoneHeight are derived arithmetically from the canvas
// size: three columns and three rows of equal zones separated by
// zoneGap, inset from the canvas edge by canvasPad.
func zoneWidth() float64 {
	return (float64(CanvasWidth) - 2*canvasPad - float64(zoneCols-1)*zoneGap) / zoneCols
}

func zoneHeight() float64 {
	return (float64(CanvasHeight) - 2*canvasPad - float64(zoneRows-1)*zoneGap) / zoneRows
}

// zoneOrder fixes the row-major reading order of the 3x3 grid.
var zoneOrder = []string{
	"top_left", "top_center", "top_right",
	"center_left", "center", "center_right",
	"bottom_left", "bottom_center", "bottom_right",
}

// ZoneBounds returns the bounding box for a named zone, or false if the
// name isn't one of the nine fixed zones.
func ZoneBounds(name string) (Box, bool) {
	idx := -1
	for i, z := range zoneOrder {
		if z == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Box{}, false
	}
	col := idx % zoneCols
	row := idx / zoneCols
	w, h := zoneWidth(), zoneHeight()
	return Box{
		X: canvasPad + float64(col)*(w+zoneGap),
		Y: canvasPad + float64(row)*(h+zoneGap),
		W: w,
		H: h,
	}, true
}
