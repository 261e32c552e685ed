// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package visualization

import "github.com/aleutian-tutor/lessonforge/pkg/docstore"

const placementMargin = 8

// packZone places each shape assigned to zoneName inside that zone's
// bounds without overlapping an already-placed shape in the same scene.
// It sweeps right then down on a grid whose step is the shape's own
// bounding box plus a small margin. A shape that can't fit anywhere in
// the zone falls back to the zone's center — overlap permitted — and
// the call records a warning; layout never fails the visualization.
func packZone(zoneName string, shapes []int, scene *docstore.Scene, warn func(string)) {
	bounds, ok := ZoneBounds(zoneName)
	if !ok {
		warn("unknown zone " + zoneName + ", falling back to canvas center")
		bounds = Box{X: CanvasWidth / 2, Y: CanvasHeight / 2, W: 0, H: 0}
	}

	var placed []Box
	for _, idx := range shapes {
		shape := &scene.Shapes[idx]
		w, h := shapeBounds(*shape)
		shape.Width, shape.Height = w, h

		box, fit := findSlot(bounds, w, h, placed)
		if !fit {
			warn("zone " + zoneName + " exhausted, placing shape at zone center with overlap permitted")
			box = Box{X: bounds.X + bounds.W/2 - w/2, Y: bounds.Y + bounds.H/2 - h/2, W: w, H: h}
		}
		shape.X, shape.Y = box.X, box.Y
		shape.HasXY = true
		placed = append(placed, box)
	}
}

// findSlot sweeps a grid of step (w+margin, h+margin) across bounds,
// returning the first candidate box that doesn't intersect any box
// already in placed.
func findSlot(bounds Box, w, h float64, placed []Box) (Box, bool) {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	stepX := w + placementMargin
	stepY := h + placementMargin

	for y := bounds.Y; y+h <= bounds.Y+bounds.H; y += stepY {
		for x := bounds.X; x+w <= bounds.X+bounds.W; x += stepX {
			candidate := Box{X: x, Y: y, W: w, H: h}
			if !intersectsAny(candidate, placed) {
				return candidate, true
			}
		}
	}
	return Box{}, false
}

func intersectsAny(b Box, placed []Box) bool {
	for _, p := range placed {
		if intersects(b, p) {
			return true
		}
	}
	return false
}

func intersects(a, b Box) bool {
	return a.X < b.X+b.W && a.X+a.W > b.X && a.Y < b.Y+b.H && a.Y+a.H > b.Y
}

// shapeBounds estimates a shape's axis-aligned bounding box from its
// type-specific attributes. Shapes that already carry a resolved
// Width/Height (e.g. supplied by the generator) keep it.
func shapeBounds(s docstore.Shape) (w, h float64) {
	if s.Width > 0 && s.Height > 0 {
		return s.Width, s.Height
	}
	switch s.Type {
	case "circle":
		d := s.Radius * 2
		if d <= 0 {
			d = 80
		}
		return d, d
	case "text":
		w := float64(len(s.Text)) * 10
		if w < 60 {
			w = 60
		}
		return w, 30
	case "image":
		return 320, 240
	case "line", "arrow", "polygon":
		return boundsFromPoints(s.Points)
	default:
		return 120, 80
	}
}

func boundsFromPoints(points []float64) (w, h float64) {
	if len(points) < 2 {
		return 120, 80
	}
	minX, maxX := points[0], points[0]
	minY, maxY := points[1], points[1]
	for i := 0; i+1 < len(points); i += 2 {
		if points[i] < minX {
			minX = points[i]
		}
		if points[i] > maxX {
			maxX = points[i]
		}
		if points[i+1] < minY {
			minY = points[i+1]
		}
		if points[i+1] > maxY {
			maxY = points[i+1]
		}
	}
	w, h = maxX-minX, maxY-minY
	if w <= 0 {
		w = 10
	}
	if h <= 0 {
		h = 10
	}
	return w, h
}
