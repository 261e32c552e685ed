// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package visualization

import (
	"fmt"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

// validate is stage 1: every scene has a positive duration, every
// animation references a shape index that exists in its scene, every
// shape declares either explicit (x, y) or a zone, images carry a
// usable reference, and text carries non-empty content. It never
// mutates scenes — any error here means the whole visualization is
// rejected with status=invalid and no partial rendering.
func validate(scenes []docstore.Scene) []string {
	var errs []string
	for si, scene := range scenes {
		if scene.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("scene %d: duration must be positive", si))
		}
		for shi, shape := range scene.Shapes {
			if !shape.HasXY && shape.Zone == "" {
				errs = append(errs, fmt.Sprintf("scene %d shape %d: must declare either (x, y) or a zone", si, shi))
			}
			if shape.Type == "image" && shape.ImageID == "" {
				errs = append(errs, fmt.Sprintf("scene %d shape %d: image shape has no image_id", si, shi))
			}
			if shape.Type == "text" && shape.Text == "" {
				errs = append(errs, fmt.Sprintf("scene %d shape %d: text shape has empty content", si, shi))
			}
		}
		for ai, anim := range scene.Animations {
			if anim.ShapeIndex < 0 || anim.ShapeIndex >= len(scene.Shapes) {
				errs = append(errs, fmt.Sprintf("scene %d animation %d: references nonexistent shape index %d", si, ai, anim.ShapeIndex))
			}
		}
	}
	return errs
}

// resolveCoordinates is stage 2: groups each scene's zone-placed shapes
// by zone and packs them, leaving explicitly-positioned shapes alone.
func resolveCoordinates(scenes []docstore.Scene, warn func(string)) {
	for si := range scenes {
		scene := &scenes[si]
		byZone := make(map[string][]int)
		for shi, shape := range scene.Shapes {
			if shape.HasXY {
				continue
			}
			byZone[shape.Zone] = append(byZone[shape.Zone], shi)
		}
		for zone, indices := range byZone {
			packZone(zone, indices, scene, func(msg string) {
				warn(fmt.Sprintf("scene %d: %s", si, msg))
			})
		}
	}
}

// reconcileAnimations is stage 3: extends a scene's duration to cover
// its latest animation, and clamps negative start times to 0.
func reconcileAnimations(scenes []docstore.Scene, warn func(string)) {
	for si := range scenes {
		scene := &scenes[si]
		latest := 0.0
		for ai := range scene.Animations {
			anim := &scene.Animations[ai]
			if anim.Start < 0 {
				warn(fmt.Sprintf("scene %d animation %d: negative start clamped to 0", si, ai))
				anim.Start = 0
			}
			end := anim.Start + anim.Duration
			if end > latest {
				latest = end
			}
		}
		if latest > scene.Duration {
			warn(fmt.Sprintf("scene %d: extended duration from %.2f to %.2f to cover animations", si, scene.Duration, latest))
			scene.Duration = latest
		}
	}
}

// resolveTiming is stage 4: truncates audio that would run past its
// scene's duration and returns the summed total duration.
func resolveTiming(scenes []docstore.Scene, warn func(string)) float64 {
	total := 0.0
	for si := range scenes {
		scene := &scenes[si]
		total += scene.Duration

		if scene.Audio == nil {
			continue
		}
		audio := scene.Audio
		if audio.StartTime+audio.Duration > scene.Duration {
			warn(fmt.Sprintf("scene %d: audio truncated to fit scene duration", si))
			audio.Duration = scene.Duration - audio.StartTime
			if audio.Duration < 0 {
				audio.Duration = 0
			}
		}
	}
	return total
}
