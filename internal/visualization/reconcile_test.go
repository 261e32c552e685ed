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

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

func TestValidate_RejectsNonPositiveDuration(t *testing.T) {
	errs := validate([]docstore.Scene{{Duration: 0}})
	assert.NotEmpty(t, errs)
}

func TestValidate_RejectsShapeWithNeitherXYNorZone(t *testing.T) {
	errs := validate([]docstore.Scene{{
		Duration: 5,
		Shapes:   []docstore.Shape{{Type: "text", Text: "hi"}},
	}})
	assert.NotEmpty(t, errs)
}

func TestValidate_RejectsAnimationReferencingMissingShape(t *testing.T) {
	errs := validate([]docstore.Scene{{
		Duration:   5,
		Shapes:     []docstore.Shape{{Type: "text", Zone: "center", Text: "hi"}},
		Animations: []docstore.Animation{{ShapeIndex: 3}},
	}})
	assert.NotEmpty(t, errs)
}

func TestValidate_RejectsEmptyTextAndMissingImageID(t *testing.T) {
	errs := validate([]docstore.Scene{{
		Duration: 5,
		Shapes: []docstore.Shape{
			{Type: "text", Zone: "center", Text: ""},
			{Type: "image", Zone: "center"},
		},
	}})
	assert.Len(t, errs, 2)
}

func TestValidate_AcceptsWellFormedScene(t *testing.T) {
	errs := validate([]docstore.Scene{{
		Duration: 5,
		Shapes:   []docstore.Shape{{Type: "text", Zone: "center", Text: "hi"}},
	}})
	assert.Empty(t, errs)
}

func TestResolveCoordinates_LeavesExplicitShapesAlone(t *testing.T) {
	scenes := []docstore.Scene{{
		Shapes: []docstore.Shape{{Type: "text", HasXY: true, X: 42, Y: 7, Text: "x"}},
	}}
	resolveCoordinates(scenes, func(string) {})
	assert.Equal(t, 42.0, scenes[0].Shapes[0].X)
	assert.Equal(t, 7.0, scenes[0].Shapes[0].Y)
}

func TestResolveCoordinates_PlacesZonedShapes(t *testing.T) {
	scenes := []docstore.Scene{{
		Shapes: []docstore.Shape{{Type: "text", Zone: "top_right", Text: "x"}},
	}}
	resolveCoordinates(scenes, func(string) {})
	assert.True(t, scenes[0].Shapes[0].HasXY)
}

func TestReconcileAnimations_ExtendsSceneDurationToCoverLatestAnimation(t *testing.T) {
	scenes := []docstore.Scene{{
		Duration:   3,
		Animations: []docstore.Animation{{Start: 2, Duration: 5}},
	}}
	reconcileAnimations(scenes, func(string) {})
	assert.Equal(t, 7.0, scenes[0].Duration)
}

func TestReconcileAnimations_ClampsNegativeStartToZero(t *testing.T) {
	scenes := []docstore.Scene{{
		Duration:   3,
		Animations: []docstore.Animation{{Start: -5, Duration: 1}},
	}}
	var warnings []string
	reconcileAnimations(scenes, func(msg string) { warnings = append(warnings, msg) })
	assert.Equal(t, 0.0, scenes[0].Animations[0].Start)
	assert.NotEmpty(t, warnings)
}

func TestResolveTiming_SumsSceneDurations(t *testing.T) {
	scenes := []docstore.Scene{{Duration: 3}, {Duration: 4}, {Duration: 5}}
	total := resolveTiming(scenes, func(string) {})
	assert.Equal(t, 12.0, total)
}

func TestResolveTiming_TruncatesAudioExceedingSceneDuration(t *testing.T) {
	scenes := []docstore.Scene{{
		Duration: 5,
		Audio:    &docstore.Audio{StartTime: 2, Duration: 10},
	}}
	var warnings []string
	resolveTiming(scenes, func(msg string) { warnings = append(warnings, msg) })
	assert.Equal(t, 3.0, scenes[0].Audio.Duration)
	assert.NotEmpty(t, warnings)
}
