// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package visualization

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/stretchr/testify/assert"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

func init() { gin.SetMode(gin.TestMode) }

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	db, err := docstore.OpenDB(docstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return docstore.New(db)
}

func TestGenerate_WellFormedCandidateReachesPersisted(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)

	candidate := docstore.Visualization{
		LessonID: "lesson-1",
		Scenes: []docstore.Scene{{
			SceneID:  "lesson-1_scene_0",
			Duration: 5,
			Shapes:   []docstore.Shape{{Type: "text", Zone: "center", Text: "hello"}},
		}},
	}

	v, err := svc.Generate(context.Background(), candidate)
	require.NoError(t, err)
	assert.Equal(t, docstore.VizPersisted, v.Status)
	assert.NotEmpty(t, v.VisualizationID)
	assert.Empty(t, v.Errors)

	stored, err := store.GetLatestVisualizationByLesson(context.Background(), "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, v.VisualizationID, stored.VisualizationID)
}

func TestGenerate_InvalidCandidateEndsInvalidWithErrors(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)

	candidate := docstore.Visualization{
		LessonID: "lesson-2",
		Scenes:   []docstore.Scene{{Duration: 0}},
	}

	v, err := svc.Generate(context.Background(), candidate)
	require.NoError(t, err)
	assert.Equal(t, docstore.VizInvalid, v.Status)
	assert.NotEmpty(t, v.Errors)
}

func TestProcess_WellFormedCandidateReturns200AndIsFetchableByIDAndByLesson(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)
	r := gin.New()
	svc.Routes(r)

	body := `{"lesson_id":"lesson-4","scenes":[{"scene_id":"lesson-4_scene_0","duration":5,"shapes":[{"type":"text","zone":"center","text":"hello"}]}]}`
	w := doJSON(r, http.MethodPost, "/api/visualizations/process", body)
	require.Equal(t, http.StatusOK, w.Code)

	var v docstore.Visualization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, docstore.VizPersisted, v.Status)
	assert.NotEmpty(t, v.VisualizationID)

	byID := httptest.NewRequest(http.MethodGet, "/api/visualizations/"+v.VisualizationID, nil)
	wID := httptest.NewRecorder()
	r.ServeHTTP(wID, byID)
	assert.Equal(t, http.StatusOK, wID.Code)

	byLesson := httptest.NewRequest(http.MethodGet, "/api/visualizations/lesson/lesson-4", nil)
	wLesson := httptest.NewRecorder()
	r.ServeHTTP(wLesson, byLesson)
	assert.Equal(t, http.StatusOK, wLesson.Code)
}

func TestProcess_InvalidCandidateReturns400(t *testing.T) {
	store := newTestStore(t)
	svc := New(store, nil)
	r := gin.New()
	svc.Routes(r)

	body := `{"lesson_id":"lesson-5","scenes":[{"scene_id":"lesson-5_scene_0","duration":0}]}`
	w := doJSON(r, http.MethodPost, "/api/visualizations/process", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSynthesizeFromLesson_OneSceneWithTwoShapesPerSection(t *testing.T) {
	l := docstore.Lesson{
		LessonID: "lesson-3",
		Sections: []docstore.LessonSection{
			{Heading: "Intro", Prose: "a short section"},
			{Heading: "Body", Prose: "another section here"},
		},
	}

	v := synthesizeFromLesson(l)
	require.Len(t, v.Scenes, 2)
	for _, scene := range v.Scenes {
		assert.Len(t, scene.Shapes, 2)
		assert.Greater(t, scene.Duration, 0.0)
	}
}

func TestEstimateReadDuration_FloorsAtFourSeconds(t *testing.T) {
	assert.Equal(t, 4.0, estimateReadDuration(""))
	assert.Equal(t, 4.0, estimateReadDuration("one two"))
}

func TestEstimateReadDuration_ScalesWithWordCount(t *testing.T) {
	prose := "one two three four five six seven eight nine ten eleven twelve"
	d := estimateReadDuration(prose)
	assert.InDelta(t, 12.0/2.3, d, 0.01)
}
