// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package visualization

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// Service runs the five-stage visualization pipeline and serves the
// resulting records over HTTP.
type Service struct {
	store *docstore.Store
	bus   *eventbus.Bus
}

// New builds a Service over store, publishing visualization.ready on bus.
func New(store *docstore.Store, bus *eventbus.Bus) *Service {
	return &Service{store: store, bus: bus}
}

// Routes registers both the read surface and the process endpoint:
// generation can be driven either by the lesson.ready consumer or by a
// caller submitting a candidate visualization directly.
func (s *Service) Routes(r gin.IRouter) {
	r.POST("/api/visualizations/process", s.process)
	r.GET("/api/visualizations/lesson/:lesson_id", s.getLatest)
	r.GET("/api/visualizations/:id", s.getByID)
}

// processRequest is the client-supplied candidate: a lesson id and the
// scenes to run through the pipeline, mirroring what handleLessonReady
// synthesizes internally from a ready lesson.
type processRequest struct {
	LessonID string           `json:"lesson_id" binding:"required"`
	Scenes   []docstore.Scene `json:"scenes" binding:"required"`
}

// process runs a client-supplied candidate visualization through Generate
// synchronously, returning the persisted result or, when stage-1
// validation rejects the candidate outright, 400 invalid_input.
func (s *Service) process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}

	candidate := docstore.Visualization{LessonID: req.LessonID, Scenes: req.Scenes}
	v, err := s.Generate(c.Request.Context(), candidate)
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("publish visualization outcome failed"))
		return
	}
	if v.Status == docstore.VizInvalid {
		httpx.AbortWithError(c, httpx.Validation("invalid_input"))
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Service) getLatest(c *gin.Context) {
	v, err := s.store.GetLatestVisualizationByLesson(c.Request.Context(), c.Param("lesson_id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("no visualization for this lesson"))
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Service) getByID(c *gin.Context) {
	v, err := s.store.GetVisualization(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("no visualization with this id"))
		return
	}
	c.JSON(http.StatusOK, v)
}

// Subscribe registers the lesson.ready handler on the shared bus.
func (s *Service) Subscribe() error {
	_, err := eventbus.Subscribe(s.bus, eventbus.SubjectLessonReady, eventbus.QueueVisualization, s.handleLessonReady)
	return err
}

func (s *Service) handleLessonReady(ctx context.Context, evt eventbus.LessonReady) error {
	if evt.Failed {
		return nil
	}
	l, err := s.store.GetLesson(ctx, evt.LessonID)
	if err != nil {
		return fmt.Errorf("visualization: load lesson %s: %w", evt.LessonID, err)
	}
	candidate := synthesizeFromLesson(l)
	_, err = s.Generate(ctx, candidate)
	return err
}

// Generate runs the five-stage pipeline over candidate and persists the
// result, publishing visualization.ready on completion (success or
// terminal failure). The state machine is
// accepted -> validated -> resolved -> persisted -> served, with
// terminal failures invalid (stage 1) and store_failed (stage 5); there
// is no partial state — either the whole visualization is persisted or
// none of it is.
func (s *Service) Generate(ctx context.Context, candidate docstore.Visualization) (docstore.Visualization, error) {
	v := candidate
	v.Status = docstore.VizAccepted
	v.CanvasWidth = CanvasWidth
	v.CanvasHeight = CanvasHeight

	if errs := validate(v.Scenes); len(errs) > 0 {
		v.Errors = errs
		v.Status = docstore.VizInvalid
		return s.finish(ctx, v)
	}
	v.Status = docstore.VizValidated

	var warnings []string
	warn := func(msg string) { warnings = append(warnings, msg) }

	resolveCoordinates(v.Scenes, warn)
	reconcileAnimations(v.Scenes, warn)
	v.TotalDuration = resolveTiming(v.Scenes, warn)
	v.Warnings = warnings
	v.Status = docstore.VizResolved

	v.VisualizationID = fmt.Sprintf("viz_%s_%s", v.LessonID, time.Now().UTC().Format("20060102150405"))
	v.CreatedAt = time.Now().UTC()

	if err := s.store.PutVisualization(ctx, v); err != nil {
		v.Status = docstore.VizStoreFailed
		return s.publishOutcome(ctx, v)
	}
	v.Status = docstore.VizPersisted
	return s.publishOutcome(ctx, v)
}

// finish handles the stage-1 rejection path: an invalid visualization
// never reached persistence, but is still recorded (best-effort) so a
// later status(lesson_id) lookup can report why it failed.
func (s *Service) finish(ctx context.Context, v docstore.Visualization) (docstore.Visualization, error) {
	v.VisualizationID = fmt.Sprintf("viz_%s_%s", v.LessonID, time.Now().UTC().Format("20060102150405"))
	v.CreatedAt = time.Now().UTC()
	_ = s.store.PutVisualization(ctx, v)
	return s.publishOutcome(ctx, v)
}

func (s *Service) publishOutcome(ctx context.Context, v docstore.Visualization) (docstore.Visualization, error) {
	failed := v.Status == docstore.VizInvalid || v.Status == docstore.VizStoreFailed
	if s.bus != nil {
		evt := eventbus.VisualizationReady{VisualizationID: v.VisualizationID, LessonID: v.LessonID, Failed: failed}
		if err := eventbus.Publish(ctx, s.bus, eventbus.SubjectVisualizationReady, evt); err != nil {
			return v, err
		}
	}
	return v, nil
}

// synthesizeFromLesson builds a candidate visualization directly from a
// lesson's sections when no dedicated visualization generator is
// configured: one scene per section, its shapes a title and a
// zone-placed text block carrying the section's prose.
func synthesizeFromLesson(l docstore.Lesson) docstore.Visualization {
	scenes := make([]docstore.Scene, 0, len(l.Sections))
	for i, sec := range l.Sections {
		scenes = append(scenes, docstore.Scene{
			SceneID:  fmt.Sprintf("%s_scene_%d", l.LessonID, i),
			Title:    sec.Heading,
			Duration: estimateReadDuration(sec.Prose),
			Shapes: []docstore.Shape{
				{Type: "text", Zone: "top_center", Text: sec.Heading},
				{Type: "text", Zone: "center", Text: sec.Prose},
			},
		})
	}
	return docstore.Visualization{LessonID: l.LessonID, Scenes: scenes}
}

// estimateReadDuration assumes roughly 2.3 words/second narration pace,
// floored at 4 seconds so an empty or tiny section still gets screen
// time.
func estimateReadDuration(prose string) float64 {
	words := 0
	inWord := false
	for _, r := range prose {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			words++
			inWord = true
		}
	}
	d := float64(words) / 2.3
	if d < 4 {
		d = 4
	}
	return d
}
