// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lesson consumes document.ingested, turns extracted document
// text into a structured Lesson via an external text generator, and
// serves lesson CRUD.
package lesson

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/llm"
	"github.com/aleutian-tutor/lessonforge/pkg/retry"
)

// Generator consumes document.ingested events, invokes an external text
// generator, and persists the resulting Lesson.
type Generator struct {
	store *docstore.Store
	bus   *eventbus.Bus
	model llm.Generator
	retry retry.Config
}

// NewGenerator builds a Generator. retryCfg is typically retry.Default().
func NewGenerator(store *docstore.Store, bus *eventbus.Bus, model llm.Generator, retryCfg retry.Config) *Generator {
	return &Generator{store: store, bus: bus, model: model, retry: retryCfg}
}

// Subscribe registers the document.ingested handler on the shared bus,
// in the lessongen queue group so only one replica handles each event.
func (g *Generator) Subscribe() error {
	_, err := eventbus.Subscribe(g.bus, eventbus.SubjectDocumentIngested, eventbus.QueueLessonGenerator, g.handleDocumentIngested)
	return err
}

// handleDocumentIngested is idempotent on document_id: a repeat delivery
// for a document whose lesson already exists and is ready is a no-op.
func (g *Generator) handleDocumentIngested(ctx context.Context, evt eventbus.DocumentIngested) error {
	if existing, found, err := g.store.GetLessonByDocument(ctx, evt.DocumentID); err == nil && found && existing.Status == docstore.LessonReady {
		return nil
	}

	doc, err := g.store.GetDocument(ctx, evt.DocumentID)
	if err != nil {
		return fmt.Errorf("lesson: load document %s: %w", evt.DocumentID, err)
	}

	lessonID := uuid.New().String()
	lessonRow := docstore.Lesson{
		LessonID:    lessonID,
		OwnerUserID: evt.OwnerUserID,
		DocumentID:  evt.DocumentID,
		CreatedAt:   time.Now().UTC(),
		Status:      docstore.LessonGenerating,
	}
	if err := g.store.PutLesson(ctx, lessonRow); err != nil {
		return fmt.Errorf("lesson: persist generating lesson: %w", err)
	}

	result := retry.Do(ctx, g.retry, func(ctx context.Context, attempt int) error {
		parsed, genErr := g.generateOnce(ctx, doc)
		if genErr != nil {
			return genErr
		}
		lessonRow.Title = parsed.Title
		lessonRow.Subject = parsed.Subject
		lessonRow.Sections = parsed.Sections
		return nil
	})

	if result.LastErr != nil {
		slog.Error("lesson: generation failed after retries", "document_id", evt.DocumentID, "attempts", result.Attempts, "error", result.LastErr)
		lessonRow.Status = docstore.LessonFailed
		lessonRow.FailureReason = result.LastErr.Error()
		if err := g.store.PutLesson(ctx, lessonRow); err != nil {
			return fmt.Errorf("lesson: persist failed lesson: %w", err)
		}
		return g.publishReady(ctx, lessonRow, true)
	}

	lessonRow.Status = docstore.LessonReady
	if err := g.store.PutLesson(ctx, lessonRow); err != nil {
		return fmt.Errorf("lesson: persist ready lesson: %w", err)
	}
	return g.publishReady(ctx, lessonRow, false)
}

func (g *Generator) publishReady(ctx context.Context, l docstore.Lesson, failed bool) error {
	evt := eventbus.LessonReady{LessonID: l.LessonID, DocumentID: l.DocumentID, OwnerUserID: l.OwnerUserID, Failed: failed}
	return eventbus.Publish(ctx, g.bus, eventbus.SubjectLessonReady, evt)
}

// generatedLesson is the JSON shape the prompt asks the generator to
// return; a parse failure here is treated as retryable, since a
// different sampling of the same prompt may come back well-formed.
type generatedLesson struct {
	Title    string                   `json:"title"`
	Subject  string                   `json:"subject"`
	Sections []docstore.LessonSection `json:"sections"`
}

func (g *Generator) generateOnce(ctx context.Context, doc docstore.Document) (generatedLesson, error) {
	prompt := buildLessonPrompt(doc)
	raw, err := g.model.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return generatedLesson{}, fmt.Errorf("generate: %w", err)
	}

	var parsed generatedLesson
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return generatedLesson{}, fmt.Errorf("parse lesson JSON: %w", err)
	}
	if parsed.Title == "" || len(parsed.Sections) == 0 {
		return generatedLesson{}, fmt.Errorf("generator returned an incomplete lesson")
	}
	return parsed, nil
}

func buildLessonPrompt(doc docstore.Document) string {
	var b strings.Builder
	b.WriteString("You are producing a structured lesson from the following source text. ")
	b.WriteString("Respond with JSON: {\"title\": string, \"subject\": string, \"sections\": [{\"heading\": string, \"prose\": string}]}.\n\n")
	b.WriteString("Source text:\n")
	b.WriteString(doc.ExtractedText)
	return b.String()
}

// extractJSON trims a generator response down to its outermost JSON
// object, tolerating prose the model may have wrapped around it.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < 0 || end < start {
		return raw
	}
	return raw[start : end+1]
}
