// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package quiz consumes lesson.ready, generates a multiple-choice quiz
// from a lesson's sections via an external text generator, and serves
// quiz retrieval and scored submission.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/eventbus"
	"github.com/aleutian-tutor/lessonforge/pkg/llm"
	"github.com/aleutian-tutor/lessonforge/pkg/retry"
)

// Generator consumes lesson.ready events, invokes an external text
// generator, and persists the resulting Quiz.
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

// Subscribe registers the lesson.ready handler on the shared bus, in the
// quiznotes queue group so only one replica handles each event.
func (g *Generator) Subscribe() error {
	_, err := eventbus.Subscribe(g.bus, eventbus.SubjectLessonReady, eventbus.QueueQuizNotes, g.handleLessonReady)
	return err
}

// handleLessonReady is idempotent on lesson_id: a repeat delivery for a
// lesson whose quiz already exists and is ready is a no-op.
func (g *Generator) handleLessonReady(ctx context.Context, evt eventbus.LessonReady) error {
	if evt.Failed {
		return nil
	}
	if existing, err := g.store.GetQuiz(ctx, evt.LessonID); err == nil && existing.Status == docstore.QuizReady {
		return nil
	}

	l, err := g.store.GetLesson(ctx, evt.LessonID)
	if err != nil {
		return fmt.Errorf("quiz: load lesson %s: %w", evt.LessonID, err)
	}

	q := docstore.Quiz{LessonID: l.LessonID, CreatedAt: time.Now().UTC(), Status: docstore.QuizPending}
	if err := g.store.PutQuiz(ctx, q); err != nil {
		return fmt.Errorf("quiz: persist pending quiz: %w", err)
	}

	result := retry.Do(ctx, g.retry, func(ctx context.Context, attempt int) error {
		questions, genErr := g.generateOnce(ctx, l)
		if genErr != nil {
			return genErr
		}
		q.Questions = questions
		return nil
	})

	if result.LastErr != nil {
		slog.Error("quiz: generation failed after retries", "lesson_id", evt.LessonID, "attempts", result.Attempts, "error", result.LastErr)
		q.Status = docstore.QuizFailed
		if err := g.store.PutQuiz(ctx, q); err != nil {
			return fmt.Errorf("quiz: persist failed quiz: %w", err)
		}
		return eventbus.Publish(ctx, g.bus, eventbus.SubjectQuizReady, eventbus.QuizReady{LessonID: l.LessonID, Failed: true})
	}

	q.Status = docstore.QuizReady
	if err := g.store.PutQuiz(ctx, q); err != nil {
		return fmt.Errorf("quiz: persist ready quiz: %w", err)
	}
	return eventbus.Publish(ctx, g.bus, eventbus.SubjectQuizReady, eventbus.QuizReady{LessonID: l.LessonID, Failed: false})
}

func (g *Generator) generateOnce(ctx context.Context, l docstore.Lesson) ([]docstore.QuizQuestion, error) {
	prompt := buildQuizPrompt(l)
	raw, err := g.model.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	var parsed struct {
		Questions []docstore.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse quiz JSON: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("generator returned no questions")
	}
	for i, question := range parsed.Questions {
		if len(question.Options) < 2 {
			return nil, fmt.Errorf("question %d: fewer than two options", i)
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return nil, fmt.Errorf("question %d: correct_index %d out of range", i, question.CorrectIndex)
		}
	}
	return parsed.Questions, nil
}

func buildQuizPrompt(l docstore.Lesson) string {
	var b strings.Builder
	b.WriteString("Write a multiple-choice quiz over the following lesson. Produce 5-8 questions, ")
	b.WriteString("each with 4 options, one correct_index, and a one-sentence explanation. Respond with JSON: ")
	b.WriteString(`{"questions": [{"question": string, "options": [string], "correct_index": int, "explanation": string, "difficulty": string}]}`)
	b.WriteString("\n\n")
	for _, sec := range l.Sections {
		b.WriteString(sec.Heading)
		b.WriteString("\n")
		b.WriteString(sec.Prose)
		b.WriteString("\n\n")
	}
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
