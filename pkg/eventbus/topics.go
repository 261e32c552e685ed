// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package eventbus

// Subject names for the four events that move the pipeline forward.
// Each is published exactly once per causing action but may be
// delivered more than once by NATS at-least-once semantics, so every
// consumer must treat handling as idempotent on the embedded natural
// key.
const (
	SubjectDocumentIngested   = "document.ingested"
	SubjectLessonReady        = "lesson.ready"
	SubjectVisualizationReady = "visualization.ready"
	SubjectQuizReady          = "quiz.ready"
)

// Queue group names, one per consuming service, so a service running
// multiple replicas still gets each event exactly once.
const (
	QueueLessonGenerator = "lessongen"
	QueueVisualization   = "visualization"
	QueueQuizNotes       = "quiznotes"
)

// DocumentIngested is published by Ingestion once a document's text (and
// page images, if any) have been fully extracted. The natural key is
// DocumentID: a consumer that has already derived a lesson for this
// document should treat redelivery as a no-op.
type DocumentIngested struct {
	DocumentID  string `json:"document_id"`
	OwnerUserID string `json:"owner_user_id"`
	PageCount   int    `json:"page_count"`
}

// LessonReady is published by the Lesson Generator once a lesson's
// sections have been produced (or generation has permanently failed).
// The natural key is LessonID; DocumentID and OwnerUserID are carried for
// convenience so consumers don't need a lookup to report on which source
// document/user.
type LessonReady struct {
	LessonID    string `json:"lesson_id"`
	DocumentID  string `json:"document_id"`
	OwnerUserID string `json:"user_id"`
	Failed      bool   `json:"failed"`
}

// VisualizationReady is published by the Visualization Orchestrator once
// a visualization has reached a terminal status (persisted or
// store_failed/invalid).
type VisualizationReady struct {
	VisualizationID string `json:"visualization_id"`
	LessonID        string `json:"lesson_id"`
	Failed          bool   `json:"failed"`
}

// QuizReady is published by the Quiz/Notes service once a quiz has been
// generated for a lesson.
type QuizReady struct {
	LessonID string `json:"lesson_id"`
	Failed   bool   `json:"failed"`
}
