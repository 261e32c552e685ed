// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package docstore

import "time"

// User is the account record.
type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"` // unique, lowercased
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"` // student|instructor|admin
	CreatedAt    time.Time `json:"created_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	Active       bool      `json:"active"`
}

// RefreshToken is a long-lived, revocable credential scoped to a session.
// Stored keyed by a hash of the token value, never the token itself.
type RefreshToken struct {
	TokenHash string    `json:"token_hash"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// OTP is a one-time password for password recovery. A new one supersedes
// any prior live code for the same email.
type OTP struct {
	Email             string    `json:"email"`
	Code              string    `json:"code"` // zero-padded 6 digits
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	Consumed          bool      `json:"consumed"`
}

// DocumentStatus enumerates the ingestion lifecycle.
type DocumentStatus string

const (
	DocumentQueued     DocumentStatus = "queued"
	DocumentExtracting DocumentStatus = "extracting"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
	DocumentCancelled  DocumentStatus = "cancelled"
)

// PageImage is an opaque blob handle with dimensions.
type PageImage struct {
	BlobKey string `json:"blob_key"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Page    int    `json:"page"`
}

// Document is an uploaded PDF and its extraction state.
type Document struct {
	DocumentID      string         `json:"document_id"`
	OwnerUserID     string         `json:"owner_user_id"`
	Filename        string         `json:"filename"`
	ByteSize        int64          `json:"byte_size"`
	UploadedAt      time.Time      `json:"uploaded_at"`
	PageCount       int            `json:"page_count"`
	ExtractedText   string         `json:"extracted_text"`
	PageImages      []PageImage    `json:"page_images"`
	Status          DocumentStatus `json:"status"`
	Progress        int            `json:"progress"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	CancelRequested bool           `json:"cancel_requested"`
}

// LessonStatus enumerates the lesson generation lifecycle.
type LessonStatus string

const (
	LessonGenerating LessonStatus = "generating"
	LessonReady      LessonStatus = "ready"
	LessonFailed     LessonStatus = "failed"
)

// LessonSection is one heading+prose block of a generated lesson.
type LessonSection struct {
	Heading           string   `json:"heading"`
	Prose             string   `json:"prose"`
	ReferencedImageID []string `json:"referenced_image_ids,omitempty"`
}

// Lesson is the structured output of the external text generator.
type Lesson struct {
	LessonID      string          `json:"lesson_id"`
	OwnerUserID   string          `json:"owner_user_id"`
	DocumentID    string          `json:"document_id"`
	Title         string          `json:"title"`
	Subject       string          `json:"subject"`
	Sections      []LessonSection `json:"sections"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        LessonStatus    `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// Conversation is a user's named handle for one lesson.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	OwnerUserID    string    `json:"owner_user_id"`
	Title          string    `json:"title"`
	LessonID       string    `json:"lesson_id,omitempty"` // nullable
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Deleted        bool      `json:"deleted"`
}

// Shape is a tagged union of whiteboard primitives.
type Shape struct {
	Type string `json:"type"` // circle|rectangle|line|arrow|text|image|polygon

	// Placement: either explicit coordinates or a symbolic zone.
	X, Y     float64 `json:"x,omitempty"`
	HasXY    bool    `json:"has_xy,omitempty"`
	Zone     string  `json:"zone,omitempty"`

	// Resolved axis-aligned bounding box, filled in by the orchestrator.
	Width, Height float64 `json:"width,omitempty"`

	// Type-specific attributes.
	Radius  float64   `json:"radius,omitempty"`
	Points  []float64 `json:"points,omitempty"`
	Text    string    `json:"text,omitempty"`
	Font    string    `json:"font,omitempty"`
	ImageID string    `json:"image_id,omitempty"`

	Color string `json:"color,omitempty"`
}

// Animation references a shape within its scene.
type Animation struct {
	ShapeIndex int            `json:"shape_index"`
	Kind       string         `json:"kind"` // fadeIn|fadeOut|scale|move|rotate|pulse|glow|draw|write|orbit
	Start      float64        `json:"start"`
	Duration   float64        `json:"duration"`
	Ease       string         `json:"ease,omitempty"`
	To         map[string]any `json:"to,omitempty"`
	From       map[string]any `json:"from,omitempty"`
}

// Audio is a scene's optional narration track.
type Audio struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
}

// Scene is a time-bounded step of the teaching sequence.
type Scene struct {
	SceneID    string      `json:"scene_id"`
	Title      string      `json:"title"`
	Duration   float64     `json:"duration"`
	Shapes     []Shape     `json:"shapes"`
	Animations []Animation `json:"animations"`
	Audio      *Audio      `json:"audio,omitempty"`
	Background string      `json:"background,omitempty"`
}

// VisualizationStatus tracks the visualization pipeline's state machine:
// accepted -> validated -> resolved -> persisted -> served, or a
// terminal invalid / store_failed.
type VisualizationStatus string

const (
	VizAccepted    VisualizationStatus = "accepted"
	VizValidated   VisualizationStatus = "validated"
	VizResolved    VisualizationStatus = "resolved"
	VizPersisted   VisualizationStatus = "persisted"
	VizServed      VisualizationStatus = "served"
	VizInvalid     VisualizationStatus = "invalid"
	VizStoreFailed VisualizationStatus = "store_failed"
)

// Visualization is the resolved, validated, timed scene sequence derived
// from a lesson.
type Visualization struct {
	VisualizationID string              `json:"visualization_id"`
	LessonID        string              `json:"lesson_id"`
	Scenes          []Scene             `json:"scenes"`
	TotalDuration   float64             `json:"total_duration"`
	CanvasWidth     int                 `json:"canvas_width"`
	CanvasHeight    int                 `json:"canvas_height"`
	Errors          []string            `json:"errors"`
	Warnings        []string            `json:"warnings"`
	Status          VisualizationStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
}

// QuizQuestion is one multiple-choice item.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectIndex  int      `json:"correct_index"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
}

// QuizStatus tracks generation progress.
type QuizStatus string

const (
	QuizPending QuizStatus = "pending"
	QuizReady   QuizStatus = "ready"
	QuizFailed  QuizStatus = "failed"
)

// Quiz is the generated question set for a lesson.
type Quiz struct {
	LessonID  string         `json:"lesson_id"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
	Status    QuizStatus     `json:"status"`
}

// Answer is one submitted response.
type Answer struct {
	QuestionIndex  int `json:"question_index"`
	SelectedOption int `json:"selected_option"`
}

// Submission is a user's graded attempt at a lesson's quiz. The most
// recent submission per (user, lesson) is the canonical one.
type Submission struct {
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
