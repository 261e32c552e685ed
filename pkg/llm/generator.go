// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the interface the Lesson Generator, Quiz/Notes,
// and Conversation/Teaching services use to call out to a text
// generation backend, plus a deterministic mock and a minimal HTTP-based
// implementation.
package llm

import "context"

// Message is one turn of a conversation passed to Chat/ChatStream.
type Message struct {
	Role    string `json:"role"` // system|user|assistant
	Content string `json:"content"`
}

// GenerationParams holds the generation knobs a backend may honor. nil
// pointer fields mean "use the backend's default."
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// StreamEventType categorizes a streamed token.
type StreamEventType string

const (
	StreamEventToken StreamEventType = "token"
	StreamEventError StreamEventType = "error"
	StreamEventDone  StreamEventType = "done"
)

// StreamEvent is one token or terminal event of a ChatStream call.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Error   string
}

// StreamCallback is invoked for each StreamEvent; a non-nil return
// aborts the stream.
type StreamCallback func(event StreamEvent) error

// Generator is the narrow interface the pipeline services depend on. It
// deliberately omits tool-calling and extended-thinking knobs the
// upstream backends may support — lessonforge only ever needs
// structured text out.
type Generator interface {
	// Generate produces text from a single prompt, used by the Lesson
	// Generator (source text -> lesson sections) and Quiz/Notes (lesson
	// text -> quiz JSON).
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat conducts a conversation with message history, used by
	// Conversation/Teaching for narration and Q&A over an attached
	// lesson.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)

	// ChatStream is like Chat but streams the response token-by-token,
	// used by the teaching WebSocket channel to narrate scenes live.
	ChatStream(ctx context.Context, messages []Message, params GenerationParams, callback StreamCallback) error
}
