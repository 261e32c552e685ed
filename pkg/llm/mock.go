// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a deterministic Generator for tests and local
// development without a configured backend. It never calls out over the
// network; Generate and Chat derive a response purely from their input
// so assertions can be exact.
type MockGenerator struct {
	// Responses, if non-empty, is consumed in order by Generate/Chat;
	// once exhausted, the deterministic fallback below is used.
	Responses []string
	calls     int
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) next(fallback string) string {
	if m.calls < len(m.Responses) {
		r := m.Responses[m.calls]
		m.calls++
		return r
	}
	m.calls++
	return fallback
}

// Generate returns a canned response, or an echo of the prompt's first
// line prefixed with "mock: " if none was configured.
func (m *MockGenerator) Generate(_ context.Context, prompt string, _ GenerationParams) (string, error) {
	firstLine := prompt
	if idx := strings.IndexByte(prompt, '\n'); idx >= 0 {
		firstLine = prompt[:idx]
	}
	return m.next(fmt.Sprintf("mock: %s", firstLine)), nil
}

// Chat returns a canned response, or an echo of the last user message.
func (m *MockGenerator) Chat(_ context.Context, messages []Message, _ GenerationParams) (string, error) {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			last = messages[i].Content
			break
		}
	}
	return m.next(fmt.Sprintf("mock: %s", last)), nil
}

// ChatStream splits the Chat response into one-word token events.
func (m *MockGenerator) ChatStream(ctx context.Context, messages []Message, params GenerationParams, callback StreamCallback) error {
	text, err := m.Chat(ctx, messages, params)
	if err != nil {
		return err
	}
	for _, word := range strings.Fields(text) {
		if err := callback(StreamEvent{Type: StreamEventToken, Content: word + " "}); err != nil {
			return err
		}
	}
	return callback(StreamEvent{Type: StreamEventDone})
}
