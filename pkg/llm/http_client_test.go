// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_WrapsPromptAsSingleUserMessage(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Role: "assistant", Content: "hi there"}}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key123", "test-model")
	out, err := c.Generate(context.Background(), "hello", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
	assert.Equal(t, "hello", gotReq.Messages[0].Content)
	assert.Equal(t, "test-model", gotReq.Model)
}

func TestChat_SendsBearerTokenWhenAPIKeySet(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message Message `json:"message"`
		}{{Message: Message{Content: "ok"}}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret-key", "m")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestChat_ErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "m")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	assert.Error(t, err)
}

func TestChat_ErrorsOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "m")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	assert.Error(t, err)
}

func TestChatStream_ForwardsTokensAndTerminatesOnDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n")
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n")
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "m")
	var tokens []string
	var done bool
	err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{}, func(evt StreamEvent) error {
		switch evt.Type {
		case StreamEventToken:
			tokens = append(tokens, evt.Content)
		case StreamEventDone:
			done = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "lo"}, tokens)
	assert.True(t, done)
}

func TestChatStream_SkipsMalformedChunksWithoutAborting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: not json at all\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n")
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "m")
	var tokens []string
	err := c.ChatStream(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{}, func(evt StreamEvent) error {
		if evt.Type == StreamEventToken {
			tokens = append(tokens, evt.Content)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, tokens)
}
