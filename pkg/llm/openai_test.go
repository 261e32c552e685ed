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

func TestOpenAIClient_GenerateWrapsPromptAsSingleUserMessage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("key123", srv.URL, "test-model")
	out, err := c.Generate(context.Background(), "hello", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	assert.Equal(t, "test-model", gotBody["model"])
}

func TestOpenAIClient_ChatSendsAllMessages(t *testing.T) {
	var gotBody struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("", srv.URL, "m")
	_, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
	}, GenerationParams{})
	require.NoError(t, err)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "hi", gotBody.Messages[1].Content)
}

func TestOpenAIClient_ChatErrorsOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("", srv.URL, "m")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	assert.Error(t, err)
}

func TestOpenAIClient_ChatErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("", srv.URL, "m")
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, GenerationParams{})
	assert.Error(t, err)
}

func TestOpenAIClient_ChatStreamForwardsTokensAndTerminatesOnDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"id\":\"x\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hel\"}}]}\n\n")
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprint(w, "data: {\"id\":\"x\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n\n")
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIClient("", srv.URL, "m")
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
