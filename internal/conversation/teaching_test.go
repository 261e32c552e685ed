// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

func newTeachingServer(t *testing.T, store *docstore.Store) *httptest.Server {
	t.Helper()
	r := gin.New()
	h := NewTeachingHandler(store)
	r.GET("/ws/teaching/:session_id", h.ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialTeaching(t *testing.T, srv *httptest.Server, conversationID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/teaching/" + conversationID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func readServerMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func seedLessonWithVisualization(t *testing.T, store *docstore.Store, conversationID string, scenes []docstore.Scene) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.PutConversation(ctx, docstore.Conversation{
		ConversationID: conversationID, OwnerUserID: "u1", LessonID: "lesson-1",
	}))
	require.NoError(t, store.PutVisualization(ctx, docstore.Visualization{
		VisualizationID: "viz-1", LessonID: "lesson-1", Scenes: scenes,
	}))
}

func TestTeachingHandler_RejectsConversationWithoutLesson(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.PutConversation(context.Background(), docstore.Conversation{
		ConversationID: "conv-1", OwnerUserID: "u1",
	}))
	srv := newTeachingServer(t, store)

	resp, err := http.Get(srv.URL + "/ws/teaching/conv-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTeachingHandler_RejectsMissingConversation(t *testing.T) {
	store := newTestStore(t)
	srv := newTeachingServer(t, store)

	resp, err := http.Get(srv.URL + "/ws/teaching/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTeachingHandler_StreamsScenesInOrderAndAdvancesOnAck(t *testing.T) {
	store := newTestStore(t)
	seedLessonWithVisualization(t, store, "conv-1", []docstore.Scene{
		{SceneID: "s1", Duration: 30},
		{SceneID: "s2", Duration: 30},
	})
	srv := newTeachingServer(t, store)
	conn := dialTeaching(t, srv, "conv-1")
	defer conn.Close()

	created := readServerMessage(t, conn)
	require.Equal(t, "session_created", created.Type)
	assert.NotEmpty(t, created.SessionID)

	scene1 := readServerMessage(t, conn)
	require.Equal(t, "scene", scene1.Type)
	require.NotNil(t, scene1.Scene)
	assert.Equal(t, "s1", scene1.Scene.SceneID)
	assert.Equal(t, 0, scene1.Index)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "ack_scene"}))

	progress := readServerMessage(t, conn)
	require.Equal(t, "progress", progress.Type)
	assert.Equal(t, 1, progress.Index)

	scene2 := readServerMessage(t, conn)
	require.Equal(t, "scene", scene2.Type)
	assert.Equal(t, "s2", scene2.Scene.SceneID)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "ack_scene"}))
	_ = readServerMessage(t, conn) // progress
	done := readServerMessage(t, conn)
	assert.Equal(t, "done", done.Type)
}

func TestTeachingHandler_AdvancesOnNaturalDurationWithoutAck(t *testing.T) {
	store := newTestStore(t)
	// A tiny duration so the soft timer fires almost immediately,
	// rather than waiting on an explicit ack_scene.
	seedLessonWithVisualization(t, store, "conv-1", []docstore.Scene{
		{SceneID: "only", Duration: 0.01},
	})
	srv := newTeachingServer(t, store)
	conn := dialTeaching(t, srv, "conv-1")
	defer conn.Close()

	_ = readServerMessage(t, conn) // session_created
	scene := readServerMessage(t, conn)
	require.Equal(t, "scene", scene.Type)

	progress := readServerMessage(t, conn)
	assert.Equal(t, "progress", progress.Type)

	done := readServerMessage(t, conn)
	assert.Equal(t, "done", done.Type)
}

func TestTeachingHandler_PauseDelaysAdvanceUntilResumeOrHardCap(t *testing.T) {
	store := newTestStore(t)
	seedLessonWithVisualization(t, store, "conv-1", []docstore.Scene{
		{SceneID: "s1", Duration: 0.05},
	})
	srv := newTeachingServer(t, store)
	conn := dialTeaching(t, srv, "conv-1")
	defer conn.Close()

	_ = readServerMessage(t, conn) // session_created
	_ = readServerMessage(t, conn) // scene
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "pause"}))

	// The soft timer fires but pause defers the advance; the hard cap
	// (2x duration) still eventually forces it through.
	progress := readServerMessage(t, conn)
	assert.Equal(t, "progress", progress.Type)
}

func TestClientMessage_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(clientMessage{Type: "next"})
	require.NoError(t, err)
	var decoded clientMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "next", decoded.Type)
}
