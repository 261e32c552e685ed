// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The Gateway already terminates TLS and owns CORS policy;
		// this service only ever sees traffic the Gateway proxied.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// clientMessage is every frame the client may send, discriminated by
// Type: start, pause, resume, next, previous, ack_scene.
type clientMessage struct {
	Type string `json:"type"`
}

// serverMessage is every frame the server may send: scene, progress,
// done, error. Only the fields relevant to Type are populated.
type serverMessage struct {
	Type      string          `json:"type"`
	Scene     *docstore.Scene `json:"scene,omitempty"`
	Index     int             `json:"index,omitempty"`
	Total     int             `json:"total,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func sendJSON(conn *websocket.Conn, v any) error {
	if err := conn.WriteJSON(v); err != nil {
		slog.Warn("teaching: write failed", "error", err)
		return err
	}
	return nil
}

// TeachingHandler serves /ws/teaching/:session_id, streaming a lesson's
// canonical visualization scene by scene and reacting to playback
// control messages from the client.
type TeachingHandler struct {
	store *docstore.Store
}

// NewTeachingHandler builds a TeachingHandler backed by store.
func NewTeachingHandler(store *docstore.Store) *TeachingHandler {
	return &TeachingHandler{store: store}
}

// ServeHTTP upgrades the connection, resolves the conversation's current
// lesson and visualization, and drives the scene-advance state machine
// until the client disconnects.
func (h *TeachingHandler) ServeHTTP(c *gin.Context) {
	conversationID := c.Param("session_id")

	conv, err := h.store.GetConversation(c.Request.Context(), conversationID)
	if err != nil || conv.LessonID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "conversation has no attached lesson"})
		return
	}

	viz, err := h.store.GetLatestVisualizationByLesson(c.Request.Context(), conv.LessonID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no visualization available for this lesson"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("teaching: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	if metrics.Default != nil {
		metrics.Default.ActiveConnections.WithLabelValues("teaching").Inc()
		defer metrics.Default.ActiveConnections.WithLabelValues("teaching").Dec()
	}

	sess := &teachingSession{
		conn:      conn,
		sessionID: sessionID,
		scenes:    viz.Scenes,
		control:   make(chan clientMessage, 8),
	}

	go sess.readLoop()

	if err := sendJSON(conn, serverMessage{Type: "session_created", SessionID: sessionID}); err != nil {
		return
	}

	sess.run(c.Request.Context())
}

// teachingSession holds the per-connection playback state. One channel
// per open tab; an abrupt disconnect only tears down this goroutine and
// its timers — no persisted state is touched.
type teachingSession struct {
	conn      *websocket.Conn
	sessionID string
	scenes    []docstore.Scene
	control   chan clientMessage

	paused bool
	index  int
}

// readLoop forwards every client frame onto the control channel until
// the connection closes, at which point it closes the channel so run
// can unwind.
func (s *teachingSession) readLoop() {
	defer close(s.control)
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		s.control <- msg
	}
}

// run streams scenes in order, advancing past each one on ack_scene,
// scene.duration elapsing, or a hard cap of 2x scene.duration —
// whichever comes first — so a client that never acks and never reads
// still frees server resources in bounded time.
func (s *teachingSession) run(ctx context.Context) {
	s.index = 0
	for s.index < len(s.scenes) {
		scene := s.scenes[s.index]
		if err := sendJSON(s.conn, serverMessage{
			Type:  "scene",
			Scene: &scene,
			Index: s.index,
			Total: len(s.scenes),
		}); err != nil {
			return
		}

		if !s.waitForAdvance(ctx, scene) {
			return
		}
		s.index++
		_ = sendJSON(s.conn, serverMessage{Type: "progress", Index: s.index, Total: len(s.scenes)})
	}
	_ = sendJSON(s.conn, serverMessage{Type: "done", Total: len(s.scenes)})
}

// waitForAdvance blocks until the current scene should be left: an
// ack_scene, the scene's natural duration (unless paused), the hard
// duration cap (always, even paused), "next"/"previous" control
// messages, or context/connection teardown. Returns false if the
// session should stop entirely.
func (s *teachingSession) waitForAdvance(ctx context.Context, scene docstore.Scene) bool {
	duration := time.Duration(scene.Duration * float64(time.Second))
	if duration <= 0 {
		duration = time.Millisecond // a zero-length scene still must not busy-loop
	}
	soft := time.NewTimer(duration)
	hard := time.NewTimer(2 * duration)
	defer soft.Stop()
	defer hard.Stop()

	for {
		select {
		case <-ctx.Done():
			return false

		case <-hard.C:
			return true

		case <-soft.C:
			if !s.paused {
				return true
			}
			// Paused past the natural duration: keep waiting on the
			// hard cap or an explicit control message.

		case msg, ok := <-s.control:
			if !ok {
				return false // client disconnected
			}
			switch msg.Type {
			case "ack_scene":
				return true
			case "pause":
				s.paused = true
			case "resume":
				s.paused = false
			case "next":
				return true
			case "previous":
				if s.index > 0 {
					s.index -= 2 // run() will increment back to index-1
				} else {
					s.index = -1
				}
				return true
			case "start":
				s.paused = false
			}
		}
	}
}
