// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	db, err := docstore.OpenDB(docstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return docstore.New(db)
}

func authedRouter(t *testing.T, userID, role string, routes func(gin.IRouter)) (*gin.Engine, string) {
	t.Helper()
	kr, err := jwtauth.GenerateKeyring()
	require.NoError(t, err)
	iss := jwtauth.NewIssuer(kr, time.Minute, time.Hour)
	token, _, err := iss.IssueAccess(jwtauth.Principal{UserID: userID, Role: role})
	require.NoError(t, err)

	r := gin.New()
	r.Use(httpx.AuthMiddleware(jwtauth.NewVerifier(kr)))
	routes(r)
	return r, token
}

func TestCreateConversation_PersistsUnderCaller(t *testing.T) {
	store := newTestStore(t)
	svc := New(store)
	r, token := authedRouter(t, "u1", "student", svc.Routes)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations", bytes.NewBufferString(`{"title":"My lesson"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	convs, err := store.ListConversations(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "My lesson", convs[0].Title)
}

func TestRenameConversation_ForbidsNonOwner(t *testing.T) {
	store := newTestStore(t)
	svc := New(store)
	require.NoError(t, store.PutConversation(context.Background(), docstore.Conversation{
		ConversationID: "c1", OwnerUserID: "someone-else", Title: "x",
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodPatch, "/api/conversations/c1", bytes.NewBufferString(`{"title":"new"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteConversation_SoftDeletesAndHidesFromFutureLookups(t *testing.T) {
	store := newTestStore(t)
	svc := New(store)
	require.NoError(t, store.PutConversation(context.Background(), docstore.Conversation{
		ConversationID: "c1", OwnerUserID: "u1", Title: "x",
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodDelete, "/api/conversations/c1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req2 := httptest.NewRequest(http.MethodPatch, "/api/conversations/c1", bytes.NewBufferString(`{"title":"new"}`))
	req2.Header.Set("Authorization", "Bearer "+token)
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestAttachLesson_FailsWhenLessonDoesNotExist(t *testing.T) {
	store := newTestStore(t)
	svc := New(store)
	require.NoError(t, store.PutConversation(context.Background(), docstore.Conversation{
		ConversationID: "c1", OwnerUserID: "u1", Title: "x",
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/attach_lesson", bytes.NewBufferString(`{"lesson_id":"nope"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachLesson_SucceedsWhenLessonExists(t *testing.T) {
	store := newTestStore(t)
	svc := New(store)
	require.NoError(t, store.PutConversation(context.Background(), docstore.Conversation{
		ConversationID: "c1", OwnerUserID: "u1", Title: "x",
	}))
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{LessonID: "lesson-1", OwnerUserID: "u1"}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/attach_lesson", bytes.NewBufferString(`{"lesson_id":"lesson-1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	conv, err := store.GetConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "lesson-1", conv.LessonID)
}
