// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lesson

import (
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

func TestGetLesson_ReturnsAcceptedWhileGenerating(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{
		LessonID: "lesson-1", OwnerUserID: "u1", Status: docstore.LessonGenerating,
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestGetLesson_ReturnsOKWhenReady(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{
		LessonID: "lesson-1", OwnerUserID: "u1", Status: docstore.LessonReady,
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetLesson_ForbidsNonOwnerNonAdmin(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{
		LessonID: "lesson-1", OwnerUserID: "someone-else", Status: docstore.LessonReady,
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodGet, "/api/lessons/lesson-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetLesson_NotFoundForUnknownID(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodGet, "/api/lessons/nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLesson_RemovesOwnedLesson(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{
		LessonID: "lesson-1", OwnerUserID: "u1", Status: docstore.LessonReady,
	}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodDelete, "/api/lessons/lesson-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err := store.GetLesson(context.Background(), "lesson-1")
	assert.Error(t, err)
}

func TestListLessons_ReturnsOnlyCallersLessons(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{LessonID: "l1", OwnerUserID: "u1"}))
	require.NoError(t, store.PutLesson(context.Background(), docstore.Lesson{LessonID: "l2", OwnerUserID: "u2"}))

	r, token := authedRouter(t, "u1", "student", svc.Routes)
	req := httptest.NewRequest(http.MethodGet, "/api/lessons", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "l1")
	assert.NotContains(t, w.Body.String(), "l2")
}
