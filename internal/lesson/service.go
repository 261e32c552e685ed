// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lesson

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// Service exposes lesson CRUD over HTTP. Lesson creation itself only
// happens through the document.ingested -> Generator pipeline; the HTTP
// surface here is read/list/delete.
type Service struct {
	store *docstore.Store
}

// NewService builds a Service over store.
func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// Routes registers the lesson endpoints on r.
func (s *Service) Routes(r gin.IRouter) {
	r.GET("/api/lessons", s.list)
	r.GET("/api/lessons/:lesson_id", s.get)
	r.DELETE("/api/lessons/:lesson_id", s.delete)
}

func (s *Service) list(c *gin.Context) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}
	lessons, err := s.store.ListLessonsByUser(c.Request.Context(), principal.UserID())
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("list lessons"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"lessons": lessons})
}

func (s *Service) get(c *gin.Context) {
	l, ok := s.loadOwned(c)
	if !ok {
		return
	}
	if l.Status != docstore.LessonReady {
		c.JSON(http.StatusAccepted, gin.H{"lesson_id": l.LessonID, "status": l.Status})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Service) delete(c *gin.Context) {
	l, ok := s.loadOwned(c)
	if !ok {
		return
	}
	if err := s.store.DeleteLesson(c.Request.Context(), l.LessonID); err != nil {
		httpx.AbortWithError(c, httpx.Internal("delete lesson"))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) loadOwned(c *gin.Context) (docstore.Lesson, bool) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return docstore.Lesson{}, false
	}
	l, err := s.store.GetLesson(c.Request.Context(), c.Param("lesson_id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("lesson not found"))
		return docstore.Lesson{}, false
	}
	if !httpx.RequireSelfOrAdmin(c, l.OwnerUserID) {
		return docstore.Lesson{}, false
	}
	return l, true
}
