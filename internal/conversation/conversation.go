// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation owns a user's named handles onto PDF-derived
// lessons: list, create, rename, delete, and attach_lesson, plus the
// WebSocket teaching channel that streams a lesson's scenes.
package conversation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// Service implements the Conversation/Teaching HTTP surface.
type Service struct {
	store *docstore.Store
}

// New builds a Service backed by store.
func New(store *docstore.Store) *Service { return &Service{store: store} }

// Routes registers the service's endpoints on r, gated by auth.
func (s *Service) Routes(r gin.IRouter) {
	r.GET("/api/conversations", s.list)
	r.POST("/api/conversations", s.create)
	r.PATCH("/api/conversations/:id", s.rename)
	r.DELETE("/api/conversations/:id", s.delete)
	r.POST("/api/conversations/:id/attach_lesson", s.attachLesson)

	teaching := NewTeachingHandler(s.store)
	r.GET("/ws/teaching/:session_id", teaching.ServeHTTP)
}

func (s *Service) list(c *gin.Context) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}
	convs, err := s.store.ListConversations(c.Request.Context(), principal.UserID())
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("list conversations failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

type createConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

func (s *Service) create(c *gin.Context) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}

	now := time.Now().UTC()
	conv := docstore.Conversation{
		ConversationID: uuid.New().String(),
		OwnerUserID:    principal.UserID(),
		Title:          req.Title,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.PutConversation(c.Request.Context(), conv); err != nil {
		httpx.AbortWithError(c, httpx.Internal("create conversation failed"))
		return
	}
	c.JSON(http.StatusCreated, conv)
}

type renameConversationRequest struct {
	Title string `json:"title" binding:"required"`
}

func (s *Service) rename(c *gin.Context) {
	conv, ok := s.loadOwned(c)
	if !ok {
		return
	}
	var req renameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	conv.Title = req.Title
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.PutConversation(c.Request.Context(), conv); err != nil {
		httpx.AbortWithError(c, httpx.Internal("rename conversation failed"))
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Service) delete(c *gin.Context) {
	conv, ok := s.loadOwned(c)
	if !ok {
		return
	}
	conv.Deleted = true
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.PutConversation(c.Request.Context(), conv); err != nil {
		httpx.AbortWithError(c, httpx.Internal("delete conversation failed"))
		return
	}
	c.Status(http.StatusNoContent)
}

type attachLessonRequest struct {
	LessonID string `json:"lesson_id" binding:"required"`
}

func (s *Service) attachLesson(c *gin.Context) {
	conv, ok := s.loadOwned(c)
	if !ok {
		return
	}
	var req attachLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	if _, err := s.store.GetLesson(c.Request.Context(), req.LessonID); err != nil {
		httpx.AbortWithError(c, httpx.NotFound("lesson not found"))
		return
	}
	conv.LessonID = req.LessonID
	conv.UpdatedAt = time.Now().UTC()
	if err := s.store.PutConversation(c.Request.Context(), conv); err != nil {
		httpx.AbortWithError(c, httpx.Internal("attach lesson failed"))
		return
	}
	c.JSON(http.StatusOK, conv)
}

// loadOwned fetches the :id conversation and verifies it belongs to the
// authenticated principal and is not soft-deleted, responding with the
// appropriate error and returning ok=false otherwise.
func (s *Service) loadOwned(c *gin.Context) (docstore.Conversation, bool) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return docstore.Conversation{}, false
	}
	conv, err := s.store.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("conversation not found"))
		return docstore.Conversation{}, false
	}
	if conv.Deleted {
		httpx.AbortWithError(c, httpx.NotFound("conversation not found"))
		return docstore.Conversation{}, false
	}
	if conv.OwnerUserID != principal.UserID() && principal.Role != "admin" {
		httpx.AbortWithError(c, httpx.Forbidden("not your conversation"))
		return docstore.Conversation{}, false
	}
	return conv, true
}
