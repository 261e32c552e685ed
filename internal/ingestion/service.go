// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ingestion accepts PDF uploads, extracts text and page images
// via a bounded worker pool, and publishes document.ingested once a
// document is ready.
package ingestion

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// MaxUploadBytes caps a single PDF's size. It is a compile-time constant
// and is not read from configuration.
const MaxUploadBytes = 50 << 20 // 50 MiB

// Service exposes upload/status/stop over HTTP, backed by a worker Pool.
type Service struct {
	store *docstore.Store
	pool  *Pool
}

// New builds a Service over store, queuing accepted uploads onto pool.
func New(store *docstore.Store, pool *Pool) *Service {
	return &Service{store: store, pool: pool}
}

// Routes registers the ingestion endpoints on r.
func (s *Service) Routes(r gin.IRouter) {
	r.POST("/api/upload", s.upload)
	r.GET("/api/pdf/:document_id/status", s.status)
	r.POST("/api/pdf/:document_id/stop", s.stop)
}

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
}

// upload accepts a single PDF from a multipart form field named "file",
// size-capped at MaxUploadBytes, stores the bytes, and enqueues
// extraction.
func (s *Service) upload(c *gin.Context) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpx.AbortWithError(c, httpx.Validation("file is required"))
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		httpx.AbortWithError(c, httpx.Validation("file exceeds maximum upload size"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("open uploaded file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		httpx.AbortWithError(c, httpx.Internal("read uploaded file"))
		return
	}
	if len(data) > MaxUploadBytes {
		httpx.AbortWithError(c, httpx.Validation("file exceeds maximum upload size"))
		return
	}

	documentID := uuid.New().String()
	ctx := c.Request.Context()
	if err := s.store.PutBlob(ctx, documentID, data); err != nil {
		httpx.AbortWithError(c, httpx.Internal("store uploaded file"))
		return
	}

	doc := docstore.Document{
		DocumentID:  documentID,
		OwnerUserID: principal.UserID(),
		Filename:    fileHeader.Filename,
		ByteSize:    fileHeader.Size,
		UploadedAt:  time.Now().UTC(),
		Status:      docstore.DocumentQueued,
		Progress:    progressQueued,
	}
	if err := s.store.PutDocument(ctx, doc); err != nil {
		httpx.AbortWithError(c, httpx.Internal("persist document"))
		return
	}

	if !s.pool.Enqueue(documentID) {
		c.Header("Retry-After", "5")
		httpx.AbortWithError(c, httpx.New(httpx.CodeBackpressure, "extraction queue is full, retry shortly"))
		return
	}

	c.JSON(http.StatusAccepted, uploadResponse{
		DocumentID: documentID,
		Status:     string(docstore.DocumentQueued),
		Progress:   progressQueued,
	})
}

type statusResponse struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	PageCount     int    `json:"page_count"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (s *Service) status(c *gin.Context) {
	doc, ok := s.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statusResponse{
		DocumentID:    doc.DocumentID,
		Status:        string(doc.Status),
		Progress:      doc.Progress,
		PageCount:     doc.PageCount,
		FailureReason: doc.FailureReason,
	})
}

// stop requests cancellation. The worker observes CancelRequested at
// the next page boundary, so the response confirms the request was
// recorded, not that extraction has stopped yet.
func (s *Service) stop(c *gin.Context) {
	doc, ok := s.loadOwned(c)
	if !ok {
		return
	}
	if doc.Status == docstore.DocumentReady || doc.Status == docstore.DocumentFailed || doc.Status == docstore.DocumentCancelled {
		c.JSON(http.StatusOK, statusResponse{DocumentID: doc.DocumentID, Status: string(doc.Status), Progress: doc.Progress})
		return
	}

	doc.CancelRequested = true
	if err := s.store.PutDocument(c.Request.Context(), doc); err != nil {
		httpx.AbortWithError(c, httpx.Internal("persist cancellation"))
		return
	}
	c.JSON(http.StatusOK, statusResponse{DocumentID: doc.DocumentID, Status: string(doc.Status), Progress: doc.Progress})
}

func (s *Service) loadOwned(c *gin.Context) (docstore.Document, bool) {
	principal := httpx.Principal(c)
	if principal == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return docstore.Document{}, false
	}
	doc, err := s.store.GetDocument(c.Request.Context(), c.Param("document_id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("document not found"))
		return docstore.Document{}, false
	}
	if !httpx.RequireSelfOrAdmin(c, doc.OwnerUserID) {
		return docstore.Document{}, false
	}
	return doc, true
}
