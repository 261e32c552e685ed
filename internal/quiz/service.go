// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quiz

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
	"github.com/aleutian-tutor/lessonforge/pkg/httpx"
)

// Service exposes quiz retrieval and submission over HTTP. Quiz
// generation itself only happens through the lesson.ready -> Generator
// pipeline.
type Service struct {
	store *docstore.Store
}

// NewService builds a Service over store.
func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// Routes registers the quiz endpoints on r.
func (s *Service) Routes(r gin.IRouter) {
	r.GET("/api/quiz/get/:lesson_id", s.get)
	r.POST("/api/quiz/submit", s.submit)
}

func (s *Service) get(c *gin.Context) {
	if httpx.Principal(c) == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}
	q, err := s.store.GetQuiz(c.Request.Context(), c.Param("lesson_id"))
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("no quiz for this lesson"))
		return
	}
	if q.Status != docstore.QuizReady {
		c.Header("Retry-After", "5")
		c.JSON(http.StatusAccepted, gin.H{"lesson_id": q.LessonID, "status": q.Status})
		return
	}
	c.JSON(http.StatusOK, redactAnswers(q))
}

// redactAnswers strips correct_index and explanation so a client
// fetching a quiz to take it can't read the answer key off the wire;
// submit is where those fields get used, server-side.
func redactAnswers(q docstore.Quiz) docstore.Quiz {
	redacted := make([]docstore.QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		redacted[i] = docstore.QuizQuestion{Question: question.Question, Options: question.Options, Difficulty: question.Difficulty}
	}
	q.Questions = redacted
	return q
}

type submitRequest struct {
	LessonID string            `json:"lesson_id" binding:"required"`
	UserID   string            `json:"user_id" binding:"required"`
	Answers  []docstore.Answer `json:"answers" binding:"required"`
}

func (s *Service) submit(c *gin.Context) {
	if httpx.Principal(c) == nil {
		httpx.AbortWithError(c, httpx.Unauthorized("missing bearer token"))
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.AbortWithError(c, httpx.Validation(err.Error()))
		return
	}
	if !httpx.RequireSelfOrAdmin(c, req.UserID) {
		return
	}

	q, err := s.store.GetQuiz(c.Request.Context(), req.LessonID)
	if err != nil {
		httpx.AbortWithError(c, httpx.NotFound("no quiz for this lesson"))
		return
	}
	if q.Status != docstore.QuizReady {
		httpx.AbortWithError(c, httpx.New(httpx.CodeConflict, "quiz is not ready"))
		return
	}

	score, graded := grade(q.Questions, req.Answers)

	sub := docstore.Submission{
		UserID:      req.UserID,
		LessonID:    req.LessonID,
		Answers:     req.Answers,
		Score:       score,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.store.PutSubmission(c.Request.Context(), sub); err != nil {
		httpx.AbortWithError(c, httpx.Internal("persist submission"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":        score,
		"total":        len(q.Questions),
		"per_question": graded,
		"submitted_at": sub.SubmittedAt,
	})
}

type gradedAnswer struct {
	QuestionIndex int  `json:"question_index"`
	Correct       bool `json:"correct"`
	CorrectIndex  int  `json:"correct_index"`
}

// grade scores a submission against the answer key. An answer whose
// question_index is out of range or duplicated is simply not counted;
// it neither adds to the score nor aborts the request.
func grade(questions []docstore.QuizQuestion, answers []docstore.Answer) (int, []gradedAnswer) {
	score := 0
	graded := make([]gradedAnswer, 0, len(answers))
	seen := make(map[int]bool, len(answers))
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) || seen[a.QuestionIndex] {
			continue
		}
		seen[a.QuestionIndex] = true
		q := questions[a.QuestionIndex]
		correct := a.SelectedOption == q.CorrectIndex
		if correct {
			score++
		}
		graded = append(graded, gradedAnswer{QuestionIndex: a.QuestionIndex, Correct: correct, CorrectIndex: q.CorrectIndex})
	}
	return score, graded
}
