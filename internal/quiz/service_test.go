// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

func threeQuestionQuiz() []docstore.QuizQuestion {
	return []docstore.QuizQuestion{
		{Question: "q1", Options: []string{"a", "b", "c"}, CorrectIndex: 1},
		{Question: "q2", Options: []string{"a", "b", "c"}, CorrectIndex: 0},
		{Question: "q3", Options: []string{"a", "b", "c"}, CorrectIndex: 2},
	}
}

// TestGrade_MixedCorrectness exercises the scenario from the spec's
// testable-properties scenario F: correct indices [1,0,2], submitted
// [1,2,2] yields score 2 and per-question flags [true,false,true].
func TestGrade_MixedCorrectness(t *testing.T) {
	questions := threeQuestionQuiz()
	answers := []docstore.Answer{
		{QuestionIndex: 0, SelectedOption: 1},
		{QuestionIndex: 1, SelectedOption: 2},
		{QuestionIndex: 2, SelectedOption: 2},
	}

	score, graded := grade(questions, answers)

	assert.Equal(t, 2, score)
	assert.Len(t, graded, 3)
	assert.True(t, graded[0].Correct)
	assert.False(t, graded[1].Correct)
	assert.True(t, graded[2].Correct)
}

func TestGrade_PerfectScore(t *testing.T) {
	questions := threeQuestionQuiz()
	answers := []docstore.Answer{
		{QuestionIndex: 0, SelectedOption: 1},
		{QuestionIndex: 1, SelectedOption: 0},
		{QuestionIndex: 2, SelectedOption: 2},
	}

	score, _ := grade(questions, answers)
	assert.Equal(t, 3, score)
}

func TestGrade_OutOfRangeAnswerIsSkippedNotCounted(t *testing.T) {
	questions := threeQuestionQuiz()
	answers := []docstore.Answer{
		{QuestionIndex: 99, SelectedOption: 0},
		{QuestionIndex: 0, SelectedOption: 1},
	}

	score, graded := grade(questions, answers)
	assert.Equal(t, 1, score)
	assert.Len(t, graded, 1, "the out-of-range answer must not appear in per-question results")
}

func TestRedactAnswers_StripsAnswerKey(t *testing.T) {
	q := docstore.Quiz{
		LessonID:  "lesson-1",
		Status:    docstore.QuizReady,
		Questions: threeQuestionQuiz(),
	}

	redacted := redactAnswers(q)

	for _, question := range redacted.Questions {
		assert.Empty(t, question.Explanation)
		assert.Equal(t, 0, question.CorrectIndex, "zero value is indistinguishable from option 0 being correct, but Options/Question survive so the client can still render the quiz")
	}
}
