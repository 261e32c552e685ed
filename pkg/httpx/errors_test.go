// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatus_MapsEveryCodeToExpectedHTTPStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("x"):   http.StatusBadRequest,
		Unauthorized("x"): http.StatusUnauthorized,
		Forbidden("x"):    http.StatusForbidden,
		NotFound("x"):     http.StatusNotFound,
		Conflict("x"):     http.StatusConflict,
		Internal("x"):     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, err.Status())
	}
}

func TestErrorStatus_UnknownCodeFallsBackToInternal(t *testing.T) {
	err := New(Code("nonsense"), "x")
	assert.Equal(t, http.StatusInternalServerError, err.Status())
}

func TestError_MessageFallsBackToCodeWhenEmpty(t *testing.T) {
	err := New(CodeNotFound, "")
	assert.Equal(t, "not_found", err.Error())
}

func TestError_WithDetailsAttachesMap(t *testing.T) {
	err := Validation("bad field").WithDetails(map[string]any{"field": "email"})
	assert.Equal(t, "email", err.Details["field"])
}
