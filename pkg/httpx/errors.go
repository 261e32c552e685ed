// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package httpx provides the error envelope, auth middleware, and request
// helpers shared across every lessonforge HTTP service, so downstream
// services and the Gateway agree on one error shape.
package httpx

import "net/http"

// Code is a short machine-readable error classification per the taxonomy:
// validation, auth, permission, not_found, conflict, backpressure,
// upstream_unavailable, upstream_timeout, internal.
type Code string

const (
	CodeValidation           Code = "validation"
	CodeAuth                 Code = "auth"
	CodePermission           Code = "permission"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeBackpressure         Code = "backpressure"
	CodeUpstreamUnavailable  Code = "upstream_unavailable"
	CodeUpstreamTimeout      Code = "upstream_timeout"
	CodeInternal             Code = "internal"
)

var statusByCode = map[Code]int{
	CodeValidation:          http.StatusBadRequest,
	CodeAuth:                http.StatusUnauthorized,
	CodePermission:          http.StatusForbidden,
	CodeNotFound:            http.StatusNotFound,
	CodeConflict:            http.StatusConflict,
	CodeBackpressure:        http.StatusServiceUnavailable,
	CodeUpstreamUnavailable: http.StatusServiceUnavailable,
	CodeUpstreamTimeout:     http.StatusGatewayTimeout,
	CodeInternal:            http.StatusInternalServerError,
}

// Error is the envelope every non-2xx lessonforge response carries:
// {error, message?, details?}.
type Error struct {
	ErrorCode Code           `json:"error"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.ErrorCode)
}

// Status returns the HTTP status this error's code maps to.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.ErrorCode]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{ErrorCode: code, Message: message}
}

// WithDetails attaches structured detail fields, e.g. field-level
// validation failures.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Convenience constructors for the most common error sites.
func Validation(message string) *Error  { return New(CodeValidation, message) }
func Unauthorized(message string) *Error { return New(CodeAuth, message) }
func Forbidden(message string) *Error    { return New(CodePermission, message) }
func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func Internal(message string) *Error     { return New(CodeInternal, message) }
