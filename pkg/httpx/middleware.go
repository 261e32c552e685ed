// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package httpx

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aleutian-tutor/lessonforge/pkg/jwtauth"
)

// principalKey is the context key AuthMiddleware stores the verified
// principal under. The package-prefixed name avoids collisions with other
// context values set by handlers.
const principalKey = "lessonforge_principal"

// SetPrincipal stores the authenticated principal in the Gin context.
func SetPrincipal(c *gin.Context, p *jwtauth.AccessClaims) {
	c.Set(principalKey, p)
}

// Principal retrieves the authenticated principal, or nil if the request
// was not authenticated (no principal was stored by SetPrincipal).
func Principal(c *gin.Context) *jwtauth.AccessClaims {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*jwtauth.AccessClaims); ok {
			return p
		}
	}
	return nil
}

// AuthMiddleware extracts the bearer token from the Authorization header,
// verifies it against verifier, and stores the resulting claims in the
// context for downstream handlers. Aborts with a 401 auth error on a
// missing, malformed, or invalid token.
func AuthMiddleware(verifier *jwtauth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			AbortWithError(c, Unauthorized("missing bearer token"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, jwtauth.ErrExpiredToken) {
				AbortWithError(c, Unauthorized("expired_token"))
				return
			}
			AbortWithError(c, Unauthorized("invalid_token"))
			return
		}

		SetPrincipal(c, claims)
		c.Next()
	}
}

// RequireSelfOrAdmin enforces that a request's user_id parameter matches
// the authenticated principal, unless the caller holds the admin role.
// Call after AuthMiddleware with the user_id taken from the route/query
// parameter being guarded.
func RequireSelfOrAdmin(c *gin.Context, requestedUserID string) bool {
	p := Principal(c)
	if p == nil {
		AbortWithError(c, Unauthorized("missing bearer token"))
		return false
	}
	if p.Role == "admin" || p.UserID() == requestedUserID {
		return true
	}
	AbortWithError(c, Forbidden("user_id does not match authenticated caller"))
	return false
}

// extractBearerToken parses "Authorization: Bearer <token>", case
// insensitive on the scheme, returning "" if missing or malformed.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AbortWithError renders err as the uniform error envelope and aborts the
// gin context with its mapped HTTP status.
func AbortWithError(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Status(), err)
}

// Recovery returns a gin middleware that recovers panics and renders them
// as an internal error envelope instead of crashing the handler goroutine.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				AbortWithError(c, Internal("internal server error"))
			}
		}()
		c.Next()
	}
}
