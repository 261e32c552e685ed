// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package jwtauth issues and verifies the access/refresh token pair used
// across lessonforge: short-lived stateless access tokens and long-lived,
// store-checked, session-scoped refresh tokens.
package jwtauth

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the claims carried by an access token:
// {sub, email, name, role, iat, exp}.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UserID returns the subject claim, the canonical user identifier.
func (c AccessClaims) UserID() string { return c.Subject }
