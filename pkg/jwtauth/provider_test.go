// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleutian-tutor/lessonforge/pkg/extensions"
)

func TestAuthProvider_ValidatesAndTranslatesClaims(t *testing.T) {
	kr, err := GenerateKeyring()
	require.NoError(t, err)
	iss := NewIssuer(kr, time.Minute, time.Hour)
	token, _, err := iss.IssueAccess(Principal{UserID: "u1", Email: "u1@example.com", Role: "admin"})
	require.NoError(t, err)

	p := NewAuthProvider(NewVerifier(kr))
	info, err := p.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, "u1@example.com", info.Email)
	assert.True(t, info.HasRole("admin"))
}

func TestAuthProvider_RejectsInvalidTokenWithErrUnauthorized(t *testing.T) {
	kr, err := GenerateKeyring()
	require.NoError(t, err)
	p := NewAuthProvider(NewVerifier(kr))

	_, err = p.Validate(context.Background(), "not-a-real-token")
	assert.ErrorIs(t, err, extensions.ErrUnauthorized)
}
