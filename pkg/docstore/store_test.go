// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestCreateUser_EnforcesEmailUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, User{UserID: "u1", Email: "pat@example.com"}))

	err := s.CreateUser(ctx, User{UserID: "u2", Email: "pat@example.com"})
	assert.Error(t, err)
}

func TestGetUserByEmail_IsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, User{UserID: "u1", Email: "Pat@Example.com"}))

	u, err := s.GetUserByEmail(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
}

func TestUpdateUser_OverwritesStoredRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, User{UserID: "u1", Email: "pat@example.com", DisplayName: "Pat"}))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	u.DisplayName = "Patricia"
	require.NoError(t, s.UpdateUser(ctx, u))

	updated, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Patricia", updated.DisplayName)
}

func TestGetUser_UnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshToken_PutGetRevokeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "hash1", UserID: "u1", SessionID: "sess1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}))

	rt, err := s.GetRefreshToken(ctx, "hash1")
	require.NoError(t, err)
	assert.False(t, rt.Revoked)

	require.NoError(t, s.RevokeRefreshToken(ctx, "hash1"))
	rt, err = s.GetRefreshToken(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, rt.Revoked)
}

func TestRevokeSession_OnlyRevokesTokensInThatSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "a", UserID: "u1", SessionID: "sess1", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "b", UserID: "u1", SessionID: "sess2", ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, s.RevokeSession(ctx, "sess1"))

	a, err := s.GetRefreshToken(ctx, "a")
	require.NoError(t, err)
	assert.True(t, a.Revoked)

	b, err := s.GetRefreshToken(ctx, "b")
	require.NoError(t, err)
	assert.False(t, b.Revoked)
}

func TestRevokeAllSessionsForUser_RevokesAcrossSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "a", UserID: "u1", SessionID: "sess1", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "b", UserID: "u1", SessionID: "sess2", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{
		TokenHash: "c", UserID: "other-user", SessionID: "sess3", ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, s.RevokeAllSessionsForUser(ctx, "u1"))

	a, _ := s.GetRefreshToken(ctx, "a")
	b, _ := s.GetRefreshToken(ctx, "b")
	c, _ := s.GetRefreshToken(ctx, "c")
	assert.True(t, a.Revoked)
	assert.True(t, b.Revoked)
	assert.False(t, c.Revoked, "a different user's sessions must be untouched")
}

func TestSweepExpiredRefreshTokens_RemovesOnlyPastExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{TokenHash: "expired", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.PutRefreshToken(ctx, RefreshToken{TokenHash: "live", ExpiresAt: now.Add(time.Hour)}))

	removed, err := s.SweepExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetRefreshToken(ctx, "expired")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRefreshToken(ctx, "live")
	assert.NoError(t, err)
}
