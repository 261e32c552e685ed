// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	kr, err := GenerateKeyring()
	require.NoError(t, err)
	iss := NewIssuer(kr, time.Minute, time.Hour)
	verifier := NewVerifier(kr)

	token, exp, err := iss.IssueAccess(Principal{UserID: "u1", Email: "a@b.com", Name: "A", Role: "student"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
}

func TestVerify_RejectsTokenSignedWithUnknownKey(t *testing.T) {
	kr1, err := GenerateKeyring()
	require.NoError(t, err)
	kr2, err := GenerateKeyring()
	require.NoError(t, err)

	iss := NewIssuer(kr1, time.Minute, time.Hour)
	verifier := NewVerifier(kr2)

	token, _, err := iss.IssueAccess(Principal{UserID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	kr, err := GenerateKeyring()
	require.NoError(t, err)
	iss := NewIssuer(kr, -time.Second, time.Hour)
	verifier := NewVerifier(kr)

	token, _, err := iss.IssueAccess(Principal{UserID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRotate_OldKeyStillVerifiesNewKeySigns(t *testing.T) {
	kr, err := GenerateKeyring()
	require.NoError(t, err)
	iss := NewIssuer(kr, time.Minute, time.Hour)
	verifier := NewVerifier(kr)

	oldToken, _, err := iss.IssueAccess(Principal{UserID: "u1"})
	require.NoError(t, err)

	newKey := make([]byte, 32)
	kid, err := kr.Rotate(newKey)
	require.NoError(t, err)
	assert.Equal(t, "k2", kid)

	_, err = verifier.Verify(oldToken)
	assert.NoError(t, err, "a token signed before rotation must still verify")

	newToken, _, err := iss.IssueAccess(Principal{UserID: "u2"})
	require.NoError(t, err)
	claims, err := verifier.Verify(newToken)
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.Subject)
}

func TestKeyringFromHex_RejectsShortKey(t *testing.T) {
	_, err := KeyringFromHex("aabbcc")
	assert.Error(t, err)
}

func TestKeyringFromHex_RejectsInvalidHex(t *testing.T) {
	_, err := KeyringFromHex("not-hex-at-all-zz")
	assert.Error(t, err)
}

func TestKeyringFromHex_AcceptsThirtyTwoByteKey(t *testing.T) {
	hexKey := "0000000000000000000000000000000000000000000000000000000000000000"[:64]
	kr, err := KeyringFromHex(hexKey)
	require.NoError(t, err)
	_, _, err = kr.Sign()
	assert.NoError(t, err)
}

func TestNewRefreshToken_ProducesSixtyFourHexChars(t *testing.T) {
	tok, err := NewRefreshToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)
}
