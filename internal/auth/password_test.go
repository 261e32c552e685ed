// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword_RejectsTooShort(t *testing.T) {
	err := validatePassword("Sh0rt!", "Pat Smith", "pat@example.com")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestValidatePassword_RejectsMissingUppercaseDigitOrSymbol(t *testing.T) {
	assert.ErrorIs(t, validatePassword("lowercase1!", "Pat Smith", "pat@example.com"), ErrWeakPassword)
	assert.ErrorIs(t, validatePassword("Uppercase!!", "Pat Smith", "pat@example.com"), ErrWeakPassword)
	assert.ErrorIs(t, validatePassword("Uppercase11", "Pat Smith", "pat@example.com"), ErrWeakPassword)
}

func TestValidatePassword_RejectsNamePartSubstring(t *testing.T) {
	err := validatePassword("Patricia1!", "Patricia Smith", "psmith@example.com")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestValidatePassword_RejectsEmailLocalPartSubstring(t *testing.T) {
	err := validatePassword("Psmith123!", "Pat Smith", "psmith@example.com")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestValidatePassword_AcceptsStrongUnrelatedPassword(t *testing.T) {
	err := validatePassword("Correct9$Horse", "Pat Smith", "psmith@example.com")
	assert.NoError(t, err)
}

func TestHashAndComparePassword_RoundTrip(t *testing.T) {
	hash, err := hashPassword("Correct9$Horse")
	require.NoError(t, err)
	assert.True(t, comparePassword(hash, "Correct9$Horse"))
	assert.False(t, comparePassword(hash, "wrong password"))
}
