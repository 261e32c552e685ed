// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package auth implements signup, login, refresh, logout, verify,
// password recovery, and federated login.
package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword is returned when a candidate password fails policy.
var ErrWeakPassword = fmt.Errorf("weak_password")

// validatePassword enforces: at least 8 characters, an uppercase letter,
// a digit, a symbol, and no case-folded substring of a name part or the
// email local part (length >= 3) — guarding against "Patricia1!" for a
// user named Patricia.
func validatePassword(password, fullName, email string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}

	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}

	lowered := strings.ToLower(password)
	for _, part := range strings.Fields(fullName) {
		if len(part) >= 3 && strings.Contains(lowered, strings.ToLower(part)) {
			return ErrWeakPassword
		}
	}
	localPart := email
	if idx := strings.IndexByte(email, '@'); idx > 0 {
		localPart = email[:idx]
	}
	if len(localPart) >= 3 && strings.Contains(lowered, strings.ToLower(localPart)) {
		return ErrWeakPassword
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// comparePassword reports whether password matches hash. bcrypt's own
// comparison is already constant-time with respect to the candidate, so
// no additional countermeasure is needed to keep login's timing
// independent of which field failed.
func comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
