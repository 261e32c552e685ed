// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jwtauth

import (
	"context"

	"github.com/aleutian-tutor/lessonforge/pkg/extensions"
)

// AuthProvider adapts a Verifier to the generic extensions.AuthProvider
// interface, so the Gateway's pre-auth check (deciding whether to even
// proxy a request downstream, before the owning service re-verifies for
// its own principal extraction) can depend on the same abstraction
// every other pluggable auth backend in this codebase uses.
type AuthProvider struct {
	verifier *Verifier
}

var _ extensions.AuthProvider = (*AuthProvider)(nil)

// NewAuthProvider wraps verifier as an extensions.AuthProvider.
func NewAuthProvider(verifier *Verifier) *AuthProvider {
	return &AuthProvider{verifier: verifier}
}

// Validate verifies token and translates the result into extensions.AuthInfo.
func (p *AuthProvider) Validate(_ context.Context, token string) (*extensions.AuthInfo, error) {
	claims, err := p.verifier.Verify(token)
	if err != nil {
		return nil, extensions.ErrUnauthorized
	}
	return &extensions.AuthInfo{
		UserID: claims.UserID(),
		Email:  claims.Email,
		Roles:  []string{claims.Role},
	}, nil
}
