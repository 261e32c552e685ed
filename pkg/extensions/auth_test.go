// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopAuthProvider_AlwaysReturnsLocalAdmin(t *testing.T) {
	p := &NopAuthProvider{}
	info, err := p.Validate(context.Background(), "any-token-or-empty")
	require.NoError(t, err)
	assert.Equal(t, "local-user", info.UserID)
	assert.True(t, info.HasRole("admin"))
}

func TestNopAuthzProvider_AlwaysAllows(t *testing.T) {
	p := &NopAuthzProvider{}
	err := p.Authorize(context.Background(), AuthzRequest{
		User:         &AuthInfo{UserID: "anyone"},
		Action:       "delete",
		ResourceType: "everything",
	})
	assert.NoError(t, err)
}

func TestAuthInfo_HasRole(t *testing.T) {
	info := &AuthInfo{Roles: []string{"analyst", "viewer"}}
	assert.True(t, info.HasRole("viewer"))
	assert.False(t, info.HasRole("admin"))
}
