// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package jwtauth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Access tokens are short-lived; refresh tokens are long-lived and
// revocable per session.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 14 * 24 * time.Hour
)

// Issuer mints access and opaque refresh tokens against a Keyring.
type Issuer struct {
	keyring    *Keyring
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer builds an Issuer. Zero TTLs fall back to the package defaults.
func NewIssuer(keyring *Keyring, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{keyring: keyring, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Principal is the identity embedded in a minted access token.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// IssueAccess signs a new access token for p, returning the compact JWT and
// its expiry.
func (iss *Issuer) IssueAccess(p Principal) (token string, expiresAt time.Time, err error) {
	kid, key, err := iss.keyring.Sign()
	if err != nil {
		return "", time.Time{}, err
	}

	now := time.Now()
	exp := now.Add(iss.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: p.Email,
		Name:  p.Name,
		Role:  p.Role,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = kid

	signed, err := t.SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// RefreshTTL reports the configured refresh-token lifetime, used by the
// refresh-token store to compute expiry.
func (iss *Issuer) RefreshTTL() time.Duration { return iss.refreshTTL }

// Keyring exposes the issuer's keyring so a Verifier can be built
// sharing the same signing keys.
func (iss *Issuer) Keyring() *Keyring { return iss.keyring }

// NewRefreshToken generates a new opaque refresh token. The token itself
// carries no claims — its identity, session, and expiry live in the
// refresh-token store row, keyed by the token's hash.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Verifier checks access tokens against a Keyring, selecting the
// verification key by the token's kid header.
type Verifier struct {
	keyring *Keyring
}

// NewVerifier builds a Verifier sharing the issuer's keyring.
func NewVerifier(keyring *Keyring) *Verifier {
	return &Verifier{keyring: keyring}
}

// ErrInvalidToken and ErrExpiredToken distinguish a malformed/mis-signed
// token from one that parsed fine but is past its exp, matching the
// auth.verify operation's invalid_token/expired_token split.
var (
	ErrInvalidToken = fmt.Errorf("invalid_token")
	ErrExpiredToken = fmt.Errorf("expired_token")
)

// Verify parses and validates tokenString, returning the embedded claims.
func (v *Verifier) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token missing kid")
		}
		return v.keyring.Key(kid)
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
