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
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// Keyring holds the active HS256 signing key plus the set of previously
// active keys still accepted for verification, each keyed by kid. Signing
// keys never leave process memory unprotected: each key is held in a
// memguard enclave and only decrypted for the duration of a sign/verify
// call.
//
// Rotation keeps the previous key around so tokens issued moments before a
// rotation still verify until they naturally expire.
type Keyring struct {
	mu      sync.RWMutex
	active  string
	enclave map[string]*memguard.Enclave
}

// NewKeyring builds a keyring from a single initial key, assigned kid "k1".
func NewKeyring(initialKey []byte) *Keyring {
	kr := &Keyring{enclave: make(map[string]*memguard.Enclave)}
	kr.addKey("k1", initialKey)
	kr.active = "k1"
	return kr
}

// GenerateKeyring creates a keyring with a fresh random 32-byte key,
// convenient for tests and local development.
func GenerateKeyring() (*Keyring, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return NewKeyring(buf), nil
}

// KeyringFromHex builds a keyring from a hex-encoded signing key, the form
// the auth service and the gateway both read from JWT_SIGNING_KEY so the
// gateway's pre-auth check can verify tokens the auth service minted
// without a shared keystore between the two processes.
func KeyringFromHex(encoded string) (*Keyring, error) {
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode signing key: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes, got %d", len(key))
	}
	return NewKeyring(key), nil
}

func (k *Keyring) addKey(kid string, key []byte) {
	locked := memguard.NewBufferFromBytes(key)
	k.enclave[kid] = locked.Seal()
}

// Rotate installs a new active signing key under a fresh kid, derived from
// the current active kid ("k1" -> "k2"). The previous key remains
// available for verification.
func (k *Keyring) Rotate(newKey []byte) (kid string, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	kid = nextKid(k.active)
	k.addKey(kid, newKey)
	k.active = kid
	return kid, nil
}

// Sign returns the active kid and its decrypted key bytes. The caller must
// treat the returned slice as sensitive and must not retain it past the
// signing call.
func (k *Keyring) Sign() (kid string, key []byte, err error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	enc, ok := k.enclave[k.active]
	if !ok {
		return "", nil, fmt.Errorf("no active signing key")
	}
	buf, err := enc.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open signing key: %w", err)
	}
	defer buf.Destroy()
	return k.active, append([]byte(nil), buf.Bytes()...), nil
}

// Key returns the decrypted key bytes for a specific kid, used by the
// verifier to select the key a token was signed with. Returns an error if
// kid is unknown (rotated out or never issued).
func (k *Keyring) Key(kid string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	enc, ok := k.enclave[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key kid %q", kid)
	}
	buf, err := enc.Open()
	if err != nil {
		return nil, fmt.Errorf("open signing key %q: %w", kid, err)
	}
	defer buf.Destroy()
	return append([]byte(nil), buf.Bytes()...), nil
}

func nextKid(current string) string {
	var n int
	if _, err := fmt.Sscanf(current, "k%d", &n); err != nil {
		return "k1"
	}
	return fmt.Sprintf("k%d", n+1)
}
