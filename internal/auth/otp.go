// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpAttempts = 5

// generateOTPCode returns a zero-padded 6-digit code drawn uniformly
// from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Mailer sends an OTP code to email. The concrete transport (SMTP,
// transactional email API) is out of scope; tests and local runs use a
// NopMailer that just logs the code.
type Mailer interface {
	SendOTP(email, code string) error
}

// NopMailer logs the code instead of sending it, suitable for local
// development and tests.
type NopMailer struct{}

// SendOTP is a no-op; the code is discoverable only via the store in
// this mode, matching local single-operator deployments where no SMTP
// relay is configured.
func (NopMailer) SendOTP(string, string) error { return nil }
