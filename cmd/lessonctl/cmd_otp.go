// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

const otpValidity = 10 * time.Minute

var otpIssueEmail string

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Manage one-time passwords",
}

var otpIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a password-recovery OTP for a user out of band, bypassing the 60s resend cooldown",
	Run:   runOTPIssue,
}

func init() {
	otpIssueCmd.Flags().StringVar(&otpIssueEmail, "email", "", "account email (required)")
	_ = otpIssueCmd.MarkFlagRequired("email")
}

func runOTPIssue(cmd *cobra.Command, args []string) {
	db := mustOpenStore()
	defer db.Close()
	store := docstore.New(db)
	ctx := context.Background()

	if _, err := store.GetUserByEmail(ctx, otpIssueEmail); err != nil {
		log.Fatalf("lessonctl: no such user: %v", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		log.Fatalf("lessonctl: generate otp: %v", err)
	}

	now := time.Now().UTC()
	otp := docstore.OTP{
		Email:             otpIssueEmail,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(otpValidity),
		AttemptsRemaining: 5,
	}
	if err := store.UpsertOTP(ctx, otp); err != nil {
		log.Fatalf("lessonctl: persist otp: %v", err)
	}
	fmt.Printf("otp %s issued for %s, expires %s\n", code, otpIssueEmail, otp.ExpiresAt.Format(time.RFC3339))
}

// generateOTPCode mirrors the internal/auth issuance format: a
// zero-padded 6-digit code drawn uniformly from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
