// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

var (
	userCreateEmail       string
	userCreatePassword    string
	userCreateDisplayName string
	userCreateRole        string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account directly in the store, bypassing signup's password policy and OTP flow",
	Run:   runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "account email (required)")
	userCreateCmd.Flags().StringVar(&userCreatePassword, "password", "", "account password (required)")
	userCreateCmd.Flags().StringVar(&userCreateDisplayName, "display-name", "", "display name")
	userCreateCmd.Flags().StringVar(&userCreateRole, "role", "student", "role: student|instructor|admin")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
}

func runUserCreate(cmd *cobra.Command, args []string) {
	db := mustOpenStore()
	defer db.Close()
	store := docstore.New(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(userCreatePassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("lessonctl: hash password: %v", err)
	}

	now := time.Now().UTC()
	u := docstore.User{
		UserID:       uuid.New().String(),
		Email:        userCreateEmail,
		PasswordHash: string(hash),
		DisplayName:  userCreateDisplayName,
		Role:         userCreateRole,
		CreatedAt:    now,
		LastSeenAt:   now,
		Active:       true,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		log.Fatalf("lessonctl: create user: %v", err)
	}
	fmt.Printf("created user %s <%s> (role=%s)\n", u.UserID, u.Email, u.Role)
}
