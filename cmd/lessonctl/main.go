// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// lessonctl is an operator CLI over the same BadgerDB-backed document
// store the services run against: user provisioning, OTP issuance, a
// signing-key generator for JWT_SIGNING_KEY, and store compaction.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var storePath string

var rootCmd = &cobra.Command{
	Use:   "lessonctl",
	Short: "Operator CLI for the lessonforge document store",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "./data/auth", "path to the BadgerDB store this command operates on")

	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	rootCmd.AddCommand(otpCmd)
	otpCmd.AddCommand(otpIssueCmd)

	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyRotateCmd)

	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeCompactCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("lessonctl: %v", err)
	}
}
