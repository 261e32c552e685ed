// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

const signingKeyBytes = 32

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the shared JWT signing key",
}

var keyRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Generate a fresh hex-encoded signing key for JWT_SIGNING_KEY",
	Long: `Prints a new 32-byte key, hex-encoded, suitable for JWT_SIGNING_KEY.
Rotating invalidates every access token signed under the old key; refresh
tokens are unaffected since they're opaque values looked up in the store,
not JWTs. Deploy the new value to every service and restart them together
— there is no overlap window where both keys verify.`,
	Run: runKeyRotate,
}

func runKeyRotate(cmd *cobra.Command, args []string) {
	key := make([]byte, signingKeyBytes)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("lessonctl: generate key: %v", err)
	}
	fmt.Println(hex.EncodeToString(key))
}
