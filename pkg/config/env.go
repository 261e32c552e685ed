// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config provides environment-variable configuration loading shared
// by every lessonforge service, plus a file-backed overlay for values that
// should hot-reload without a restart (signing keys, rate limits, CORS
// origins).
package config

import (
	"os"
	"strconv"
	"time"
)

// String returns the environment variable value or a default.
func String(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Int returns the environment variable parsed as int, or a default.
func Int(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// Duration returns the environment variable parsed with ParseDuration, or a
// default.
func Duration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// Bool returns the environment variable parsed as bool, or a default.
func Bool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
