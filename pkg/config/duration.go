// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// maxDurationDays bounds any TTL-like config value (10 years).
	maxDurationDays = 3650

	// minDurationMinutes bounds any TTL-like config value (1 minute).
	minDurationMinutes = 1

	daysPerMonth = 30
	daysPerYear  = 365
	daysPerWeek  = 7
)

var simpleFormatRegex = regexp.MustCompile(`^(\d+)(m|h|d|w|M|y)$`)

// ParseDuration parses a human-friendly duration string such as "15m",
// "14d", "10m" used throughout service configuration (access/refresh token
// TTLs, OTP TTL, health-poll interval). Falls back to time.ParseDuration
// for Go-native strings like "90s" so either style works in env vars.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if matches := simpleFormatRegex.FindStringSubmatch(s); matches != nil {
		value, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration value: %q", matches[1])
		}
		d, err := unitDuration(value, matches[2])
		if err != nil {
			return 0, err
		}
		return d, validateDuration(d)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, validateDuration(d)
}

func unitDuration(value int, unit string) (time.Duration, error) {
	switch unit {
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "w":
		return time.Duration(value) * daysPerWeek * 24 * time.Hour, nil
	case "M":
		return time.Duration(value) * daysPerMonth * 24 * time.Hour, nil
	case "y":
		return time.Duration(value) * daysPerYear * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %q", unit)
	}
}

func validateDuration(d time.Duration) error {
	min := time.Duration(minDurationMinutes) * time.Minute
	max := time.Duration(maxDurationDays) * 24 * time.Hour
	if d < min {
		return fmt.Errorf("duration too short: minimum is %s", min)
	}
	if d > max {
		return fmt.Errorf("duration too long: maximum is %s", max)
	}
	return nil
}

// MustParseDuration parses s and panics on error. Intended for fixed
// default values embedded in code, not for user-supplied strings.
func MustParseDuration(s string) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}
