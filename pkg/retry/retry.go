// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retry provides the exponential-backoff retry helper shared by
// the Lesson Generator and Quiz/Notes services when calling an external
// text generator that can fail transiently.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config configures exponential-backoff retry behavior.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

// Default returns the pipeline's standard retry policy: 3 attempts,
// starting at 1s, doubling up to 10s.
func Default() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Permanent wraps an error to signal it should not be retried — e.g. a
// parse failure that will recur identically on every attempt because
// the input, not the backend, is at fault.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// MarkPermanent wraps err so Do stops retrying immediately.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

func isPermanent(err error) bool {
	var p *Permanent
	return errors.As(err, &p)
}

// Func is retried by Do; attempt is 1-indexed.
type Func func(ctx context.Context, attempt int) error

// Result reports how many attempts Do made and the error it gave up on.
type Result struct {
	Attempts int
	LastErr  error
}

// Do executes fn with exponential backoff between attempts, stopping
// early if fn returns a Permanent error or ctx is cancelled.
func Do(ctx context.Context, cfg Config, fn Func) Result {
	backoff := cfg.InitialBackoff
	result := Result{}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.LastErr = err
			return result
		}

		err := fn(ctx, attempt)
		if err == nil {
			result.LastErr = nil
			return result
		}
		result.LastErr = err

		if isPermanent(err) || attempt == cfg.MaxAttempts {
			return result
		}

		wait := jitter(backoff, cfg.JitterFactor)
		select {
		case <-ctx.Done():
			result.LastErr = ctx.Err()
			return result
		case <-time.After(wait):
		}
		backoff = nextBackoff(backoff, cfg.BackoffFactor, cfg.MaxBackoff)
	}
	return result
}

func jitter(base time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return base
	}
	spread := (rand.Float64()*2 - 1) * factor
	return time.Duration(float64(base) * (1.0 + spread))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
