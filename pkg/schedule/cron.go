// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schedule

import (
	"log/slog"

	cronlib "github.com/robfig/cron/v3"
)

// CronScheduler runs named jobs on standard five-field cron expressions:
// the Gateway's downstream health poll, and the Auth service's OTP-sweep
// and expired-refresh-token GC, all want a calendar schedule rather than
// a fixed ticker interval.
type CronScheduler struct {
	c *cronlib.Cron
}

// NewCronScheduler builds a scheduler that logs each job's panics rather
// than crashing the service, via cron's Recover middleware.
func NewCronScheduler() *CronScheduler {
	logger := cronlib.VerbosePrintfLogger(slogWriter{})
	c := cronlib.New(cronlib.WithChain(
		cronlib.Recover(logger),
	))
	return &CronScheduler{c: c}
}

// AddFunc schedules fn to run on the given five-field cron expression
// (e.g. "0 3 * * *" for daily at 03:00). Returns the entry ID, usable
// with Remove.
func (s *CronScheduler) AddFunc(expr string, fn func()) (cronlib.EntryID, error) {
	return s.c.AddFunc(expr, fn)
}

// Remove cancels a previously scheduled job.
func (s *CronScheduler) Remove(id cronlib.EntryID) { s.c.Remove(id) }

// Start begins running scheduled jobs in a background goroutine.
func (s *CronScheduler) Start() { s.c.Start() }

// Stop halts the scheduler and waits for any running job to finish.
func (s *CronScheduler) Stop() { <-s.c.Stop().Done() }

// slogWriter adapts log/slog to cron's io.Writer-based verbose logger.
type slogWriter struct{}

func (slogWriter) Write(p []byte) (int, error) {
	slog.Info("schedule: cron event", "msg", string(p))
	return len(p), nil
}
