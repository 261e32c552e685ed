// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RunsImmediatelyThenOnEachInterval(t *testing.T) {
	var count int32
	r := New("test-task", 20*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&count) >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunner_StartTwiceReturnsError(t *testing.T) {
	r := New("test-task", time.Hour, func(ctx context.Context) error { return nil })
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	assert.Error(t, r.Start(ctx))
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	r := New("test-task", time.Hour, func(ctx context.Context) error { return nil })
	require.NoError(t, r.Start(context.Background()))
	r.Stop()
	assert.NotPanics(t, func() { r.Stop() })
}

func TestRunner_StopsWhenContextCancelled(t *testing.T) {
	var count int32
	ctx, cancel := context.WithCancel(context.Background())
	r := New("test-task", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, r.Start(ctx))
	cancel()

	time.Sleep(50 * time.Millisecond)
	stopped := atomic.LoadInt32(&count)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&count), "no further cycles should run after context cancellation")
}

func TestRunNow_ExecutesOutsideTheSchedule(t *testing.T) {
	var count int32
	r := New("test-task", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	require.NoError(t, r.RunNow(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestRunNow_PropagatesTaskError(t *testing.T) {
	wantErr := schedulerError("boom")
	r := New("test-task", time.Hour, func(ctx context.Context) error { return wantErr })
	assert.ErrorIs(t, r.RunNow(context.Background()), wantErr)
}
