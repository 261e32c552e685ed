// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aleutian-tutor/lessonforge/pkg/schedule"
)

// HealthCache is a liveness cache for downstream bases, refreshed on a
// cron schedule and updated opportunistically from real proxied traffic
// outcomes. Misses (a target never polled yet) are treated as live —
// the cache is advisory, not a gate of first resort.
type HealthCache struct {
	mu   sync.RWMutex
	live map[string]bool
	http *http.Client
}

// NewHealthCache builds an empty cache.
func NewHealthCache() *HealthCache {
	return &HealthCache{
		live: make(map[string]bool),
		http: &http.Client{Timeout: 2 * time.Second},
	}
}

// IsLive reports the last known liveness of targetBase.
func (h *HealthCache) IsLive(targetBase string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	live, known := h.live[targetBase]
	return !known || live
}

// Set opportunistically records an observed outcome for targetBase,
// called from the proxy's error handler on a hard failure and from
// successful responses alike.
func (h *HealthCache) Set(targetBase string, live bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live[targetBase] = live
}

// poll issues a bounded GET against targetBase + "/healthz" and records
// the outcome.
func (h *HealthCache) poll(ctx context.Context, targetBase string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetBase+"/healthz", nil)
	if err != nil {
		h.Set(targetBase, false)
		return
	}
	resp, err := h.http.Do(req)
	if err != nil {
		h.Set(targetBase, false)
		return
	}
	defer resp.Body.Close()
	h.Set(targetBase, resp.StatusCode == http.StatusOK)
}

// StartPolling schedules a liveness poll of every target in routes on a
// cron expression (e.g. "*/10 * * * * *" is not valid five-field cron;
// use something like "* * * * *" for once-a-minute polling, coarse
// enough for a liveness cache backing a 503 fallback).
func (h *HealthCache) StartPolling(sched *schedule.CronScheduler, expr string, routes []Route) error {
	targets := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		targets[r.TargetBase] = struct{}{}
	}
	_, err := sched.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for target := range targets {
			h.poll(ctx, target)
		}
	})
	return err
}
