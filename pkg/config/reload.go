// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"gopkg.in/yaml.v3"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Reloadable holds a decoded overlay value of type T that is refreshed in
// place whenever the backing YAML file changes on disk, for values an
// operator may rotate without a restart (CORS origins, per-route rate
// ceilings, signing-key material). No service in this repository loads
// an overlay through it; the services read the JWT signing key from the
// environment.
type Reloadable[T any] struct {
	mu      sync.RWMutex
	value   T
	path    string
	watcher *fsnotify.Watcher
}

// WatchFile loads path into T and starts a goroutine that reloads it on
// every write event. If path is empty, the zero value of T is held and no
// watcher is started; callers can apply their own defaults.
func WatchFile[T any](path string) (*Reloadable[T], error) {
	r := &Reloadable[T]{path: path}
	if path == "" {
		return r, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	r.watcher = watcher

	go r.watchLoop()
	return r, nil
}

// Get returns the current value, safe for concurrent use.
func (r *Reloadable[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Close stops the watcher goroutine.
func (r *Reloadable[T]) Close() error {
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

func (r *Reloadable[T]) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return err
	}
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
	return nil
}

func (r *Reloadable[T]) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.load(); err != nil {
				slog.Error("config reload failed", "path", r.path, "error", err)
			} else {
				slog.Info("config reloaded", "path", r.path)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}
