// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docstore is the embedded document store for lessonforge,
// backed by BadgerDB. It is the system of record: every service keeps
// its tables here rather than in a shared external database, and blob
// bytes (uploaded PDFs, extracted page images) live alongside the
// structured rows in the same value log.
package docstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Config controls how the underlying BadgerDB instance is opened.
type Config struct {
	// InMemory runs Badger with no on-disk files; used by tests.
	InMemory bool

	// Path is the on-disk directory for the value log and LSM tree.
	// Required unless InMemory is true.
	Path string

	// SyncWrites forces an fsync after every write batch; on by default
	// for durability, disabled for InMemory.
	SyncWrites bool

	// NumVersionsToKeep bounds version history per key; the document
	// store never needs more than the latest value.
	NumVersionsToKeep int

	// GCInterval is a value-log GC period for callers that run a
	// GCRunner; OpenDB does not read it and starts no GC itself.
	// Zero marks GC as off (appropriate for InMemory, which has no value log).
	GCInterval time.Duration
}

// DefaultConfig returns production defaults for a persistent store.
func DefaultConfig() Config {
	return Config{
		InMemory:          false,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
	}
}

// InMemoryConfig returns defaults for an ephemeral, in-memory store.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
		GCInterval:        0,
	}
}

// DB wraps a *badger.DB with context-aware transaction helpers.
type DB struct {
	bdb *badger.DB
}

// Open validates cfg and opens the underlying BadgerDB.
func Open(cfg Config) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("docstore: path is required for a persistent store")
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts = opts.WithInMemory(cfg.InMemory)
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}
	opts = opts.WithLogger(nil)

	return badger.Open(opts)
}

// OpenDB opens a managed DB wrapper around the configured BadgerDB. It
// starts no background GC; cfg.GCInterval is not read here.
func OpenDB(cfg Config) (*DB, error) {
	bdb, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return &DB{bdb: bdb}, nil
}

// OpenInMemory is a convenience wrapper over OpenDB(InMemoryConfig()),
// returning the raw *badger.DB for callers that only need direct
// Update/View access (tests, migrations).
func OpenInMemory() (*badger.DB, error) {
	return Open(InMemoryConfig())
}

// OpenWithPath opens a persistent store rooted at dir using
// DefaultConfig(), returning the raw *badger.DB.
func OpenWithPath(dir string) (*badger.DB, error) {
	cfg := DefaultConfig()
	cfg.Path = dir
	return Open(cfg)
}

// Raw returns the underlying *badger.DB for callers that need direct
// Update/View access outside the context-aware helpers.
func (d *DB) Raw() *badger.DB { return d.bdb }

// Close closes the underlying BadgerDB.
func (d *DB) Close() error { return d.bdb.Close() }

// WithTxn runs fn inside a read-write Badger transaction, aborting before
// starting if ctx is already cancelled.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("docstore: context cancelled: %w", ctx.Err())
	default:
	}
	return d.bdb.Update(fn)
}

// WithReadTxn runs fn inside a read-only Badger transaction, aborting
// before starting if ctx is already cancelled.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("docstore: context cancelled: %w", ctx.Err())
	default:
	}
	return d.bdb.View(fn)
}

// GCRunner periodically runs BadgerDB's value-log garbage collection.
type GCRunner struct {
	db       *DB
	interval time.Duration
	ratio    float64
	done     chan struct{}
}

// NewGCRunner validates its arguments and builds a GCRunner. logger is
// accepted for parity with the trace-store original and may be nil; this
// package logs via log/slog directly instead.
func NewGCRunner(db *DB, interval time.Duration, ratio float64, _ any) (*GCRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("docstore: db must not be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("docstore: interval must be positive")
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("docstore: ratio must be between 0 and 1")
	}
	return &GCRunner{db: db, interval: interval, ratio: ratio, done: make(chan struct{})}, nil
}

// Start launches the GC loop in a background goroutine.
func (g *GCRunner) Start() {
	go g.loop()
}

// Stop signals the loop to exit. Safe to call once.
func (g *GCRunner) Stop() {
	close(g.done)
}

func (g *GCRunner) loop() {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
		again:
			if err := g.db.bdb.RunValueLogGC(g.ratio); err == nil {
				goto again // badger returns nil while there's still room to reclaim
			}
		}
	}
}

// TempDir creates a fresh temporary directory for a persistent test store.
func TempDir(prefix string) (string, error) {
	return os.MkdirTemp("", prefix)
}

// CleanupDir removes a directory created by TempDir. A no-op for an empty
// path so deferred cleanup is safe even when TempDir was never called.
func CleanupDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
