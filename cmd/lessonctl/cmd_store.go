// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/aleutian-tutor/lessonforge/pkg/docstore"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Operate on a BadgerDB store directly",
}

var storeCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run value-log GC and flatten the LSM tree, reclaiming space from deleted/overwritten keys",
	Run:   runStoreCompact,
}

func runStoreCompact(cmd *cobra.Command, args []string) {
	db := mustOpenStore()
	defer db.Close()
	raw := db.Raw()

	reclaimed := 0
	for {
		if err := raw.RunValueLogGC(0.5); err != nil {
			if err != badger.ErrNoRewrite {
				log.Fatalf("lessonctl: value log gc: %v", err)
			}
			break
		}
		reclaimed++
	}
	fmt.Printf("value log gc: %d file(s) rewritten\n", reclaimed)

	if err := raw.Flatten(4); err != nil {
		log.Fatalf("lessonctl: flatten: %v", err)
	}
	fmt.Println("lsm tree flattened")
}

// mustOpenStore opens the configured store path with production
// defaults; lessonctl always talks to an on-disk store, never the
// in-memory mode tests use.
func mustOpenStore() *docstore.DB {
	cfg := docstore.DefaultConfig()
	cfg.Path = storePath
	db, err := docstore.OpenDB(cfg)
	if err != nil {
		log.Fatalf("lessonctl: open store at %s: %v", storePath, err)
	}
	return db
}
