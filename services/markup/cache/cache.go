// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache stores parse summaries keyed by content hash.
//
// A summary is small: the statistics of a parse, not the tree. It lets the
// stats command and the HTTP API skip re-parsing unchanged documents. Keys
// combine language, content hash and the options fingerprint, so a change
// in parse options never serves a stale summary.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Concurrent GetOrCompute calls for the
// same key share one computation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/markup/services/markup"
)

const keyPrefix = "markup/v1/"

// ErrNotFound is returned by Get for a missing or expired key.
var ErrNotFound = errors.New("cache: not found")

// Summary is the cached form of a parse result.
type Summary struct {
	Hash          string          `json:"hash"`
	Language      markup.Language `json:"language"`
	Stats         markup.Stats    `json:"stats"`
	ParsedAtMilli int64           `json:"parsed_at_milli"`
}

// SummaryOf extracts the cacheable part of result.
func SummaryOf(result *markup.ParseResult) Summary {
	return Summary{
		Hash:          result.Hash,
		Language:      result.Language,
		Stats:         result.Stats,
		ParsedAtMilli: result.ParsedAtMilli,
	}
}

// Key builds the cache key for a document.
//
// Example:
//
//	key := cache.Key(markup.LanguageHTML, result.Hash, opts.Fingerprint())
func Key(language markup.Language, hash, fingerprint string) string {
	return keyPrefix + string(language) + "/" + fingerprint + "/" + hash
}

// Cache is a badger-backed summary store.
type Cache struct {
	db    *badger.DB
	cfg   Config
	gc    *gcRunner
	group singleflight.Group

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the cache described by cfg.
//
// Description:
//
//	Persistent caches create cfg.Path if needed and start a value log GC
//	loop when cfg.GCInterval is positive. The caller must Close the cache.
//
// Outputs:
//
//	*Cache - The open cache.
//	error - Missing path or badger open failure.
func Open(cfg Config) (*Cache, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	c := &Cache{db: db, cfg: cfg}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		c.gc = startGC(db, cfg.GCInterval, ratio, cfg.Logger)
	}
	return c, nil
}

// Close stops GC and closes the database. Later calls return the result
// of the first.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		if c.gc != nil {
			c.gc.stop()
		}
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// Get returns the summary stored under key, or ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) (Summary, error) {
	var summary Summary
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("cache get: %w", err)
	}

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &summary)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return summary, ErrNotFound
	}
	if err != nil {
		return summary, fmt.Errorf("cache get %s: %w", key, err)
	}
	return summary, nil
}

// Put stores summary under key with the configured TTL.
func (c *Cache) Put(ctx context.Context, key string, summary Summary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}

	val, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), val)
		if c.cfg.TTL > 0 {
			entry = entry.WithTTL(c.cfg.TTL)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// GetOrCompute returns the cached summary for key, or calls compute,
// stores its result and returns it.
//
// Description:
//
//	Concurrent callers with the same key wait for a single compute call.
//	A compute error is returned to every waiter and nothing is stored.
//	A failed Put after a successful compute is ignored; the summary is
//	still returned.
//
// Outputs:
//
//	Summary - The cached or computed summary.
//	bool - True when served from the cache.
//	error - Compute or read failure.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (Summary, error)) (Summary, bool, error) {
	summary, err := c.Get(ctx, key)
	if err == nil {
		return summary, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Summary{}, false, err
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		s, err := compute(ctx)
		if err != nil {
			return Summary{}, err
		}
		_ = c.Put(ctx, key, s)
		return s, nil
	})
	if err != nil {
		return Summary{}, false, err
	}
	return v.(Summary), false, nil
}

// Len counts live entries. Intended for tests and diagnostics.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
