// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-parses HTML and CSS documents as they change on disk.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/markup/pkg/logging"
	"github.com/AleutianAI/markup/services/markup"
)

// Change is one debounced file change.
type Change struct {
	markup.FileResult

	// Removed is set when the file no longer exists. Result and Err are
	// then empty.
	Removed bool
}

// Handler receives each debounced batch of changes. It is called from a
// single goroutine.
type Handler func(changes []Change)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for further events before parsing.
	// Default: 200ms
	Debounce time.Duration

	// Concurrency bounds parallel parses within a batch.
	// Default: 0 (GOMAXPROCS)
	Concurrency int

	// IgnorePatterns are base-name globs for paths to skip. Hidden
	// entries (leading dot) are always skipped.
	// Default: ["node_modules", "*.swp", "*.tmp", "*~"]
	IgnorePatterns []string

	// BufferSize is the event channel capacity.
	// Default: 1000
	BufferSize int

	// Logger receives watch errors. Default: logging.Discard().
	Logger *logging.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:       200 * time.Millisecond,
		IgnorePatterns: []string{"node_modules", "*.swp", "*.tmp", "*~"},
		BufferSize:     1000,
	}
}

// ErrNilHandler is returned by New when no handler is given.
var ErrNilHandler = errors.New("watch: nil handler")

type event struct {
	path string
}

// Watcher watches a directory tree and re-parses supported documents
// after they change.
//
// # Description
//
// Events for files the registry cannot parse are dropped. The remaining
// paths are collected until Debounce passes with no new events, then
// parsed as one batch with markup.ParseFiles and handed to the Handler.
// A file that no longer exists at flush time is reported as Removed.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use. The handler is never called
// concurrently with itself.
type Watcher struct {
	root     string
	registry *markup.ParserRegistry
	handler  Handler
	opts     Options
	logger   *logging.Logger
	watcher  *fsnotify.Watcher

	events   chan event
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	watching bool
}

// New creates a watcher for root. Call Start to begin watching.
//
// # Inputs
//
//   - root: Directory to watch recursively.
//   - registry: Parsers used for filtering and re-parsing.
//   - handler: Receives debounced batches.
//   - opts: Watcher options; zero fields take defaults.
//
// # Example
//
//	w, err := watch.New(dir, registry, func(changes []watch.Change) {
//	    for _, c := range changes {
//	        fmt.Println(c.Path, c.Removed)
//	    }
//	}, watch.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//	return w.Start(ctx)
func New(root string, registry *markup.ParserRegistry, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if registry == nil {
		registry = markup.NewDefaultRegistry(markup.DefaultOptions())
	}
	defaults := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = defaults.Debounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.IgnorePatterns == nil {
		opts.IgnorePatterns = defaults.IgnorePatterns
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "watch", Path: abs, Err: errors.New("not a directory")}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     abs,
		registry: registry,
		handler:  handler,
		opts:     opts,
		logger:   logger.With("component", "watch", "root", abs),
		watcher:  fw,
		events:   make(chan event, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start adds the tree to the watch and starts the event and debounce
// goroutines. Both exit on Stop or when ctx is canceled. Calling Start on
// a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root, false); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching for changes", "extensions", strings.Join(w.registry.Extensions(), ","))
	return nil
}

// Stop stops watching and waits for the goroutines to exit. Pending
// changes that have not been flushed are discarded.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "error", err)
		}
		w.wg.Wait()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive watches dir and its subdirectories. With enqueue set,
// supported files already present are queued, so files created together
// with a new directory are not missed.
func (w *Watcher) addRecursive(dir string, enqueue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != w.root && w.shouldIgnore(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if enqueue && w.registry.Supports(path) {
			w.enqueue(path)
		}
		return nil
	})
}

// shouldIgnore reports whether any element of path below the root is
// hidden or matches an ignore pattern.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
		for _, pattern := range w.opts.IgnorePatterns {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) enqueue(path string) {
	select {
	case w.events <- event{path: path}:
	default:
		w.logger.Warn("event buffer full, dropping change", "path", path)
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name, true); err != nil {
						w.logger.Warn("watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !w.registry.Supports(ev.Name) {
				continue
			}
			w.enqueue(ev.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()

	var (
		batch  []string
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev := <-w.events:
			batch = append(batch, ev.path)
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.Debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			paths := dedupe(batch)
			batch = batch[:0]
			if changes := w.parse(ctx, paths); len(changes) > 0 {
				w.handler(changes)
			}
		}
	}
}

// parse re-parses the paths that still exist and marks the rest removed.
// Changes come back in the order of paths.
func (w *Watcher) parse(ctx context.Context, paths []string) []Change {
	changes := make([]Change, len(paths))
	var existing []string
	index := make(map[string]int, len(paths))
	for i, path := range paths {
		changes[i].Path = path
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			changes[i].Removed = true
			continue
		}
		index[path] = i
		existing = append(existing, path)
	}

	if len(existing) > 0 {
		results, err := markup.ParseFiles(ctx, w.registry, existing, w.opts.Concurrency)
		if err != nil {
			w.logger.Debug("batch canceled", "error", err)
			return nil
		}
		for _, r := range results {
			changes[index[r.Path]].FileResult = r
			if r.Err != nil {
				w.logger.Warn("parse failed", "path", r.Path, "error", r.Err)
			}
		}
	}
	return changes
}

// dedupe returns paths with duplicates removed, keeping first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
