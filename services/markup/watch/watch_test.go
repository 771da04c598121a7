// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/markup/services/markup"
)

const waitTimeout = 5 * time.Second

func testOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = 20 * time.Millisecond
	return opts
}

// startWatcher starts a watcher on a fresh directory and returns the
// directory and a channel of every reported change.
func startWatcher(t *testing.T, setup func(dir string)) (string, <-chan Change) {
	t.Helper()
	dir := t.TempDir()
	if setup != nil {
		setup(dir)
	}

	ch := make(chan Change, 100)
	w, err := New(dir, nil, func(changes []Change) {
		for _, c := range changes {
			ch <- c
		}
	}, testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	return dir, ch
}

// waitFor returns the first change for path, failing after waitTimeout.
// Changes for other paths are collected into seen.
func waitFor(t *testing.T, ch <-chan Change, path string, seen *[]string) Change {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case c := <-ch:
			if c.Path == path {
				return c
			}
			if seen != nil {
				*seen = append(*seen, c.Path)
			}
		case <-deadline:
			t.Fatalf("no change reported for %s", path)
			return Change{}
		}
	}
}

func TestWatcher_ParsesWrittenFile(t *testing.T) {
	dir, ch := startWatcher(t, nil)

	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<ul><li>a</li><li>b</li></ul>"), 0o644))

	c := waitFor(t, ch, path, nil)
	assert.False(t, c.Removed)
	require.NoError(t, c.Err)
	require.NotNil(t, c.Result)
	assert.Equal(t, markup.LanguageHTML, c.Result.Language)
	assert.Equal(t, 3, c.Result.Stats.Elements)
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	dir, ch := startWatcher(t, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	css := filepath.Join(dir, "site.css")
	require.NoError(t, os.WriteFile(css, []byte("a { color: red }"), 0o644))

	var seen []string
	c := waitFor(t, ch, css, &seen)
	require.NotNil(t, c.Result)
	assert.Equal(t, 1, c.Result.Stats.Rules)
	assert.NotContains(t, seen, filepath.Join(dir, "notes.txt"))
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	var path string
	_, ch := startWatcher(t, func(dir string) {
		path = filepath.Join(dir, "gone.css")
		require.NoError(t, os.WriteFile(path, []byte("a{}"), 0o644))
	})

	require.NoError(t, os.Remove(path))

	c := waitFor(t, ch, path, nil)
	assert.True(t, c.Removed)
	assert.Nil(t, c.Result)
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir, ch := startWatcher(t, nil)

	sub := filepath.Join(dir, "pages")
	require.NoError(t, os.Mkdir(sub, 0o755))
	path := filepath.Join(sub, "about.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>about</p>"), 0o644))

	c := waitFor(t, ch, path, nil)
	require.NotNil(t, c.Result)
	assert.Equal(t, 1, c.Result.Stats.Elements)
}

func TestWatcher_SkipsHiddenDirectories(t *testing.T) {
	dir, ch := startWatcher(t, func(dir string) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".cache"), 0o755))
	})

	hidden := filepath.Join(dir, ".cache", "x.html")
	require.NoError(t, os.WriteFile(hidden, []byte("<p>x</p>"), 0o644))
	visible := filepath.Join(dir, "y.html")
	require.NoError(t, os.WriteFile(visible, []byte("<p>y</p>"), 0o644))

	var seen []string
	waitFor(t, ch, visible, &seen)
	assert.NotContains(t, seen, hidden)
}

func TestWatcher_ShouldIgnore(t *testing.T) {
	w, err := New(t.TempDir(), nil, func([]Change) {}, DefaultOptions())
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		rel  string
		want bool
	}{
		{"index.html", false},
		{"a/b/c.css", false},
		{".git/config", true},
		{"a/.hidden/x.html", true},
		{"node_modules/pkg/x.css", true},
		{"page.html.swp", true},
		{"page.html~", true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, w.shouldIgnore(filepath.Join(w.root, tt.rel)))
		})
	}
	assert.False(t, w.shouldIgnore(w.root))
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(t.TempDir(), nil, func([]Change) {}, DefaultOptions())
	require.NoError(t, err)

	assert.False(t, w.IsWatching())
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsWatching())

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(t.TempDir(), nil, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = New(filepath.Join(t.TempDir(), "missing"), nil, func([]Change) {}, DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "f.html")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, nil, func([]Change) {}, DefaultOptions())
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}
