// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/crosscheck"
)

// statsRow is one file's line in the stats output.
type statsRow struct {
	Path    string         `json:"path"`
	Summary *cache.Summary `json:"summary,omitempty"`
	Cached  bool           `json:"cached"`
	Error   string         `json:"error,omitempty"`

	err error
}

func newStatsCmd(a *app) *cobra.Command {
	var noCache bool
	cmd := &cobra.Command{
		Use:   "stats <file>...",
		Short: "Print parse statistics for HTML and CSS files",
		Long: `stats parses every file concurrently and prints one summary line per
file. Summaries are cached by content hash when the cache is enabled, so
unchanged files are not parsed again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *cache.Cache
			if a.cfg.Cache.Enabled && !noCache {
				var err error
				c, err = cache.Open(a.cfg.CacheStore(a.logger))
				if err != nil {
					a.logger.Warn("cache unavailable, parsing without it", "error", err)
				} else {
					defer c.Close()
				}
			}
			return a.runStats(cmd, c, args)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "parse every file even when the cache is enabled")
	return cmd
}

func (a *app) runStats(cmd *cobra.Command, c *cache.Cache, paths []string) error {
	registry := a.registry()
	fingerprint := a.cfg.ParseOptions().Fingerprint()

	rows := make([]statsRow, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	if a.cfg.Parse.Concurrency > 0 {
		g.SetLimit(a.cfg.Parse.Concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			rows[i] = statFile(ctx, registry, c, fingerprint, path)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i := range rows {
		if rows[i].err != nil {
			failed++
			rows[i].Error = rows[i].err.Error()
		}
	}

	if a.jsonOutput {
		if err := writeJSON(cmd, rows); err != nil {
			return err
		}
	} else {
		r := renderer(cmd)
		for _, row := range rows {
			var err error
			if row.err != nil {
				err = r.Failure(row.Path, row.err)
			} else {
				err = r.Stats(row.Path, row.Summary.Language, row.Summary.Stats)
			}
			if err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// statFile parses one file, going through the cache when c is non-nil.
func statFile(ctx context.Context, registry *markup.ParserRegistry, c *cache.Cache, fingerprint, path string) statsRow {
	row := statsRow{Path: path}

	parser, err := registry.GetForFile(path)
	if err != nil {
		row.err = err
		return row
	}
	content, err := os.ReadFile(path)
	if err != nil {
		row.err = err
		return row
	}

	compute := func(ctx context.Context) (cache.Summary, error) {
		result, err := parser.Parse(ctx, content, path)
		if err != nil {
			return cache.Summary{}, err
		}
		return cache.SummaryOf(result), nil
	}

	var summary cache.Summary
	if c == nil {
		summary, err = compute(ctx)
	} else {
		key := cache.Key(parser.Language(), markup.HashContent(content), fingerprint)
		summary, row.Cached, err = c.GetOrCompute(ctx, key, compute)
	}
	if err != nil {
		row.err = err
		return row
	}
	row.Summary = &summary
	return row
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		cssPath string
		strict  bool
	)
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Compare parse counts with tree-sitter and x/net/html",
		Long: `check parses the file and compares element, rule and declaration counts
with reference parsers. With --css, every selector of the stylesheet is
also matched against the HTML document.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args[0], cssPath, strict)
		},
	}
	cmd.Flags().StringVar(&cssPath, "css", "", "stylesheet whose selectors are matched against the document")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any count disagrees")
	return cmd
}

// checkOutput is the JSON form of the check command.
type checkOutput struct {
	Report  *crosscheck.Report         `json:"report"`
	Matches []crosscheck.SelectorMatch `json:"matches,omitempty"`
}

// errDisagree is returned by check --strict when counts differ.
var errDisagree = errors.New("reference parsers disagree")

func (a *app) runCheck(cmd *cobra.Command, path, cssPath string, strict bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	report, err := crosscheck.NewChecker(nil).Check(cmd.Context(), content, path)
	if err != nil {
		return err
	}

	out := checkOutput{Report: report}
	if cssPath != "" {
		if report.Language != markup.LanguageHTML {
			return fmt.Errorf("--css needs an HTML document, got %s", report.Language)
		}
		sheet, err := readInput(cmd, cssPath, string(markup.LanguageCSS))
		if err != nil {
			return err
		}
		result, err := a.parseInput(cmd, sheet)
		if err != nil {
			return err
		}
		out.Matches, err = crosscheck.MatchSelectors(content, result.Rules)
		if err != nil {
			return err
		}
	}

	if a.jsonOutput {
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else if err := printCheck(cmd, out); err != nil {
		return err
	}

	if strict && !report.Agree() {
		return errDisagree
	}
	return nil
}

func printCheck(cmd *cobra.Command, out checkOutput) error {
	w := cmd.OutOrStdout()
	report := out.Report

	status := "agree"
	if !report.Agree() {
		status = fmt.Sprintf("%d mismatches", len(report.Mismatches))
	}
	if _, err := fmt.Fprintf(w, "%s [%s] %s\n", report.FilePath, report.Language, status); err != nil {
		return err
	}
	if report.SyntaxErrors {
		if _, err := fmt.Fprintln(w, "  tree-sitter reported syntax errors"); err != nil {
			return err
		}
	}
	for _, m := range report.Mismatches {
		if _, err := fmt.Fprintf(w, "  %s\n", m); err != nil {
			return err
		}
	}
	for _, m := range out.Matches {
		var err error
		if m.Error != "" {
			_, err = fmt.Fprintf(w, "  %s: %s\n", m.Selector, m.Error)
		} else {
			_, err = fmt.Fprintf(w, "  %s: %d matches\n", m.Selector, m.Matches)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
