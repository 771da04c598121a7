// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package markup

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of parsing one file in a batch.
type FileResult struct {
	Path   string
	Result *ParseResult

	// Err is set when the file could not be read or parsed. It never
	// aborts the rest of the batch.
	Err error

	Duration time.Duration
}

// ParseFile reads path and parses it with the registry's matching parser.
func ParseFile(ctx context.Context, registry *ParserRegistry, path string) (*ParseResult, error) {
	parser, err := registry.GetForFile(path)
	if err != nil {
		return nil, WrapParseError(err, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError(path, 0, 0, "read failed", err)
	}
	return parser.Parse(ctx, content, path)
}

// ParseFiles parses paths concurrently.
//
// Description:
//
//	Files are parsed by at most concurrency goroutines (GOMAXPROCS when
//	concurrency <= 0). Per-file failures are recorded on the matching
//	FileResult. Only cancellation of ctx stops the batch, in which case
//	the context error is returned along with whatever results completed.
//
// Outputs:
//
//	[]FileResult - One entry per path, in the order given.
//	error        - Non-nil only when ctx was canceled.
//
// Example:
//
//	results, err := markup.ParseFiles(ctx, registry, paths, 4)
//	for _, r := range results {
//	    if r.Err != nil {
//	        logger.Warn("parse failed", "path", r.Path, "error", r.Err)
//	    }
//	}
func ParseFiles(ctx context.Context, registry *ParserRegistry, paths []string, concurrency int) ([]FileResult, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]FileResult, len(paths))
	for i, path := range paths {
		results[i].Path = path
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			start := time.Now()
			result, err := ParseFile(gCtx, registry, path)
			results[i] = FileResult{
				Path:     path,
				Result:   result,
				Err:      err,
				Duration: time.Since(start),
			}
			recordBatchFile(gCtx, err != nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch parse: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("batch parse: %w", err)
	}
	return results, nil
}
