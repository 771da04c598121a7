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
	"time"

	"github.com/AleutianAI/markup/services/markup/css"
)

// CSSParser parses CSS stylesheets.
//
// Thread Safety:
//
//	CSSParser is safe for concurrent use. Each Parse call creates its own
//	css.Parser.
type CSSParser struct {
	options CSSParserOptions
}

// CSSParserOptions configures CSSParser behavior.
type CSSParserOptions struct {
	// MaxFileSize is the maximum content size in bytes. Zero disables the
	// check.
	// Default: 10MB
	MaxFileSize int
}

// DefaultCSSParserOptions returns the default options.
func DefaultCSSParserOptions() CSSParserOptions {
	return CSSParserOptions{
		MaxFileSize: DefaultMaxFileSize,
	}
}

// CSSParserOption is a functional option for configuring CSSParser.
type CSSParserOption func(*CSSParserOptions)

// WithCSSMaxFileSize sets the maximum file size for parsing.
func WithCSSMaxFileSize(size int) CSSParserOption {
	return func(o *CSSParserOptions) {
		o.MaxFileSize = size
	}
}

// NewCSSParser creates a new CSSParser with the given options.
func NewCSSParser(opts ...CSSParserOption) *CSSParser {
	options := DefaultCSSParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &CSSParser{options: options}
}

// Language implements Parser.
func (p *CSSParser) Language() Language {
	return LanguageCSS
}

// Extensions implements Parser.
func (p *CSSParser) Extensions() []string {
	return []string{".css"}
}

// Parse implements Parser.
func (p *CSSParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := checkContent(ctx, content, p.options.MaxFileSize, filePath); err != nil {
		if ctx != nil {
			recordParseMetrics(ctx, LanguageCSS, 0, 0, false)
		}
		return nil, err
	}

	ctx, span := startParseSpan(ctx, LanguageCSS, filePath, len(content))
	defer span.End()
	start := time.Now()

	parser := css.NewParser(string(content))
	rules := parser.Parse()

	if err := checkCanceled(ctx, filePath); err != nil {
		recordParseMetrics(ctx, LanguageCSS, time.Since(start), 0, false)
		return nil, err
	}

	result := &ParseResult{
		FilePath:       filePath,
		Language:       LanguageCSS,
		Hash:           HashContent(content),
		ParsedAtMilli:  start.UnixMilli(),
		Rules:          rules,
		SkippedAtRules: parser.Skipped(),
	}
	cs := parser.Stats()
	result.Stats.Tokens = cs.Tokens
	result.Stats.addCSS(cs)

	setParseSpanResult(span, result.Stats)
	recordParseMetrics(ctx, LanguageCSS, time.Since(start), len(rules), true)
	return result, nil
}
