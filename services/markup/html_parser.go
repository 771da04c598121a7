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
	"github.com/AleutianAI/markup/services/markup/html"
)

// HTMLParser parses HTML documents.
//
// Description:
//
//	HTMLParser validates the content and builds the node tree with
//	html.Parser. When inline styles are enabled, every style attribute is
//	parsed as a declaration list and the text of every <style> element is
//	parsed as a stylesheet.
//
// Thread Safety:
//
//	HTMLParser is safe for concurrent use. Each Parse call creates its own
//	html.Parser.
//
// Example:
//
//	parser := NewHTMLParser(WithHTMLSkipWhitespaceText(true))
//	result, err := parser.Parse(ctx, content, "index.html")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	fmt.Println(result.Stats.Elements)
type HTMLParser struct {
	options HTMLParserOptions
}

// HTMLParserOptions configures HTMLParser behavior.
type HTMLParserOptions struct {
	// MaxFileSize is the maximum content size in bytes. Larger content
	// returns ErrFileTooLarge. Zero disables the check.
	// Default: 10MB
	MaxFileSize int

	// SkipWhitespaceText drops whitespace-only text nodes.
	// Default: false
	SkipWhitespaceText bool

	// ParseInlineStyles parses style attributes and <style> elements.
	// Default: true
	ParseInlineStyles bool
}

// DefaultHTMLParserOptions returns the default options.
func DefaultHTMLParserOptions() HTMLParserOptions {
	return HTMLParserOptions{
		MaxFileSize:       DefaultMaxFileSize,
		ParseInlineStyles: true,
	}
}

// HTMLParserOption is a functional option for configuring HTMLParser.
type HTMLParserOption func(*HTMLParserOptions)

// WithHTMLMaxFileSize sets the maximum file size for parsing.
func WithHTMLMaxFileSize(size int) HTMLParserOption {
	return func(o *HTMLParserOptions) {
		o.MaxFileSize = size
	}
}

// WithHTMLSkipWhitespaceText sets whether whitespace-only text is dropped.
func WithHTMLSkipWhitespaceText(skip bool) HTMLParserOption {
	return func(o *HTMLParserOptions) {
		o.SkipWhitespaceText = skip
	}
}

// WithHTMLParseInlineStyles sets whether inline styles are parsed.
func WithHTMLParseInlineStyles(parse bool) HTMLParserOption {
	return func(o *HTMLParserOptions) {
		o.ParseInlineStyles = parse
	}
}

// NewHTMLParser creates a new HTMLParser with the given options.
func NewHTMLParser(opts ...HTMLParserOption) *HTMLParser {
	options := DefaultHTMLParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &HTMLParser{options: options}
}

// Language implements Parser.
func (p *HTMLParser) Language() Language {
	return LanguageHTML
}

// Extensions implements Parser.
func (p *HTMLParser) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// Parse implements Parser.
func (p *HTMLParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	if err := checkContent(ctx, content, p.options.MaxFileSize, filePath); err != nil {
		if ctx != nil {
			recordParseMetrics(ctx, LanguageHTML, 0, 0, false)
		}
		return nil, err
	}

	ctx, span := startParseSpan(ctx, LanguageHTML, filePath, len(content))
	defer span.End()
	start := time.Now()

	result := &ParseResult{
		FilePath:      filePath,
		Language:      LanguageHTML,
		Hash:          HashContent(content),
		ParsedAtMilli: start.UnixMilli(),
	}

	parser := html.NewParser(string(content), html.WithSkipWhitespaceText(p.options.SkipWhitespaceText))
	result.Nodes = parser.Parse()

	hs := parser.Stats()
	result.Stats = Stats{
		Tokens:       hs.Tokens,
		Elements:     hs.Elements,
		TextNodes:    hs.TextNodes,
		Comments:     hs.Comments,
		StrayEndTags: hs.StrayEndTags,
		MaxDepth:     hs.MaxDepth,
	}

	if err := checkCanceled(ctx, filePath); err != nil {
		recordParseMetrics(ctx, LanguageHTML, time.Since(start), 0, false)
		return nil, err
	}

	if p.options.ParseInlineStyles {
		p.parseStyles(result)
	}

	setParseSpanResult(span, result.Stats)
	recordParseMetrics(ctx, LanguageHTML, time.Since(start), result.Stats.Elements, true)
	return result, nil
}

// parseStyles parses style attributes and <style> element contents.
func (p *HTMLParser) parseStyles(result *ParseResult) {
	html.Walk(result.Nodes, func(n html.Node, _ int) bool {
		el, ok := n.(*html.Element)
		if !ok {
			return true
		}

		if style, ok := el.Attributes.Get("style"); ok {
			if result.InlineStyles == nil {
				result.InlineStyles = make(map[*html.Element]css.Declarations)
			}
			decls := css.ParseDeclarations(style)
			result.InlineStyles[el] = decls
			result.Stats.InlineStyles++
			result.Stats.Declarations += decls.Len()
		}

		if el.TagName == "style" {
			parser := css.NewParser(html.TextContent(el))
			result.Rules = append(result.Rules, parser.Parse()...)
			result.SkippedAtRules = append(result.SkippedAtRules, parser.Skipped()...)
			result.Stats.addCSS(parser.Stats())
			return false
		}
		return true
	})
}
