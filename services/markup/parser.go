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
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Parser turns raw document bytes into a ParseResult.
//
// Description:
//
//	Implementations validate the content, run the matching html or css
//	parser and collect statistics. Malformed markup is not an error; an
//	error is returned only when the content cannot be parsed at all.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after parsing.
//	content  - Raw document bytes. Must be valid UTF-8.
//	filePath - Path used for error reporting and stored on the result.
//
// Outputs:
//
//	*ParseResult - Never nil on success.
//	error        - ErrFileTooLarge, ErrInvalidContent, ErrNilContext or a
//	               wrapped context error.
//
// Thread Safety: Implementations are safe for concurrent use.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the language this parser handles.
	Language() Language

	// Extensions returns the lowercase file extensions handled, with the
	// leading dot.
	Extensions() []string
}

// ParserRegistry manages parser instances by language and file extension.
//
// Thread Safety: All methods are safe for concurrent use. Registration uses
// write locks, lookups use read locks.
type ParserRegistry struct {
	mu sync.RWMutex

	byLanguage  map[Language]Parser
	byExtension map[string]Parser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[Language]Parser),
		byExtension: make(map[string]Parser),
	}
}

// NewDefaultRegistry returns a registry holding an HTMLParser and a
// CSSParser configured from opts.
func NewDefaultRegistry(opts Options) *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewHTMLParser(opts.HTMLOptions()...))
	r.Register(NewCSSParser(opts.CSSOptions()...))
	return r
}

// Register adds a parser under its Language() and all its Extensions().
// Existing registrations are overwritten. A nil parser is ignored.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser
	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for language.
func (r *ParserRegistry) GetByLanguage(language Language) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for a file extension such as ".html".
// The lookup is case-insensitive.
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[strings.ToLower(ext)]
	return parser, ok
}

// GetForFile returns the parser for path based on its extension.
func (r *ParserRegistry) GetForFile(path string) (Parser, error) {
	ext := filepath.Ext(path)
	if parser, ok := r.GetByExtension(ext); ok {
		return parser, nil
	}
	return nil, fmt.Errorf("file type %q: %w", ext, ErrUnsupportedLanguage)
}

// Languages returns the registered languages in sorted order.
func (r *ParserRegistry) Languages() []Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]Language, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool { return languages[i] < languages[j] })
	return languages
}

// Extensions returns the registered extensions in sorted order.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// Supports reports whether a parser is registered for path's extension.
func (r *ParserRegistry) Supports(path string) bool {
	_, ok := r.GetByExtension(filepath.Ext(path))
	return ok
}

// Options is the shared configuration for the default parsers.
type Options struct {
	// MaxFileSize is the largest accepted document in bytes.
	MaxFileSize int

	// SkipWhitespaceText drops whitespace-only HTML text nodes.
	SkipWhitespaceText bool

	// ParseInlineStyles parses style attributes and <style> elements.
	ParseInlineStyles bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:       DefaultMaxFileSize,
		ParseInlineStyles: true,
	}
}

// HTMLOptions converts o into HTMLParser options.
func (o Options) HTMLOptions() []HTMLParserOption {
	return []HTMLParserOption{
		WithHTMLMaxFileSize(o.MaxFileSize),
		WithHTMLSkipWhitespaceText(o.SkipWhitespaceText),
		WithHTMLParseInlineStyles(o.ParseInlineStyles),
	}
}

// CSSOptions converts o into CSSParser options.
func (o Options) CSSOptions() []CSSParserOption {
	return []CSSParserOption{
		WithCSSMaxFileSize(o.MaxFileSize),
	}
}

// Fingerprint returns a short string identifying options that change parse
// output, for use in cache keys.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("ws=%t,inline=%t", o.SkipWhitespaceText, o.ParseInlineStyles)
}
