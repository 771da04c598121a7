// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package markup wraps the html and css parsers in a document service.
//
// It adds what the pure parsers leave out: file-level validation (size,
// encoding, cancellation), content hashing, statistics, OpenTelemetry
// metrics and spans, a registry keyed by language and file extension, and
// concurrent batch parsing.
package markup

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
)

// Language names a document language.
type Language string

const (
	LanguageHTML Language = "html"
	LanguageCSS  Language = "css"
)

// ParseLanguage converts a user-supplied name into a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "htm":
		return LanguageHTML, nil
	case "css":
		return LanguageCSS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
}

// LanguageForPath infers the language from a file extension.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return LanguageHTML, true
	case ".css":
		return LanguageCSS, true
	default:
		return "", false
	}
}

// Stats summarizes a parsed document.
type Stats struct {
	Tokens int `json:"tokens"`

	// HTML
	Elements     int `json:"elements,omitempty"`
	TextNodes    int `json:"text_nodes,omitempty"`
	Comments     int `json:"comments,omitempty"`
	StrayEndTags int `json:"stray_end_tags,omitempty"`
	MaxDepth     int `json:"max_depth,omitempty"`
	InlineStyles int `json:"inline_styles,omitempty"`

	// CSS, including <style> content when inline styles are parsed.
	Rules               int `json:"rules,omitempty"`
	Selectors           int `json:"selectors,omitempty"`
	Declarations        int `json:"declarations,omitempty"`
	InvalidSelectors    int `json:"invalid_selectors,omitempty"`
	DroppedDeclarations int `json:"dropped_declarations,omitempty"`
	SkippedAtRules      int `json:"skipped_at_rules,omitempty"`
}

// addCSS folds CSS parser counters into s.
func (s *Stats) addCSS(c css.ParseStats) {
	s.Rules += c.Rules
	s.Selectors += c.Selectors
	s.Declarations += c.Declarations
	s.InvalidSelectors += c.InvalidSelectors
	s.DroppedDeclarations += c.DroppedDeclarations
	s.SkippedAtRules += c.SkippedAtRules
}

// ParseResult is the outcome of parsing one document.
type ParseResult struct {
	// FilePath is the path the caller supplied.
	FilePath string

	Language Language

	// Hash is the hex SHA-256 of the content.
	Hash string

	// ParsedAtMilli is the parse time in Unix milliseconds.
	ParsedAtMilli int64

	// Nodes is the HTML node forest. Nil for CSS.
	Nodes []html.Node

	// Rules holds CSS rules: the stylesheet for CSS documents, or the
	// contents of <style> elements for HTML when inline styles are parsed.
	Rules []css.Rule

	// SkippedAtRules lists at-rules skipped as opaque blocks.
	SkippedAtRules []css.AtRule

	// InlineStyles maps each element carrying a style attribute to its
	// parsed declarations. Only populated for HTML with inline styles on.
	InlineStyles map[*html.Element]css.Declarations

	Stats Stats
}

// Validate checks the result for internal consistency.
func (r *ParseResult) Validate() error {
	if r == nil {
		return errors.New("nil result")
	}
	if r.Hash == "" {
		return errors.New("missing hash")
	}
	switch r.Language {
	case LanguageHTML:
	case LanguageCSS:
		if len(r.Nodes) > 0 {
			return errors.New("css result carries html nodes")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, r.Language)
	}
	if r.Stats.Rules != len(r.Rules) {
		return fmt.Errorf("rule count mismatch: stats %d, rules %d", r.Stats.Rules, len(r.Rules))
	}
	return nil
}
