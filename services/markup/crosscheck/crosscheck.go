// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package crosscheck compares the markup parsers against independent
// reference implementations.
//
// The references are tree-sitter grammars (HTML and CSS), the
// golang.org/x/net/html tokenizer, and goquery for selector matching.
// None of them follows the same recovery rules as the markup parsers,
// so a report lists differences rather than failing on them. The check
// command uses the report to flag documents whose structure the
// references read differently.
package crosscheck

import (
	"context"
	"fmt"

	"github.com/AleutianAI/markup/services/markup"
)

// Reference names used in Mismatch.Reference.
const (
	RefTreeSitter = "tree-sitter"
	RefNetHTML    = "x/net/html"
)

// Counts holds the structural counts compared between parsers.
type Counts struct {
	Elements     int `json:"elements,omitempty"`
	StrayEndTags int `json:"stray_end_tags,omitempty"`
	Rules        int `json:"rules,omitempty"`
	Declarations int `json:"declarations,omitempty"`
}

// Mismatch records one metric on which a reference disagrees.
type Mismatch struct {
	Metric    string `json:"metric"`
	Reference string `json:"reference"`
	Ours      int    `json:"ours"`
	Theirs    int    `json:"theirs"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: ours=%d %s=%d", m.Metric, m.Ours, m.Reference, m.Theirs)
}

// Report is the result of a cross-check.
type Report struct {
	FilePath   string            `json:"file_path"`
	Language   markup.Language   `json:"language"`
	Ours       Counts            `json:"ours"`
	References map[string]Counts `json:"references"`

	// SyntaxErrors is true when tree-sitter produced ERROR nodes.
	SyntaxErrors bool       `json:"syntax_errors"`
	Mismatches   []Mismatch `json:"mismatches,omitempty"`
}

// Agree reports whether every reference matched on every metric.
func (r *Report) Agree() bool {
	return len(r.Mismatches) == 0
}

// Checker runs cross-checks using a parser registry for our side.
type Checker struct {
	registry *markup.ParserRegistry
}

// NewChecker creates a Checker. A nil registry uses the default parsers
// with inline styles disabled, so that <style> rules do not inflate the
// HTML counts.
func NewChecker(registry *markup.ParserRegistry) *Checker {
	if registry == nil {
		opts := markup.DefaultOptions()
		opts.ParseInlineStyles = false
		registry = markup.NewDefaultRegistry(opts)
	}
	return &Checker{registry: registry}
}

// Check parses content with our parser and every reference for its
// language, then compares the counts.
//
// Description:
//
//	The language is chosen from filePath's extension. HTML is compared
//	on element and stray end tag counts; CSS on top-level rule and
//	declaration counts (rules inside at-rules are skipped by our parser
//	and excluded from the reference counts).
//
// Inputs:
//
//	ctx - Cancellation for the parsers.
//	content - Document bytes.
//	filePath - Used for language detection and reporting.
//
// Outputs:
//
//	*Report - The comparison. Mismatches are not errors.
//	error - Unsupported language, invalid content, or a reference
//	failure.
func (c *Checker) Check(ctx context.Context, content []byte, filePath string) (*Report, error) {
	parser, err := c.registry.GetForFile(filePath)
	if err != nil {
		return nil, err
	}
	result, err := parser.Parse(ctx, content, filePath)
	if err != nil {
		return nil, err
	}

	report := &Report{
		FilePath:   filePath,
		Language:   result.Language,
		References: make(map[string]Counts),
	}

	switch result.Language {
	case markup.LanguageHTML:
		report.Ours = Counts{
			Elements:     result.Stats.Elements,
			StrayEndTags: result.Stats.StrayEndTags,
		}

		ts, syntaxErrors, err := treeSitterHTML(ctx, content)
		if err != nil {
			return nil, err
		}
		report.References[RefTreeSitter] = ts
		report.SyntaxErrors = syntaxErrors
		report.References[RefNetHTML] = netHTMLCounts(content)

		report.compare(RefTreeSitter, "elements", report.Ours.Elements, ts.Elements)
		report.compare(RefTreeSitter, "stray_end_tags", report.Ours.StrayEndTags, ts.StrayEndTags)
		report.compare(RefNetHTML, "elements", report.Ours.Elements, report.References[RefNetHTML].Elements)

	case markup.LanguageCSS:
		report.Ours = Counts{
			Rules:        len(result.Rules),
			Declarations: result.Stats.Declarations,
		}

		ts, syntaxErrors, err := treeSitterCSS(ctx, content)
		if err != nil {
			return nil, err
		}
		report.References[RefTreeSitter] = ts
		report.SyntaxErrors = syntaxErrors

		report.compare(RefTreeSitter, "rules", report.Ours.Rules, ts.Rules)
		report.compare(RefTreeSitter, "declarations", report.Ours.Declarations, ts.Declarations)
	}

	return report, nil
}

func (r *Report) compare(reference, metric string, ours, theirs int) {
	if ours != theirs {
		r.Mismatches = append(r.Mismatches, Mismatch{
			Metric:    metric,
			Reference: reference,
			Ours:      ours,
			Theirs:    theirs,
		})
	}
}
