// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render prints token streams, node trees, rules and statistics
// for humans.
//
// Output is styled with lipgloss when the destination is a terminal and
// plain otherwise, so piped output stays grep-friendly. NO_COLOR disables
// styling everywhere.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
)

// Palette.
var (
	ColorTag     = lipgloss.Color("#2CD7C7")
	ColorAttr    = lipgloss.Color("#20B9B4")
	ColorText    = lipgloss.Color("#D5DBDB")
	ColorComment = lipgloss.Color("#5D7B85")
	ColorNumber  = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// styles groups the styles a Renderer applies.
type styles struct {
	label   lipgloss.Style
	tag     lipgloss.Style
	attr    lipgloss.Style
	text    lipgloss.Style
	comment lipgloss.Style
	number  lipgloss.Style
	bad     lipgloss.Style
}

// Renderer writes formatted output to w.
//
// Thread Safety: Not safe for concurrent use.
type Renderer struct {
	w      io.Writer
	color  bool
	styles styles
	err    error
}

// New returns a Renderer that styles output when w is a terminal.
func New(w io.Writer) *Renderer {
	return newRenderer(w, IsTerminal(w) && os.Getenv("NO_COLOR") == "")
}

// NewPlain returns a Renderer that never styles output.
func NewPlain(w io.Writer) *Renderer {
	return newRenderer(w, false)
}

func newRenderer(w io.Writer, color bool) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:     w,
		color: color,
		styles: styles{
			label:   lr.NewStyle().Bold(true),
			tag:     lr.NewStyle().Foreground(ColorTag).Bold(true),
			attr:    lr.NewStyle().Foreground(ColorAttr),
			text:    lr.NewStyle().Foreground(ColorText),
			comment: lr.NewStyle().Foreground(ColorComment).Italic(true),
			number:  lr.NewStyle().Foreground(ColorNumber),
			bad:     lr.NewStyle().Foreground(ColorError),
		},
	}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

// printf writes formatted output, keeping the first write error.
func (r *Renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// HTMLTokens prints one numbered line per token.
func (r *Renderer) HTMLTokens(tokens []html.Token) error {
	for i, tok := range tokens {
		r.printf("%s: %s\n", r.style(r.styles.number, fmt.Sprint(i)), r.htmlToken(tok))
	}
	return r.err
}

func (r *Renderer) htmlToken(tok html.Token) string {
	switch tok.Type {
	case html.StartTagToken, html.EndTagToken, html.DoctypeToken:
		return r.style(r.styles.tag, tok.String())
	case html.CommentToken:
		return r.style(r.styles.comment, tok.String())
	default:
		return r.style(r.styles.text, tok.String())
	}
}

// CSSTokens prints one numbered line per token. A positive limit stops
// after that many tokens.
func (r *Renderer) CSSTokens(tokens []css.Token, limit int) error {
	for i, tok := range tokens {
		if limit > 0 && i >= limit {
			r.printf("%s\n", r.style(r.styles.comment, fmt.Sprintf("... %d more", len(tokens)-limit)))
			break
		}
		s := tok.String()
		switch tok.Type {
		case css.CommentToken, css.WhitespaceToken:
			s = r.style(r.styles.comment, s)
		case css.NumberToken, css.DimensionToken, css.PercentageToken:
			s = r.style(r.styles.number, s)
		case css.IdentToken, css.HashToken, css.AtKeywordToken:
			s = r.style(r.styles.tag, s)
		}
		r.printf("%s: %s\n", r.style(r.styles.number, fmt.Sprint(i)), s)
	}
	return r.err
}

// Tree prints the node forest with two-space indentation per level.
//
// Description:
//
//	Elements print their tag name and, on the next line, their
//	attributes. Text is trimmed and whitespace-only text is omitted.
//	Comments print their raw content quoted.
//
// Example output:
//
//	Element: div
//	  Attributes: class="container"
//	  Element: h1
//	    Text: "Welcome"
func (r *Renderer) Tree(nodes []html.Node) error {
	html.Walk(nodes, func(n html.Node, depth int) bool {
		indent := strings.Repeat("  ", depth)
		switch n := n.(type) {
		case *html.Element:
			r.printf("%s%s %s\n", indent, r.style(r.styles.label, "Element:"), r.style(r.styles.tag, n.TagName))
			if n.Attributes.Len() > 0 {
				r.printf("%s  %s %s\n", indent, r.style(r.styles.label, "Attributes:"), r.attributes(n.Attributes))
			}
		case *html.Text:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				r.printf("%s%s %s\n", indent, r.style(r.styles.label, "Text:"), r.style(r.styles.text, fmt.Sprintf("%q", trimmed)))
			}
		case *html.Comment:
			r.printf("%s%s %s\n", indent, r.style(r.styles.label, "Comment:"), r.style(r.styles.comment, fmt.Sprintf("%q", n.Data)))
		}
		return r.err == nil
	})
	return r.err
}

func (r *Renderer) attributes(attrs html.Attributes) string {
	parts := make([]string, 0, attrs.Len())
	for _, a := range attrs {
		parts = append(parts, r.style(r.styles.attr, a.Name)+"="+fmt.Sprintf("%q", a.Value))
	}
	return strings.Join(parts, " ")
}

// Rules prints each rule with its selectors and declarations.
//
// Example output:
//
//	Rule 1:
//	  Selectors: .container, #main
//	  Declarations:
//	    max-width: 1200px
func (r *Renderer) Rules(rules []css.Rule) error {
	for i, rule := range rules {
		if i > 0 {
			r.printf("\n")
		}
		r.printf("%s\n", r.style(r.styles.label, fmt.Sprintf("Rule %d:", i+1)))
		r.printf("  %s %s\n", r.style(r.styles.label, "Selectors:"), r.style(r.styles.tag, rule.SelectorText()))
		r.printf("  %s\n", r.style(r.styles.label, "Declarations:"))
		for _, d := range rule.Declarations {
			r.printf("    %s: %s\n", r.style(r.styles.attr, d.Property), d.Value)
		}
	}
	return r.err
}

// AtRules prints skipped at-rules, one per line.
func (r *Renderer) AtRules(atRules []css.AtRule) error {
	for _, a := range atRules {
		r.printf("%s %s\n", r.style(r.styles.label, "Skipped:"), r.style(r.styles.comment, a.String()))
	}
	return r.err
}

// Stats prints a one-line summary of a parse, prefixed by path.
func (r *Renderer) Stats(path string, lang markup.Language, s markup.Stats) error {
	var fields []string
	add := func(name string, v int) {
		if v > 0 {
			fields = append(fields, r.style(r.styles.number, fmt.Sprint(v))+" "+name)
		}
	}
	add("tokens", s.Tokens)
	if lang == markup.LanguageHTML {
		add("elements", s.Elements)
		add("text", s.TextNodes)
		add("comments", s.Comments)
		add("stray end tags", s.StrayEndTags)
		add("max depth", s.MaxDepth)
		add("inline styles", s.InlineStyles)
	}
	add("rules", s.Rules)
	add("selectors", s.Selectors)
	add("declarations", s.Declarations)
	add("invalid selectors", s.InvalidSelectors)
	add("dropped declarations", s.DroppedDeclarations)
	add("skipped at-rules", s.SkippedAtRules)

	r.printf("%s [%s] %s\n", r.style(r.styles.tag, path), lang, strings.Join(fields, ", "))
	return r.err
}

// Failure prints a failed path with its error.
func (r *Renderer) Failure(path string, err error) error {
	r.printf("%s %s\n", r.style(r.styles.bad, path), r.style(r.styles.bad, err.Error()))
	return r.err
}
