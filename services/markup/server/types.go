// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/crosscheck"
	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// =============================================================================
// Requests
// =============================================================================

// HTMLRequest is the body of POST /v1/markup/html.
type HTMLRequest struct {
	// Content is the HTML document. May be empty.
	Content string `json:"content"`

	// FilePath is echoed back in errors and spans.
	FilePath string `json:"file_path,omitempty" binding:"omitempty,max=4096"`

	// SkipWhitespaceText overrides the server's parse option.
	SkipWhitespaceText *bool `json:"skip_whitespace_text,omitempty"`
}

// CSSRequest is the body of POST /v1/markup/css.
type CSSRequest struct {
	Content  string `json:"content"`
	FilePath string `json:"file_path,omitempty" binding:"omitempty,max=4096"`
}

// TokensRequest is the body of POST /v1/markup/tokens.
type TokensRequest struct {
	Language string `json:"language" binding:"required"`
	Content  string `json:"content"`

	// Limit caps the number of returned tokens. Zero means no cap.
	Limit int `json:"limit,omitempty" binding:"gte=0"`
}

// StatsRequest is the body of POST /v1/markup/stats.
type StatsRequest struct {
	Language string `json:"language" binding:"required"`
	Content  string `json:"content"`
}

// MatchRequest is the body of POST /v1/markup/match.
type MatchRequest struct {
	HTML string `json:"html" binding:"required"`
	CSS  string `json:"css" binding:"required"`
}

// =============================================================================
// Responses
// =============================================================================

// NodeDTO is the JSON form of an html.Node.
type NodeDTO struct {
	Type       string           `json:"type"`
	Tag        string           `json:"tag,omitempty"`
	Attributes []html.Attribute `json:"attributes,omitempty"`
	Children   []NodeDTO        `json:"children,omitempty"`
	Data       string           `json:"data,omitempty"`

	// Style holds the parsed style attribute when inline styles are on.
	Style []css.Declaration `json:"style,omitempty"`
}

// RuleDTO is the JSON form of a css.Rule.
type RuleDTO struct {
	Selectors    []string          `json:"selectors"`
	Declarations []css.Declaration `json:"declarations"`
}

// TokenDTO is the JSON form of an HTML or CSS token.
type TokenDTO struct {
	Type        string           `json:"type"`
	Name        string           `json:"name,omitempty"`
	Attributes  []html.Attribute `json:"attributes,omitempty"`
	SelfClosing bool             `json:"self_closing,omitempty"`
	Text        string           `json:"text,omitempty"`
	Value       *float64         `json:"value,omitempty"`
	Unit        string           `json:"unit,omitempty"`
	Start       int              `json:"start"`
	End         int              `json:"end"`
}

// HTMLResponse is returned by POST /v1/markup/html.
type HTMLResponse struct {
	Hash    string       `json:"hash"`
	Nodes   []NodeDTO    `json:"nodes"`
	Rules   []RuleDTO    `json:"rules,omitempty"`
	Skipped []string     `json:"skipped,omitempty"`
	Stats   markup.Stats `json:"stats"`
}

// CSSResponse is returned by POST /v1/markup/css.
type CSSResponse struct {
	Hash    string       `json:"hash"`
	Rules   []RuleDTO    `json:"rules"`
	Skipped []string     `json:"skipped,omitempty"`
	Stats   markup.Stats `json:"stats"`
}

// TokensResponse is returned by POST /v1/markup/tokens.
type TokensResponse struct {
	Language  markup.Language `json:"language"`
	Tokens    []TokenDTO      `json:"tokens"`
	Truncated bool            `json:"truncated,omitempty"`
}

// StatsResponse is returned by POST /v1/markup/stats.
type StatsResponse struct {
	cache.Summary
	Cached bool `json:"cached"`
}

// MatchResponse is returned by POST /v1/markup/match.
type MatchResponse struct {
	Matches []crosscheck.SelectorMatch `json:"matches"`
}

// StreamDone ends one document on the token stream.
type StreamDone struct {
	Done  bool `json:"done"`
	Count int  `json:"count"`
}

// HealthResponse is returned by GET /v1/markup/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Languages []markup.Language `json:"languages"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`

	// Details provides additional context.
	Details string `json:"details,omitempty"`
}

// =============================================================================
// Conversion
// =============================================================================

// NodesToDTO converts a node forest. styles may be nil.
func NodesToDTO(nodes []html.Node, styles map[*html.Element]css.Declarations) []NodeDTO {
	out := make([]NodeDTO, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeToDTO(n, styles))
	}
	return out
}

func nodeToDTO(n html.Node, styles map[*html.Element]css.Declarations) NodeDTO {
	switch n := n.(type) {
	case *html.Element:
		dto := NodeDTO{
			Type:       n.Type().String(),
			Tag:        n.TagName,
			Attributes: n.Attributes,
			Style:      styles[n],
		}
		if len(n.Children) > 0 {
			dto.Children = NodesToDTO(n.Children, styles)
		}
		return dto
	case *html.Text:
		return NodeDTO{Type: n.Type().String(), Data: n.Data}
	case *html.Comment:
		return NodeDTO{Type: n.Type().String(), Data: n.Data}
	default:
		return NodeDTO{Type: "unknown"}
	}
}

// RulesToDTO converts rules with selectors rendered as canonical text.
func RulesToDTO(rules []css.Rule) []RuleDTO {
	out := make([]RuleDTO, 0, len(rules))
	for _, r := range rules {
		selectors := make([]string, len(r.Selectors))
		for i, s := range r.Selectors {
			selectors[i] = s.String()
		}
		decls := r.Declarations
		if decls == nil {
			decls = css.Declarations{}
		}
		out = append(out, RuleDTO{Selectors: selectors, Declarations: decls})
	}
	return out
}

func atRulesToStrings(atRules []css.AtRule) []string {
	if len(atRules) == 0 {
		return nil
	}
	out := make([]string, len(atRules))
	for i, a := range atRules {
		out[i] = a.String()
	}
	return out
}

// HTMLTokenToDTO converts an HTML token. Data is reported as Text.
func HTMLTokenToDTO(t html.Token) TokenDTO {
	return TokenDTO{
		Type:        t.Type.String(),
		Name:        t.Name,
		Attributes:  t.Attributes,
		SelfClosing: t.SelfClosing,
		Text:        t.Data,
		Start:       t.Start,
		End:         t.End,
	}
}

// CSSTokenToDTO converts a CSS token. Value is set only for numeric
// tokens.
func CSSTokenToDTO(t css.Token) TokenDTO {
	dto := TokenDTO{
		Type:  t.Type.String(),
		Text:  t.Text,
		Unit:  t.Unit,
		Start: t.Start,
		End:   t.End,
	}
	switch t.Type {
	case css.NumberToken, css.DimensionToken, css.PercentageToken:
		v := t.Value
		dto.Value = &v
	}
	return dto
}

// NewHTMLResponse builds the response body for an HTML parse result.
func NewHTMLResponse(result *markup.ParseResult) HTMLResponse {
	resp := HTMLResponse{
		Hash:    result.Hash,
		Nodes:   NodesToDTO(result.Nodes, result.InlineStyles),
		Skipped: atRulesToStrings(result.SkippedAtRules),
		Stats:   result.Stats,
	}
	if len(result.Rules) > 0 {
		resp.Rules = RulesToDTO(result.Rules)
	}
	return resp
}

// NewCSSResponse builds the response body for a CSS parse result.
func NewCSSResponse(result *markup.ParseResult) CSSResponse {
	return CSSResponse{
		Hash:    result.Hash,
		Rules:   RulesToDTO(result.Rules),
		Skipped: atRulesToStrings(result.SkippedAtRules),
		Stats:   result.Stats,
	}
}
