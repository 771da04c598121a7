// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package css tokenizes CSS text and parses it into style rules.
//
// The tokenizer is lazy and zero-copy: token payloads are substrings of the
// input. The parser groups tokens into rules made of a selector list and a
// declaration block. At-rules such as @media are skipped as opaque blocks and
// reported through Parser.Skipped rather than parsed.
//
// Malformed input never produces an error. Invalid selectors and
// declarations are dropped and parsing resumes at the next recoverable point.
package css

import (
	"fmt"
	"strconv"
)

// TokenType identifies the kind of a CSS token.
type TokenType int

const (
	IdentToken TokenType = iota
	StringToken
	NumberToken
	DimensionToken
	PercentageToken
	HashToken
	DelimToken
	URLToken
	CommentToken
	WhitespaceToken
	AtKeywordToken
)

var tokenTypeNames = [...]string{
	IdentToken:      "ident",
	StringToken:     "string",
	NumberToken:     "number",
	DimensionToken:  "dimension",
	PercentageToken: "percentage",
	HashToken:       "hash",
	DelimToken:      "delim",
	URLToken:        "url",
	CommentToken:    "comment",
	WhitespaceToken: "whitespace",
	AtKeywordToken:  "at_keyword",
}

// String returns the lowercase name of the token type.
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("token_type(%d)", int(t))
}

// Token is a single lexical unit of CSS.
//
// Text holds the payload, always a substring of the input:
//
//	IdentToken:      the identifier
//	StringToken:     the contents between the quotes, escapes untouched
//	NumberToken:     the numeric literal, e.g. "-1.5"
//	DimensionToken:  the numeric part; Unit holds the unit
//	PercentageToken: the numeric part without '%'
//	HashToken:       the name after '#'
//	DelimToken:      the single character
//	URLToken:        the url() payload without quotes or padding
//	CommentToken:    the text between /* and */
//	WhitespaceToken: the whitespace run
//	AtKeywordToken:  the name after '@'
//
// Start and End delimit the token's full source span, so input[Start:End]
// reproduces it exactly.
type Token struct {
	Type  TokenType
	Text  string
	Value float64
	Unit  string
	Quote byte
	Start int
	End   int
}

// Is reports whether the token is the delimiter c.
func (t Token) Is(c byte) bool {
	return t.Type == DelimToken && len(t.Text) == 1 && t.Text[0] == c
}

// String renders the token in a compact debugging form.
func (t Token) String() string {
	switch t.Type {
	case DimensionToken:
		return fmt.Sprintf("dimension(%s%s)", t.Text, t.Unit)
	case PercentageToken:
		return fmt.Sprintf("percentage(%s%%)", t.Text)
	case StringToken, URLToken, CommentToken, WhitespaceToken:
		return fmt.Sprintf("%s(%s)", t.Type, strconv.Quote(t.Text))
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Text)
	}
}
