// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package css

import (
	"iter"
	"strconv"
	"strings"
)

// Tokenizer produces CSS tokens from an input string on demand.
//
// Description:
//
//	Each call to Next scans one token and advances strictly forward.
//	Unterminated comments, strings and url() payloads run to the end of
//	input. The tokenizer does not decode escapes; a backslash only prevents
//	the following character from ending a string or identifier.
//
// Thread Safety: Not safe for concurrent use.
type Tokenizer struct {
	input string
	pos   int
	done  bool
}

// NewTokenizer creates a tokenizer over input.
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// Next returns the next token, or false once the input is exhausted.
//
// Panics if called again after it has returned false.
func (t *Tokenizer) Next() (Token, bool) {
	if t.done {
		panic("css: Next called on exhausted Tokenizer")
	}
	if t.pos >= len(t.input) {
		t.done = true
		return Token{}, false
	}

	start := t.pos
	c := t.input[start]

	switch {
	case isSpace(c):
		end := start + 1
		for end < len(t.input) && isSpace(t.input[end]) {
			end++
		}
		return t.emit(Token{Type: WhitespaceToken, Text: t.input[start:end]}, start, end), true

	case c == '/' && t.peek(start+1) == '*':
		return t.scanComment(start), true

	case c == '"' || c == '\'':
		return t.scanString(start), true

	case t.startsNumber(start):
		return t.scanNumeric(start), true

	case c == '#' && start+1 < len(t.input) && isNameChar(t.input[start+1]):
		end := t.scanName(start + 1)
		return t.emit(Token{Type: HashToken, Text: t.input[start+1 : end]}, start, end), true

	case c == '@' && t.startsIdent(start+1):
		end := t.scanName(start + 1)
		return t.emit(Token{Type: AtKeywordToken, Text: t.input[start+1 : end]}, start, end), true

	case t.startsIdent(start):
		return t.scanIdentLike(start), true

	default:
		return t.emit(Token{Type: DelimToken, Text: t.input[start : start+1]}, start, start+1), true
	}
}

// All returns an iterator over the remaining tokens.
func (t *Tokenizer) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		if t.done {
			return
		}
		for {
			tok, ok := t.Next()
			if !ok || !yield(tok) {
				return
			}
		}
	}
}

// Done reports whether the tokenizer has been exhausted.
func (t *Tokenizer) Done() bool {
	return t.done
}

func (t *Tokenizer) emit(tok Token, start, end int) Token {
	tok.Start = start
	tok.End = end
	t.pos = end
	return tok
}

func (t *Tokenizer) peek(i int) byte {
	if i < len(t.input) {
		return t.input[i]
	}
	return 0
}

func (t *Tokenizer) scanComment(start int) Token {
	body := start + 2
	end := strings.Index(t.input[body:], "*/")
	if end < 0 {
		return t.emit(Token{Type: CommentToken, Text: t.input[body:]}, start, len(t.input))
	}
	return t.emit(Token{Type: CommentToken, Text: t.input[body : body+end]}, start, body+end+2)
}

func (t *Tokenizer) scanString(start int) Token {
	quote := t.input[start]
	body := start + 1
	i := t.skipQuoted(body, quote)
	tok := Token{Type: StringToken, Quote: quote, Text: t.input[body:i]}
	if i < len(t.input) {
		i++
	}
	return t.emit(tok, start, i)
}

// skipQuoted returns the index of the closing quote at or after i, or the
// input length when the string is unterminated.
func (t *Tokenizer) skipQuoted(i int, quote byte) int {
	for i < len(t.input) {
		switch t.input[i] {
		case quote:
			return i
		case '\\':
			i += 2
			continue
		}
		i++
	}
	return len(t.input)
}

// startsNumber reports whether a numeric literal starts at i: a digit, a
// sign followed by a digit, or a dot followed by a digit (optionally signed).
func (t *Tokenizer) startsNumber(i int) bool {
	c := t.peek(i)
	if c == '+' || c == '-' {
		i++
		c = t.peek(i)
	}
	if isDigit(c) {
		return true
	}
	return c == '.' && isDigit(t.peek(i+1))
}

func (t *Tokenizer) scanNumeric(start int) Token {
	i := start
	if c := t.input[i]; c == '+' || c == '-' {
		i++
	}
	for i < len(t.input) && isDigit(t.input[i]) {
		i++
	}
	if t.peek(i) == '.' && isDigit(t.peek(i+1)) {
		i++
		for i < len(t.input) && isDigit(t.input[i]) {
			i++
		}
	}

	text := t.input[start:i]
	value, _ := strconv.ParseFloat(text, 64)

	switch {
	case t.peek(i) == '%':
		return t.emit(Token{Type: PercentageToken, Text: text, Value: value}, start, i+1)
	case t.startsIdent(i):
		end := t.scanName(i)
		return t.emit(Token{Type: DimensionToken, Text: text, Value: value, Unit: t.input[i:end]}, start, end)
	default:
		return t.emit(Token{Type: NumberToken, Text: text, Value: value}, start, i)
	}
}

// scanIdentLike scans an identifier, turning url( into a URL token.
func (t *Tokenizer) scanIdentLike(start int) Token {
	end := t.scanName(start)
	name := t.input[start:end]
	if t.peek(end) == '(' && strings.EqualFold(name, "url") {
		return t.scanURL(start, end+1)
	}
	return t.emit(Token{Type: IdentToken, Text: name}, start, end)
}

// scanURL reads the payload of url( starting at i.
func (t *Tokenizer) scanURL(start, i int) Token {
	i = t.skipSpace(i)

	if q := t.peek(i); q == '"' || q == '\'' {
		body := i + 1
		closeQuote := t.skipQuoted(body, q)
		payload := t.input[body:closeQuote]
		end := len(t.input)
		if p := strings.IndexByte(t.input[closeQuote:], ')'); p >= 0 {
			end = closeQuote + p + 1
		}
		return t.emit(Token{Type: URLToken, Text: payload, Quote: q}, start, end)
	}

	p := strings.IndexByte(t.input[i:], ')')
	if p < 0 {
		return t.emit(Token{Type: URLToken, Text: strings.TrimSpace(t.input[i:])}, start, len(t.input))
	}
	return t.emit(Token{Type: URLToken, Text: strings.TrimSpace(t.input[i : i+p])}, start, i+p+1)
}

// startsIdent reports whether an identifier starts at i.
func (t *Tokenizer) startsIdent(i int) bool {
	c := t.peek(i)
	switch {
	case isNameStart(c):
		return true
	case c == '-':
		next := t.peek(i + 1)
		return isNameStart(next) || next == '-' || (next == '\\' && t.validEscape(i+1))
	case c == '\\':
		return t.validEscape(i)
	default:
		return false
	}
}

// validEscape reports whether the backslash at i escapes a character.
func (t *Tokenizer) validEscape(i int) bool {
	next := t.peek(i + 1)
	return i+1 < len(t.input) && next != '\n' && next != '\r' && next != '\f'
}

// scanName returns the end of the name starting at i, honoring escapes.
func (t *Tokenizer) scanName(i int) int {
	for i < len(t.input) {
		c := t.input[i]
		if isNameChar(c) {
			i++
			continue
		}
		if c == '\\' && t.validEscape(i) {
			i += 2
			continue
		}
		break
	}
	return i
}

func (t *Tokenizer) skipSpace(i int) int {
	for i < len(t.input) && isSpace(t.input[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isNameStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_' || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c) || c == '-'
}
