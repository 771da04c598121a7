// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package html

import (
	"iter"
	"strings"
)

// rawTextElements hold character data that is not scanned for markup until
// their matching end tag.
var rawTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"title":    true,
	"xmp":      true,
	"iframe":   true,
	"noembed":  true,
	"noframes": true,
}

// Tokenizer produces HTML tokens from an input string on demand.
//
// Description:
//
//	Scanning moves strictly forward. Each call to Next scans exactly one
//	token, so a consumer that stops early never pays for the rest of the
//	input. A Tokenizer cannot be rewound; construct a new one to re-scan.
//
// Thread Safety: Not safe for concurrent use. Separate Tokenizers over the
// same input string are independent.
type Tokenizer struct {
	input string
	pos   int

	// rawTag is set after a raw-text start tag; the next scan reads
	// character data up to the matching end tag.
	rawTag string

	done bool
}

// NewTokenizer creates a tokenizer over input.
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// Next returns the next token, or false once the input is exhausted.
//
// Description:
//
//	Malformed markup never stops tokenization: unterminated tags, comments
//	and quoted attribute values produce a best-effort final token.
//
// Outputs:
//
//	Token - The scanned token. Zero value when ok is false.
//	bool - False when there are no more tokens.
//
// Panics if called again after it has returned false.
func (t *Tokenizer) Next() (Token, bool) {
	if t.done {
		panic("html: Next called on exhausted Tokenizer")
	}

	for {
		if t.rawTag != "" {
			tag := t.rawTag
			t.rawTag = ""
			if tok, ok := t.scanRawText(tag); ok {
				return tok, true
			}
			continue
		}

		if t.pos >= len(t.input) {
			t.done = true
			return Token{}, false
		}

		if t.startsMarkup(t.pos) {
			if tok, ok := t.scanMarkup(); ok {
				return tok, true
			}
			// Markup that yields nothing, such as "</>".
			continue
		}

		return t.scanText(), true
	}
}

// All returns an iterator over the remaining tokens.
//
// Example:
//
//	for tok := range html.NewTokenizer(src).All() {
//	    fmt.Println(tok)
//	}
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

// startsMarkup reports whether the '<' at i opens a tag, comment or doctype.
func (t *Tokenizer) startsMarkup(i int) bool {
	if t.input[i] != '<' || i+1 >= len(t.input) {
		return false
	}
	switch c := t.input[i+1]; {
	case c == '!':
		return true
	case c == '/':
		return i+2 < len(t.input)
	default:
		return isASCIILetter(c)
	}
}

// scanText consumes character data up to the next markup or end of input.
// A '<' that does not open markup is kept as text.
func (t *Tokenizer) scanText() Token {
	start := t.pos
	i := start + 1
	for i < len(t.input) {
		j := strings.IndexByte(t.input[i:], '<')
		if j < 0 {
			i = len(t.input)
			break
		}
		i += j
		if t.startsMarkup(i) {
			break
		}
		i++
	}
	t.pos = i
	return Token{Type: TextToken, Data: t.input[start:i], Start: start, End: i}
}

func (t *Tokenizer) scanMarkup() (Token, bool) {
	switch t.input[t.pos+1] {
	case '!':
		return t.scanBang(), true
	case '/':
		return t.scanEndTag()
	default:
		return t.scanStartTag(), true
	}
}

// scanBang handles everything that starts with "<!".
func (t *Tokenizer) scanBang() Token {
	start := t.pos
	rest := t.input[start+2:]

	if strings.HasPrefix(rest, "--") {
		body := start + 4
		end := strings.Index(t.input[body:], "-->")
		if end < 0 {
			t.pos = len(t.input)
			return Token{Type: CommentToken, Data: t.input[body:], Start: start, End: t.pos}
		}
		t.pos = body + end + 3
		return Token{Type: CommentToken, Data: t.input[body : body+end], Start: start, End: t.pos}
	}

	if len(rest) >= 7 && strings.EqualFold(rest[:7], "doctype") {
		body := start + 9
		content, next := t.untilGreater(body)
		t.pos = next
		return Token{Type: DoctypeToken, Name: strings.TrimSpace(content), Start: start, End: t.pos}
	}

	return t.scanBogusComment(start)
}

// scanBogusComment treats "<!x...>" and "</ x...>" as a comment running to
// the next '>'.
func (t *Tokenizer) scanBogusComment(start int) Token {
	content, next := t.untilGreater(start + 2)
	t.pos = next
	return Token{Type: CommentToken, Data: content, Start: start, End: t.pos}
}

func (t *Tokenizer) scanEndTag() (Token, bool) {
	start := t.pos
	i := start + 2
	c := t.input[i]

	if c == '>' {
		t.pos = i + 1
		return Token{}, false
	}
	if !isASCIILetter(c) {
		return t.scanBogusComment(start), true
	}

	nameEnd := t.scanName(i)
	name := lowerASCII(t.input[i:nameEnd])

	// Anything between the name and '>' is ignored.
	_, next := t.untilGreater(nameEnd)
	t.pos = next
	return Token{Type: EndTagToken, Name: name, Start: start, End: t.pos}, true
}

func (t *Tokenizer) scanStartTag() Token {
	start := t.pos
	nameEnd := t.scanName(start + 1)
	tok := Token{
		Type:  StartTagToken,
		Name:  lowerASCII(t.input[start+1 : nameEnd]),
		Start: start,
	}

	i := nameEnd
	for {
		i = t.skipSpace(i)
		if i >= len(t.input) {
			break
		}

		c := t.input[i]
		if c == '>' {
			i++
			break
		}
		if c == '/' {
			if i+1 < len(t.input) && t.input[i+1] == '>' {
				tok.SelfClosing = true
				i += 2
				break
			}
			i++
			continue
		}

		i = t.scanAttribute(i, &tok.Attributes)
	}

	t.pos = i
	tok.End = i
	if !tok.SelfClosing && rawTextElements[tok.Name] {
		t.rawTag = tok.Name
	}
	return tok
}

// scanAttribute reads one name or name=value pair starting at i and returns
// the position after it.
func (t *Tokenizer) scanAttribute(i int, attrs *Attributes) int {
	nameStart := i
	for i < len(t.input) {
		c := t.input[i]
		if isSpace(c) || c == '/' || c == '>' || (c == '=' && i > nameStart) {
			break
		}
		i++
	}
	name := lowerASCII(t.input[nameStart:i])

	j := t.skipSpace(i)
	if j >= len(t.input) || t.input[j] != '=' {
		attrs.Set(name, "")
		return i
	}

	i = t.skipSpace(j + 1)
	if i >= len(t.input) {
		attrs.Set(name, "")
		return i
	}

	var value string
	switch q := t.input[i]; q {
	case '"', '\'':
		body := i + 1
		if end := strings.IndexByte(t.input[body:], q); end >= 0 {
			value = t.input[body : body+end]
			i = body + end + 1
		} else {
			// Unclosed quote: the value ends at the first '>', which
			// then closes the tag.
			value, i = t.upTo(body, '>')
		}
	default:
		valueStart := i
		for i < len(t.input) {
			c := t.input[i]
			if isSpace(c) || c == '>' {
				break
			}
			if c == '/' && i+1 < len(t.input) && t.input[i+1] == '>' {
				break
			}
			i++
		}
		value = t.input[valueStart:i]
	}

	attrs.Set(name, value)
	return i
}

// scanRawText reads character data up to the end tag named tag. It returns
// false when the element is empty.
func (t *Tokenizer) scanRawText(tag string) (Token, bool) {
	start := t.pos
	end := len(t.input)

	for i := start; i < len(t.input); {
		j := strings.IndexByte(t.input[i:], '<')
		if j < 0 {
			break
		}
		i += j
		if t.isEndTagFor(i, tag) {
			end = i
			break
		}
		i++
	}

	t.pos = end
	if end == start {
		return Token{}, false
	}
	return Token{Type: TextToken, Data: t.input[start:end], Start: start, End: end}, true
}

// isEndTagFor reports whether "</tag" followed by a delimiter starts at i.
func (t *Tokenizer) isEndTagFor(i int, tag string) bool {
	nameStart := i + 2
	nameEnd := nameStart + len(tag)
	if nameEnd > len(t.input) || t.input[i+1] != '/' {
		return false
	}
	if !strings.EqualFold(t.input[nameStart:nameEnd], tag) {
		return false
	}
	if nameEnd == len(t.input) {
		return true
	}
	c := t.input[nameEnd]
	return isSpace(c) || c == '/' || c == '>'
}

// scanName returns the end of the tag name starting at i.
func (t *Tokenizer) scanName(i int) int {
	for i < len(t.input) && isNameChar(t.input[i]) {
		i++
	}
	return i
}

func (t *Tokenizer) skipSpace(i int) int {
	for i < len(t.input) && isSpace(t.input[i]) {
		i++
	}
	return i
}

// untilGreater returns the text from i up to the next '>' and the position
// after that '>', or the rest of the input when there is none.
func (t *Tokenizer) untilGreater(i int) (string, int) {
	s, end := t.upTo(i, '>')
	if end < len(t.input) {
		end++
	}
	return s, end
}

// upTo returns the text from i up to c and the position of c, or the rest of
// the input and its length.
func (t *Tokenizer) upTo(i int, c byte) (string, int) {
	if i > len(t.input) {
		i = len(t.input)
	}
	j := strings.IndexByte(t.input[i:], c)
	if j < 0 {
		return t.input[i:], len(t.input)
	}
	return t.input[i : i+j], i + j
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isASCIILetter(c) || ('0' <= c && c <= '9') || c == '-' || c == '_' || c == ':' || c == '.'
}
