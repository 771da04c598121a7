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

// ParserOptions configures Parser behavior.
type ParserOptions struct {
	// SkipWhitespaceText drops text nodes that contain only whitespace.
	// Default: false
	SkipWhitespaceText bool
}

// DefaultParserOptions returns the default options.
func DefaultParserOptions() ParserOptions {
	return ParserOptions{}
}

// ParserOption is a functional option for configuring Parser.
type ParserOption func(*ParserOptions)

// WithSkipWhitespaceText sets whether whitespace-only text is dropped.
func WithSkipWhitespaceText(skip bool) ParserOption {
	return func(o *ParserOptions) {
		o.SkipWhitespaceText = skip
	}
}

// Parser builds a node tree from HTML input.
//
// Description:
//
//	Parser pulls tokens from a Tokenizer and tracks open elements on an
//	explicit stack. An element is attached to its parent when it closes,
//	whether by its own end tag, by an end tag of an ancestor, by being void
//	or self-closing, or by the end of input.
//
//	Recovery is minimal and deterministic: an end tag with no matching open
//	element is dropped, and a matching end tag closes every element opened
//	after its match. Doctype tokens are consumed without producing nodes.
//
// Thread Safety: Not safe for concurrent use. A Parser is single-use.
//
// Example:
//
//	nodes := html.NewParser(`<p>Hello <b>world</b></p>`).Parse()
type Parser struct {
	tokenizer *Tokenizer
	options   ParserOptions
	parsed    bool
	stats     ParseStats
}

// ParseStats counts what a Parse call saw and built.
type ParseStats struct {
	Tokens       int `json:"tokens"`
	Elements     int `json:"elements"`
	TextNodes    int `json:"text_nodes"`
	Comments     int `json:"comments"`
	StrayEndTags int `json:"stray_end_tags"`
	MaxDepth     int `json:"max_depth"`
}

// NewParser creates a parser over input.
func NewParser(input string, opts ...ParserOption) *Parser {
	options := DefaultParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Parser{
		tokenizer: NewTokenizer(input),
		options:   options,
	}
}

// Parse consumes the whole input and returns the top-level nodes.
//
// Description:
//
//	Every element in the result is closed. Parse never fails on malformed
//	input.
//
// Outputs:
//
//	[]Node - Top-level nodes in document order. Nil for empty input.
//
// Panics if called more than once on the same Parser.
func (p *Parser) Parse() []Node {
	if p.parsed {
		panic("html: Parse called twice on the same Parser")
	}
	p.parsed = true

	var (
		roots []Node
		open  nodeStack
	)

	attach := func(n Node) {
		if parent := open.top(); parent != nil {
			parent.Children = append(parent.Children, n)
			return
		}
		roots = append(roots, n)
	}

	for tok := range p.tokenizer.All() {
		p.stats.Tokens++

		switch tok.Type {
		case StartTagToken:
			el := &Element{TagName: tok.Name, Attributes: tok.Attributes}
			p.stats.Elements++
			if tok.SelfClosing || voidElements[tok.Name] {
				p.noteDepth(len(open) + 1)
				attach(el)
				continue
			}
			open.push(el)
			p.noteDepth(len(open))

		case EndTagToken:
			idx := open.lastIndex(tok.Name)
			if idx < 0 {
				p.stats.StrayEndTags++
				continue
			}
			for len(open) > idx {
				attach(open.pop())
			}

		case TextToken:
			if p.options.SkipWhitespaceText && isWhitespace(tok.Data) {
				continue
			}
			p.stats.TextNodes++
			attach(&Text{Data: tok.Data})

		case CommentToken:
			p.stats.Comments++
			attach(&Comment{Data: tok.Data})

		case DoctypeToken:
			// Doctypes carry no node.
		}
	}

	for len(open) > 0 {
		attach(open.pop())
	}
	return roots
}

// Stats returns counters collected by Parse.
func (p *Parser) Stats() ParseStats {
	return p.stats
}

func (p *Parser) noteDepth(depth int) {
	if depth > p.stats.MaxDepth {
		p.stats.MaxDepth = depth
	}
}

// Parse is shorthand for NewParser(input, opts...).Parse().
func Parse(input string, opts ...ParserOption) []Node {
	return NewParser(input, opts...).Parse()
}

// nodeStack holds the currently open elements, outermost first.
type nodeStack []*Element

func (s *nodeStack) push(el *Element) {
	*s = append(*s, el)
}

func (s *nodeStack) pop() *Element {
	n := len(*s) - 1
	el := (*s)[n]
	(*s)[n] = nil
	*s = (*s)[:n]
	return el
}

func (s nodeStack) top() *Element {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// lastIndex returns the index of the innermost open element named tagName.
func (s nodeStack) lastIndex(tagName string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].TagName == tagName {
			return i
		}
	}
	return -1
}

func isWhitespace(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			return false
		}
	}
	return true
}
