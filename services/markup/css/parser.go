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

import "strings"

// ParseStats counts what a Parse call saw and kept.
type ParseStats struct {
	Tokens              int `json:"tokens"`
	Rules               int `json:"rules"`
	Selectors           int `json:"selectors"`
	Declarations        int `json:"declarations"`
	InvalidSelectors    int `json:"invalid_selectors"`
	DroppedRules        int `json:"dropped_rules"`
	DroppedDeclarations int `json:"dropped_declarations"`
	SkippedAtRules      int `json:"skipped_at_rules"`
}

// Parser builds style rules from CSS input.
//
// Description:
//
//	Parser pulls tokens from a Tokenizer with at most one token of
//	lookahead. Top-level input is a sequence of style rules and at-rules.
//	A style rule's prelude runs to the next '{' and is split on top-level
//	commas into selectors; its block is split on ';' into declarations.
//
//	At-rules (@media, @font-face, @import, ...) are skipped as opaque
//	blocks, including those nested inside a declaration block. Their names
//	and preludes are available from Skipped after parsing.
//
// Thread Safety: Not safe for concurrent use. A Parser is single-use.
//
// Example:
//
//	rules := css.NewParser(`.a, .b { color: red }`).Parse()
//	fmt.Println(rules[0].Declarations.Get("color"))
type Parser struct {
	input     string
	tokenizer *Tokenizer

	// One token of lookahead pushed back by backup.
	pending    Token
	hasPending bool
	eof        bool

	parsed  bool
	skipped []AtRule
	stats   ParseStats
}

// NewParser creates a parser over input.
func NewParser(input string) *Parser {
	return &Parser{
		input:     input,
		tokenizer: NewTokenizer(input),
	}
}

// Parse consumes the whole input and returns its style rules in order.
//
// Description:
//
//	Invalid selector groups are dropped one at a time; a rule with no valid
//	selector is dropped along with its block. A prelude that reaches the
//	end of input is discarded. Parse never fails on malformed input.
//
// Panics if called more than once on the same Parser.
func (p *Parser) Parse() []Rule {
	if p.parsed {
		panic("css: Parse called twice on the same Parser")
	}
	p.parsed = true

	var rules []Rule
	for {
		tok, ok := p.nextSignificant()
		if !ok {
			return rules
		}

		switch {
		case tok.Is('}'), tok.Is(';'):
			// Stray terminators at top level.
		case tok.Is('{'):
			// A block with no prelude has no selectors.
			p.skipBlock()
			p.stats.DroppedRules++
		case tok.Type == AtKeywordToken:
			p.skipAtRule(tok)
		default:
			if rule, ok := p.parseQualifiedRule(tok); ok {
				rules = append(rules, rule)
				p.stats.Rules++
			}
		}
	}
}

// Skipped returns the at-rules skipped during Parse, in source order.
func (p *Parser) Skipped() []AtRule {
	return p.skipped
}

// Stats returns counters collected by Parse.
func (p *Parser) Stats() ParseStats {
	return p.stats
}

// Parse is shorthand for NewParser(input).Parse().
func Parse(input string) []Rule {
	return NewParser(input).Parse()
}

// ParseDeclarations parses a declaration list without surrounding braces,
// such as the value of an HTML style attribute.
func ParseDeclarations(input string) Declarations {
	p := NewParser(input)
	p.parsed = true
	return p.parseDeclarationList(true)
}

func (p *Parser) next() (Token, bool) {
	if p.hasPending {
		p.hasPending = false
		return p.pending, true
	}
	if p.eof {
		return Token{}, false
	}
	tok, ok := p.tokenizer.Next()
	if !ok {
		p.eof = true
		return Token{}, false
	}
	p.stats.Tokens++
	return tok, true
}

func (p *Parser) backup(tok Token) {
	p.pending = tok
	p.hasPending = true
}

// nextSignificant returns the next token that is not whitespace or a comment.
func (p *Parser) nextSignificant() (Token, bool) {
	for {
		tok, ok := p.next()
		if !ok || !isTrivia(tok) {
			return tok, ok
		}
	}
}

func (p *Parser) parseQualifiedRule(first Token) (Rule, bool) {
	prelude := []Token{first}
	for {
		tok, ok := p.next()
		if !ok {
			p.stats.DroppedRules++
			return Rule{}, false
		}
		if tok.Is('{') {
			break
		}
		prelude = append(prelude, tok)
	}

	selectors := p.parseSelectorList(prelude)
	counted := p.stats.Declarations
	decls := p.parseDeclarationList(false)

	if len(selectors) == 0 {
		// Declarations of a dropped rule are not part of the result.
		p.stats.Declarations = counted
		p.stats.DroppedRules++
		return Rule{}, false
	}
	p.stats.Selectors += len(selectors)
	return Rule{Selectors: selectors, Declarations: decls}, true
}

// parseDeclarationList reads declarations until the closing '}' of the
// block (or end of input). With inline set there is no enclosing block and
// a stray '}' only ends the current declaration.
func (p *Parser) parseDeclarationList(inline bool) Declarations {
	var decls Declarations
	for {
		tok, ok := p.nextSignificant()
		if !ok {
			return decls
		}

		switch {
		case tok.Is(';'):
		case tok.Is('}'):
			if !inline {
				return decls
			}
		case tok.Type == AtKeywordToken:
			p.skipAtRule(tok)
		default:
			if closed := p.parseDeclaration(tok, &decls); closed && !inline {
				return decls
			}
		}
	}
}

// parseDeclaration reads one declaration starting at first and stores it in
// decls. It reports whether it consumed the '}' closing the block.
func (p *Parser) parseDeclaration(first Token, decls *Declarations) bool {
	if first.Type != IdentToken {
		return p.skipDeclaration()
	}

	colon, ok := p.nextSignificant()
	if !ok {
		p.stats.DroppedDeclarations++
		return false
	}
	if !colon.Is(':') {
		p.backup(colon)
		return p.skipDeclaration()
	}

	var (
		value        []Token
		paren, brace int
		closed       bool
	)
	for {
		tok, ok := p.next()
		if !ok {
			break
		}
		if tok.Is('}') && brace == 0 {
			closed = true
			break
		}
		if tok.Is(';') && paren == 0 && brace == 0 {
			break
		}
		switch {
		case tok.Is('('):
			paren++
		case tok.Is(')') && paren > 0:
			paren--
		case tok.Is('{'):
			brace++
		case tok.Is('}'):
			brace--
		}
		value = append(value, tok)
	}

	v := p.serialize(value)
	if v == "" {
		p.stats.DroppedDeclarations++
		return closed
	}
	decls.Set(normalizeProperty(first.Text), v)
	p.stats.Declarations++
	return closed
}

// skipDeclaration discards a malformed declaration up to its ';' or the
// block's closing '}', reporting whether it consumed the latter.
func (p *Parser) skipDeclaration() bool {
	p.stats.DroppedDeclarations++
	paren, brace := 0, 0
	for {
		tok, ok := p.next()
		if !ok {
			return false
		}
		switch {
		case tok.Is('}') && brace == 0:
			return true
		case tok.Is(';') && paren == 0 && brace == 0:
			return false
		case tok.Is('('):
			paren++
		case tok.Is(')') && paren > 0:
			paren--
		case tok.Is('{'):
			brace++
		case tok.Is('}'):
			brace--
		}
	}
}

// skipAtRule consumes an at-rule as an opaque unit: up to ';' for statement
// at-rules, or through the balanced block that follows the prelude.
func (p *Parser) skipAtRule(at Token) {
	var prelude []Token
	for {
		tok, ok := p.next()
		if !ok || tok.Is(';') {
			break
		}
		if tok.Is('{') {
			p.skipBlock()
			break
		}
		if tok.Is('}') {
			// Closes the enclosing block; leave it for the caller.
			p.backup(tok)
			break
		}
		prelude = append(prelude, tok)
	}

	p.skipped = append(p.skipped, AtRule{
		Name:    lowerASCII(at.Text),
		Prelude: p.serialize(prelude),
	})
	p.stats.SkippedAtRules++
}

// skipBlock consumes tokens through the '}' matching an already consumed '{'.
func (p *Parser) skipBlock() {
	depth := 1
	for {
		tok, ok := p.next()
		if !ok {
			return
		}
		switch {
		case tok.Is('{'):
			depth++
		case tok.Is('}'):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// serialize renders a token run as text. Comments are removed, whitespace
// runs become one space and the ends are trimmed. When the source span is
// already in that form it is returned without copying.
func (p *Parser) serialize(toks []Token) string {
	first, last := 0, len(toks)-1
	for first <= last && isTrivia(toks[first]) {
		first++
	}
	for last >= first && isTrivia(toks[last]) {
		last--
	}
	if first > last {
		return ""
	}
	toks = toks[first : last+1]

	clean := true
	for _, tok := range toks {
		if tok.Type == CommentToken || (tok.Type == WhitespaceToken && tok.Text != " ") {
			clean = false
			break
		}
	}
	if clean {
		return p.input[toks[0].Start:toks[len(toks)-1].End]
	}

	var sb strings.Builder
	space := false
	for _, tok := range toks {
		if isTrivia(tok) {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteString(p.input[tok.Start:tok.End])
	}
	return sb.String()
}

func isTrivia(tok Token) bool {
	return tok.Type == WhitespaceToken || tok.Type == CommentToken
}
