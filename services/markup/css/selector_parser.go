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

// parseSelectorList splits a rule prelude on top-level commas and parses
// each group. Groups that fail to parse are dropped individually.
func (p *Parser) parseSelectorList(prelude []Token) []Selector {
	var (
		selectors []Selector
		group     []Token
		depth     int
	)

	flush := func() {
		if sel, ok := p.parseSelector(group); ok {
			selectors = append(selectors, sel)
		} else {
			p.stats.InvalidSelectors++
		}
		group = group[:0]
	}

	for _, tok := range prelude {
		switch {
		case tok.Type == CommentToken:
			continue
		case tok.Is('('), tok.Is('['):
			depth++
		case (tok.Is(')') || tok.Is(']')) && depth > 0:
			depth--
		case tok.Is(',') && depth == 0:
			flush()
			continue
		}
		group = append(group, tok)
	}
	flush()

	return selectors
}

// parseSelector parses one selector group. Combinators are
// left-associative, so each new compound becomes the right operand of
// everything parsed before it.
func (p *Parser) parseSelector(toks []Token) (Selector, bool) {
	var (
		acc      Selector
		comb     Combinator
		hasComb  bool
		sawSpace bool
	)

	for i := 0; i < len(toks); {
		tok := toks[i]

		if tok.Type == WhitespaceToken {
			sawSpace = true
			i++
			continue
		}
		if c, ok := combinatorFor(tok); ok {
			if acc == nil || hasComb {
				return nil, false
			}
			comb, hasComb = c, true
			i++
			continue
		}

		compound, n := p.parseCompound(toks[i:])
		if n == 0 {
			return nil, false
		}
		i += n

		switch {
		case acc == nil:
			acc = compound
		case hasComb:
			acc = &ComplexSelector{Combinator: comb, Left: acc, Right: compound}
		case sawSpace:
			acc = Descendant(acc, compound)
		default:
			return nil, false
		}
		hasComb, sawSpace = false, false
	}

	if acc == nil || hasComb {
		return nil, false
	}
	return acc, true
}

func combinatorFor(tok Token) (Combinator, bool) {
	switch {
	case tok.Is('>'):
		return ChildCombinator, true
	case tok.Is('+'):
		return AdjacentCombinator, true
	case tok.Is('~'):
		return GeneralCombinator, true
	default:
		return 0, false
	}
}

// parseCompound parses adjacent simple selectors from the start of toks and
// returns the selector with the number of tokens consumed, or 0 when the
// compound is invalid.
func (p *Parser) parseCompound(toks []Token) (Selector, int) {
	var parts []Selector
	i := 0

loop:
	for i < len(toks) {
		tok := toks[i]
		switch {
		case tok.Type == IdentToken:
			if len(parts) > 0 {
				return nil, 0
			}
			parts = append(parts, &TypeSelector{Name: lowerASCII(tok.Text)})
			i++

		case tok.Is('*'):
			if len(parts) > 0 {
				return nil, 0
			}
			parts = append(parts, &UniversalSelector{})
			i++

		case tok.Is('.'):
			if i+1 >= len(toks) || toks[i+1].Type != IdentToken {
				return nil, 0
			}
			parts = append(parts, &ClassSelector{Name: toks[i+1].Text})
			i += 2

		case tok.Type == HashToken:
			parts = append(parts, &IDSelector{Name: tok.Text})
			i++

		case tok.Is('['):
			sel, n := p.parseAttribute(toks[i:])
			if n == 0 {
				return nil, 0
			}
			parts = append(parts, sel)
			i += n

		case tok.Is(':'):
			sel, n := p.parsePseudo(toks[i:])
			if n == 0 {
				return nil, 0
			}
			parts = append(parts, sel)
			i += n

		default:
			break loop
		}
	}

	switch len(parts) {
	case 0:
		return nil, 0
	case 1:
		return parts[0], i
	default:
		return &CompoundSelector{Parts: parts}, i
	}
}

// parseAttribute parses [name], [name=value] and the other operator forms.
// toks[0] is the opening '['.
func (p *Parser) parseAttribute(toks []Token) (Selector, int) {
	i := skipWhitespace(toks, 1)
	if i >= len(toks) || toks[i].Type != IdentToken {
		return nil, 0
	}
	sel := &AttributeSelector{Name: lowerASCII(toks[i].Text)}
	i = skipWhitespace(toks, i+1)
	if i >= len(toks) {
		return nil, 0
	}
	if toks[i].Is(']') {
		return sel, i + 1
	}

	switch tok := toks[i]; {
	case tok.Is('='):
		sel.Operator = "="
		i++
	case tok.Type == DelimToken && strings.Contains("~|^$*", tok.Text) && i+1 < len(toks) && toks[i+1].Is('='):
		sel.Operator = tok.Text + "="
		i += 2
	default:
		return nil, 0
	}

	i = skipWhitespace(toks, i)
	if i >= len(toks) {
		return nil, 0
	}
	switch tok := toks[i]; tok.Type {
	case IdentToken, StringToken, NumberToken:
		sel.Value = tok.Text
	default:
		return nil, 0
	}

	i = skipWhitespace(toks, i+1)
	if i < len(toks) && toks[i].Type == IdentToken {
		if m := lowerASCII(toks[i].Text); m == "i" || m == "s" {
			sel.Modifier = m
			i = skipWhitespace(toks, i+1)
		}
	}
	if i >= len(toks) || !toks[i].Is(']') {
		return nil, 0
	}
	return sel, i + 1
}

// parsePseudo parses :name, ::name and :name(argument). toks[0] is the
// first ':'.
func (p *Parser) parsePseudo(toks []Token) (Selector, int) {
	sel := &PseudoSelector{}
	i := 1
	if i < len(toks) && toks[i].Is(':') {
		sel.Element = true
		i++
	}
	if i >= len(toks) || toks[i].Type != IdentToken {
		return nil, 0
	}
	sel.Name = lowerASCII(toks[i].Text)
	i++

	if i >= len(toks) || !toks[i].Is('(') {
		return sel, i
	}

	open := i
	depth := 0
	for ; i < len(toks); i++ {
		switch {
		case toks[i].Is('('):
			depth++
		case toks[i].Is(')'):
			depth--
		}
		if depth == 0 {
			sel.Functional = true
			sel.Argument = strings.TrimSpace(p.input[toks[open].End:toks[i].Start])
			return sel, i + 1
		}
	}
	return nil, 0
}

func skipWhitespace(toks []Token, i int) int {
	for i < len(toks) && toks[i].Type == WhitespaceToken {
		i++
	}
	return i
}
