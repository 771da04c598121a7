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

// Selector is a parsed CSS selector.
//
// Simple selectors (TypeSelector, ClassSelector, IDSelector,
// UniversalSelector, AttributeSelector, PseudoSelector) may be grouped into a
// CompoundSelector, and compounds are related by ComplexSelector combinators.
// The structure is a strict tree: every combinator owns both operands and
// neither operand is ever nil.
//
// String returns canonical CSS text for the selector.
type Selector interface {
	String() string
	selector()
}

// TypeSelector matches elements by tag name. Name is lowercase.
type TypeSelector struct {
	Name string
}

// ClassSelector matches elements carrying a class. Name keeps its case.
type ClassSelector struct {
	Name string
}

// IDSelector matches an element by id. Name keeps its case.
type IDSelector struct {
	Name string
}

// UniversalSelector matches any element.
type UniversalSelector struct{}

// AttributeSelector matches on an attribute, e.g. [type="text"].
type AttributeSelector struct {
	// Name is the attribute name, lowercase.
	Name string

	// Operator is "" for a presence test, otherwise one of
	// "=", "~=", "|=", "^=", "$=", "*=".
	Operator string

	Value string

	// Modifier is the optional case flag ("i" or "s").
	Modifier string
}

// PseudoSelector is a pseudo-class (:hover) or pseudo-element (::before).
type PseudoSelector struct {
	// Name is lowercase.
	Name string

	// Element is true for the "::" form.
	Element bool

	// Argument is the raw text inside the parentheses of a functional
	// pseudo, e.g. "2n+1" for :nth-child(2n+1). Empty otherwise.
	Argument string

	// Functional is true when the pseudo was written with parentheses.
	Functional bool
}

// CompoundSelector is a run of simple selectors with no whitespace between
// them, e.g. a.external[href].
type CompoundSelector struct {
	Parts []Selector
}

// Combinator relates the two sides of a ComplexSelector.
type Combinator int

const (
	// DescendantCombinator is whitespace: Right is anywhere inside Left.
	DescendantCombinator Combinator = iota

	// ChildCombinator is '>': Right is a direct child of Left.
	ChildCombinator

	// AdjacentCombinator is '+': Right immediately follows Left.
	AdjacentCombinator

	// GeneralCombinator is '~': Right follows Left somewhere later.
	GeneralCombinator
)

// String returns the combinator's name.
func (c Combinator) String() string {
	switch c {
	case DescendantCombinator:
		return "descendant"
	case ChildCombinator:
		return "child"
	case AdjacentCombinator:
		return "adjacent"
	case GeneralCombinator:
		return "general"
	default:
		return "unknown"
	}
}

// Symbol returns the combinator as written between selectors.
func (c Combinator) Symbol() string {
	switch c {
	case ChildCombinator:
		return " > "
	case AdjacentCombinator:
		return " + "
	case GeneralCombinator:
		return " ~ "
	default:
		return " "
	}
}

// ComplexSelector joins two selectors with a combinator. Chains are
// left-associative: "a > b c" is (a > b) c.
type ComplexSelector struct {
	Combinator Combinator
	Left       Selector
	Right      Selector
}

// Descendant returns the selector "left right".
func Descendant(left, right Selector) *ComplexSelector {
	return &ComplexSelector{Combinator: DescendantCombinator, Left: left, Right: right}
}

// Child returns the selector "left > right".
func Child(left, right Selector) *ComplexSelector {
	return &ComplexSelector{Combinator: ChildCombinator, Left: left, Right: right}
}

// Adjacent returns the selector "left + right".
func Adjacent(left, right Selector) *ComplexSelector {
	return &ComplexSelector{Combinator: AdjacentCombinator, Left: left, Right: right}
}

// General returns the selector "left ~ right".
func General(left, right Selector) *ComplexSelector {
	return &ComplexSelector{Combinator: GeneralCombinator, Left: left, Right: right}
}

func (*TypeSelector) selector()      {}
func (*ClassSelector) selector()     {}
func (*IDSelector) selector()        {}
func (*UniversalSelector) selector() {}
func (*AttributeSelector) selector() {}
func (*PseudoSelector) selector()    {}
func (*CompoundSelector) selector()  {}
func (*ComplexSelector) selector()   {}

func (s *TypeSelector) String() string      { return s.Name }
func (s *ClassSelector) String() string     { return "." + s.Name }
func (s *IDSelector) String() string        { return "#" + s.Name }
func (s *UniversalSelector) String() string { return "*" }

func (s *AttributeSelector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(s.Name)
	if s.Operator != "" {
		sb.WriteString(s.Operator)
		writeQuoted(&sb, s.Value)
		if s.Modifier != "" {
			sb.WriteByte(' ')
			sb.WriteString(s.Modifier)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (s *PseudoSelector) String() string {
	prefix := ":"
	if s.Element {
		prefix = "::"
	}
	if !s.Functional {
		return prefix + s.Name
	}
	return prefix + s.Name + "(" + s.Argument + ")"
}

func (s *CompoundSelector) String() string {
	var sb strings.Builder
	for _, p := range s.Parts {
		sb.WriteString(p.String())
	}
	return sb.String()
}

func (s *ComplexSelector) String() string {
	return s.Left.String() + s.Combinator.Symbol() + s.Right.String()
}

// writeQuoted writes v as a double-quoted CSS string. Escapes already
// present in v are copied through.
func writeQuoted(sb *strings.Builder, v string) {
	sb.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\\':
			sb.WriteByte(c)
			if i+1 < len(v) {
				i++
				sb.WriteByte(v[i])
			}
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\a `)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
}
