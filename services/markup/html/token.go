// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package html tokenizes HTML text and builds a node tree from the tokens.
//
// The tokenizer is lazy and zero-copy: every token payload is a substring of
// the input, and names are only reallocated when they need lowercasing. The
// parser drives the tokenizer one token at a time and keeps its ancestry on an
// explicit stack, so nesting depth is bounded by memory rather than by the
// call stack.
//
// Neither half reports errors for malformed markup. Unterminated constructs
// yield best-effort tokens, stray end tags are dropped and open elements are
// closed at end of input. Misusing the API (advancing an exhausted tokenizer,
// parsing twice) panics.
package html

import "fmt"

// TokenType identifies the kind of an HTML token.
type TokenType int

const (
	// StartTagToken is an opening tag such as <div class="x"> or <br/>.
	StartTagToken TokenType = iota

	// EndTagToken is a closing tag such as </div>.
	EndTagToken

	// TextToken is a run of character data between markup.
	TextToken

	// CommentToken is <!-- ... --> or a bogus <! ... > construct.
	CommentToken

	// DoctypeToken is <!DOCTYPE ...>.
	DoctypeToken
)

// String returns the lowercase name of the token type.
func (t TokenType) String() string {
	switch t {
	case StartTagToken:
		return "start_tag"
	case EndTagToken:
		return "end_tag"
	case TextToken:
		return "text"
	case CommentToken:
		return "comment"
	case DoctypeToken:
		return "doctype"
	default:
		return fmt.Sprintf("token_type(%d)", int(t))
	}
}

// Token is a single lexical unit of HTML.
//
// Which fields are meaningful depends on Type:
//
//	StartTagToken: Name, Attributes, SelfClosing
//	EndTagToken:   Name
//	TextToken:     Data
//	CommentToken:  Data
//	DoctypeToken:  Name (e.g. "html")
//
// Start and End are byte offsets of the token's span in the input.
type Token struct {
	Type        TokenType
	Name        string
	Attributes  Attributes
	SelfClosing bool
	Data        string
	Start       int
	End         int
}

// Attr returns the value of the named attribute on a start tag, or "".
func (t Token) Attr(name string) string {
	v, _ := t.Attributes.Get(lowerASCII(name))
	return v
}

// String renders the token in a compact debugging form.
func (t Token) String() string {
	switch t.Type {
	case StartTagToken:
		s := "<" + t.Name
		for _, a := range t.Attributes {
			s += fmt.Sprintf(" %s=%q", a.Name, a.Value)
		}
		if t.SelfClosing {
			s += "/"
		}
		return s + ">"
	case EndTagToken:
		return "</" + t.Name + ">"
	case TextToken:
		return fmt.Sprintf("text(%q)", t.Data)
	case CommentToken:
		return fmt.Sprintf("comment(%q)", t.Data)
	case DoctypeToken:
		return "<!doctype " + t.Name + ">"
	default:
		return t.Type.String()
	}
}

// Attribute is a single name/value pair on a start tag.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attributes is an ordered attribute list with unique names.
//
// Order follows first appearance in the source. Set on an existing name
// replaces the value in place, which gives last-write-wins semantics for
// duplicated attributes while keeping a stable display order.
type Attributes []Attribute

// Get returns the value for name and whether it is present.
func (a Attributes) Get(name string) (string, bool) {
	for i := range a {
		if a[i].Name == name {
			return a[i].Value, true
		}
	}
	return "", false
}

// Has reports whether name is present.
func (a Attributes) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Set assigns value to name, appending when name is new.
func (a *Attributes) Set(name, value string) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = value
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: value})
}

// Len returns the number of distinct attributes.
func (a Attributes) Len() int {
	return len(a)
}

// Map copies the attributes into a map.
func (a Attributes) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, attr := range a {
		m[attr.Name] = attr.Value
	}
	return m
}

// lowerASCII lowercases ASCII letters and returns s itself when it has none.
func lowerASCII(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
