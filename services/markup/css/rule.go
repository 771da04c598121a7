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

// Declaration is one property: value pair.
type Declaration struct {
	// Property is lowercase, except custom properties (--name) which keep
	// their case.
	Property string `json:"property"`

	// Value is the declaration value with comments removed and whitespace
	// collapsed, e.g. "linear-gradient(45deg, #ff6b6b, #4ecdc4)". A trailing
	// !important is kept as written.
	Value string `json:"value"`
}

// Declarations is an ordered declaration list with unique properties.
//
// Set on an existing property replaces its value in place: lookups see the
// last value written while display order follows first appearance.
type Declarations []Declaration

// Get returns the value of property and whether it is present.
func (d Declarations) Get(property string) (string, bool) {
	for i := range d {
		if d[i].Property == property {
			return d[i].Value, true
		}
	}
	return "", false
}

// Set assigns value to property, appending when property is new.
func (d *Declarations) Set(property, value string) {
	for i := range *d {
		if (*d)[i].Property == property {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Declaration{Property: property, Value: value})
}

// Len returns the number of distinct properties.
func (d Declarations) Len() int {
	return len(d)
}

// Map copies the declarations into a map.
func (d Declarations) Map() map[string]string {
	m := make(map[string]string, len(d))
	for _, decl := range d {
		m[decl.Property] = decl.Value
	}
	return m
}

// String renders the declarations as "a: b; c: d".
func (d Declarations) String() string {
	parts := make([]string, len(d))
	for i, decl := range d {
		parts[i] = decl.Property + ": " + decl.Value
	}
	return strings.Join(parts, "; ")
}

// Rule is a style rule: a selector list sharing one declaration block.
type Rule struct {
	Selectors    []Selector
	Declarations Declarations
}

// SelectorText returns the selector list as CSS, e.g. ".a, .b".
func (r Rule) SelectorText() string {
	parts := make([]string, len(r.Selectors))
	for i, s := range r.Selectors {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// String renders the rule as CSS on one line.
func (r Rule) String() string {
	if len(r.Declarations) == 0 {
		return r.SelectorText() + " {}"
	}
	return r.SelectorText() + " { " + r.Declarations.String() + "; }"
}

// AtRule records an at-rule that was skipped without being parsed.
type AtRule struct {
	// Name is the lowercase keyword without '@', e.g. "media".
	Name string `json:"name"`

	// Prelude is the text between the keyword and its block or ';',
	// e.g. "screen and (max-width: 600px)".
	Prelude string `json:"prelude"`
}

// String renders the at-rule head, e.g. "@media screen".
func (a AtRule) String() string {
	if a.Prelude == "" {
		return "@" + a.Name
	}
	return "@" + a.Name + " " + a.Prelude
}

// normalizeProperty lowercases property names other than custom properties.
func normalizeProperty(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	return lowerASCII(name)
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
