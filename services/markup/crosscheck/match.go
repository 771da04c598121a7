// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crosscheck

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/AleutianAI/markup/services/markup/css"
)

// SelectorMatch is the number of elements one selector matches.
type SelectorMatch struct {
	Selector string `json:"selector"`
	Matches  int    `json:"matches"`

	// Error is set when the selector text does not compile as a
	// cascadia selector, e.g. for pseudo-elements.
	Error string `json:"error,omitempty"`
}

// MatchSelectors evaluates every selector of rules against document.
//
// Description:
//
//	Each selector is rendered with its String method and compiled by
//	cascadia, then matched over the goquery document. This checks that
//	serialized selectors are valid CSS as well as showing which rules
//	apply to a page.
//
// Inputs:
//
//	document - HTML source.
//	rules - Parsed CSS rules.
//
// Outputs:
//
//	[]SelectorMatch - One entry per selector in rule order.
//	error - The document could not be loaded.
func MatchSelectors(document []byte, rules []css.Rule) ([]SelectorMatch, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	var matches []SelectorMatch
	for _, rule := range rules {
		for _, sel := range rule.Selectors {
			text := sel.String()
			m := SelectorMatch{Selector: text}
			compiled, err := cascadia.Compile(text)
			if err != nil {
				m.Error = err.Error()
			} else {
				m.Matches = doc.FindMatcher(compiled).Length()
			}
			matches = append(matches, m)
		}
	}
	return matches, nil
}
