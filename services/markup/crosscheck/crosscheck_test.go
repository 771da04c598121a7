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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/css"
)

func TestChecker_HTMLAgrees(t *testing.T) {
	content := []byte(`<div class="a"><p>one</p><br><img src=x /><script>if (a < b) {}</script></div>`)

	report, err := NewChecker(nil).Check(context.Background(), content, "page.html")
	require.NoError(t, err)

	assert.Equal(t, markup.LanguageHTML, report.Language)
	assert.Equal(t, 5, report.Ours.Elements)
	assert.Equal(t, 5, report.References[RefTreeSitter].Elements)
	assert.Equal(t, 5, report.References[RefNetHTML].Elements)
	assert.True(t, report.Agree(), "mismatches: %v", report.Mismatches)
}

func TestChecker_HTMLStrayEndTag(t *testing.T) {
	content := []byte(`<p>a</p></span>`)

	report, err := NewChecker(nil).Check(context.Background(), content, "stray.html")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ours.StrayEndTags)
	assert.Equal(t, 1, report.Ours.Elements)
	assert.Equal(t, 1, report.References[RefNetHTML].Elements)
}

func TestChecker_CSSAgrees(t *testing.T) {
	content := []byte(`a { color: red; }
@media print { b { color: black } }
.c, .d { margin: 0; padding: 1px }`)

	report, err := NewChecker(nil).Check(context.Background(), content, "site.css")
	require.NoError(t, err)

	assert.Equal(t, Counts{Rules: 2, Declarations: 3}, report.Ours)
	assert.Equal(t, Counts{Rules: 2, Declarations: 3}, report.References[RefTreeSitter])
	assert.True(t, report.Agree())
	assert.NotContains(t, report.References, RefNetHTML)
}

func TestChecker_Unsupported(t *testing.T) {
	_, err := NewChecker(nil).Check(context.Background(), []byte("x"), "main.go")
	assert.ErrorIs(t, err, markup.ErrUnsupportedLanguage)
}

func TestChecker_InvalidContent(t *testing.T) {
	_, err := NewChecker(nil).Check(context.Background(), []byte("\xff"), "a.css")
	assert.ErrorIs(t, err, markup.ErrInvalidContent)
}

func TestReport_Compare(t *testing.T) {
	r := &Report{}
	r.compare(RefTreeSitter, "elements", 3, 3)
	assert.True(t, r.Agree())

	r.compare(RefNetHTML, "elements", 3, 4)
	require.Len(t, r.Mismatches, 1)
	assert.Equal(t, "elements: ours=3 x/net/html=4", r.Mismatches[0].String())
}

func TestNetHTMLCounts(t *testing.T) {
	assert.Equal(t, 0, netHTMLCounts(nil).Elements)
	assert.Equal(t, 3, netHTMLCounts([]byte(`<a><b/><c></c></a>`)).Elements)
}

func TestMatchSelectors(t *testing.T) {
	document := []byte(`<div class="a"><p id="x">1</p><p>2</p><span>3</span></div>`)
	rules := css.Parse(`div > p {} .a {} #x, span {} [id="x"] {}`)

	matches, err := MatchSelectors(document, rules)
	require.NoError(t, err)

	require.Len(t, matches, 5)
	assert.Equal(t, SelectorMatch{Selector: "div > p", Matches: 2}, matches[0])
	assert.Equal(t, SelectorMatch{Selector: ".a", Matches: 1}, matches[1])
	assert.Equal(t, SelectorMatch{Selector: "#x", Matches: 1}, matches[2])
	assert.Equal(t, SelectorMatch{Selector: "span", Matches: 1}, matches[3])
	assert.Equal(t, 1, matches[4].Matches)
	assert.Empty(t, matches[4].Error)
}
