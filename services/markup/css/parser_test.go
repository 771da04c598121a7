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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typ(name string) *TypeSelector { return &TypeSelector{Name: name} }

func TestParser_SelectorAssociativity(t *testing.T) {
	rules := Parse(`div > p span { color: red }`)
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Selectors, 1)

	want := Descendant(Child(typ("div"), typ("p")), typ("span"))
	assert.Equal(t, want, rules[0].Selectors[0])
	assert.Equal(t, "div > p span", rules[0].Selectors[0].String())
}

func TestParser_Combinators(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{input: "a b", want: Descendant(typ("a"), typ("b"))},
		{input: "a>b", want: Child(typ("a"), typ("b"))},
		{input: "a + b", want: Adjacent(typ("a"), typ("b"))},
		{input: "a~b", want: General(typ("a"), typ("b"))},
		{input: "a  >  b ~ c", want: General(Child(typ("a"), typ("b")), typ("c"))},
		{input: "h1+h2", want: Adjacent(typ("h1"), typ("h2"))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rules := Parse(tt.input + "{x:y}")
			require.Len(t, rules, 1)
			assert.Equal(t, []Selector{tt.want}, rules[0].Selectors)
		})
	}
}

func TestParser_SimpleSelectors(t *testing.T) {
	tests := []struct {
		input string
		want  Selector
	}{
		{input: "DIV", want: typ("div")},
		{input: ".Note", want: &ClassSelector{Name: "Note"}},
		{input: "#Main", want: &IDSelector{Name: "Main"}},
		{input: "*", want: &UniversalSelector{}},
		{input: "[disabled]", want: &AttributeSelector{Name: "disabled"}},
		{input: `[type="text"]`, want: &AttributeSelector{Name: "type", Operator: "=", Value: "text"}},
		{input: `[lang|=en]`, want: &AttributeSelector{Name: "lang", Operator: "|=", Value: "en"}},
		{input: `[href $= ".pdf" i]`, want: &AttributeSelector{Name: "href", Operator: "$=", Value: ".pdf", Modifier: "i"}},
		{input: ":hover", want: &PseudoSelector{Name: "hover"}},
		{input: "::Before", want: &PseudoSelector{Name: "before", Element: true}},
		{input: ":nth-child( 2n+1 )", want: &PseudoSelector{Name: "nth-child", Argument: "2n+1", Functional: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rules := Parse(tt.input + " { a: b }")
			require.Len(t, rules, 1)
			assert.Equal(t, []Selector{tt.want}, rules[0].Selectors)
		})
	}
}

func TestParser_CompoundSelector(t *testing.T) {
	rules := Parse(`a.external[target="_blank"]:hover, div.note {}`)
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Selectors, 2)

	assert.Equal(t, &CompoundSelector{Parts: []Selector{
		typ("a"),
		&ClassSelector{Name: "external"},
		&AttributeSelector{Name: "target", Operator: "=", Value: "_blank"},
		&PseudoSelector{Name: "hover"},
	}}, rules[0].Selectors[0])
	assert.Equal(t, &CompoundSelector{Parts: []Selector{typ("div"), &ClassSelector{Name: "note"}}}, rules[0].Selectors[1])
	assert.Equal(t, `a.external[target="_blank"]:hover, div.note`, rules[0].SelectorText())
}

func TestParser_SelectorGroupFanOut(t *testing.T) {
	rules := Parse(`.a, .b { color: red; }`)
	require.Len(t, rules, 1)

	assert.Equal(t, []Selector{&ClassSelector{Name: "a"}, &ClassSelector{Name: "b"}}, rules[0].Selectors)
	assert.Equal(t, Declarations{{Property: "color", Value: "red"}}, rules[0].Declarations)
}

func TestParser_CommaInsidePseudoDoesNotSplit(t *testing.T) {
	rules := Parse(`li:not(.a, .b) {}`)
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Selectors, 1)
	assert.Equal(t, "li:not(.a, .b)", rules[0].Selectors[0].String())
}

func TestParser_InvalidSelectorGroups(t *testing.T) {
	p := NewParser(`> a, .ok, b >, 12px {color: red} .c + {x: y} p {z: w}`)
	rules := p.Parse()

	require.Len(t, rules, 2)
	assert.Equal(t, []Selector{&ClassSelector{Name: "ok"}}, rules[0].Selectors)
	assert.Equal(t, "red", rules[0].Declarations.Map()["color"])
	assert.Equal(t, []Selector{typ("p")}, rules[1].Selectors)

	stats := p.Stats()
	assert.Equal(t, 4, stats.InvalidSelectors)
	assert.Equal(t, 1, stats.DroppedRules)
	assert.Equal(t, 2, stats.Declarations)
}

func TestParser_BlockWithoutPreludeIsSkipped(t *testing.T) {
	p := NewParser(`{color:red} div{color:blue} { a { b: c } } p{x:y}`)
	rules := p.Parse()

	require.Len(t, rules, 2)
	assert.Equal(t, "div { color: blue; }", rules[0].String())
	assert.Equal(t, []Selector{typ("p")}, rules[1].Selectors)

	stats := p.Stats()
	assert.Equal(t, 2, stats.DroppedRules)
	assert.Equal(t, 2, stats.Declarations)
}

func TestParser_DroppedRuleDeclarationsNotCounted(t *testing.T) {
	p := NewParser(`> a { x: 1; y: 2 } b { z: 3 }`)
	rules := p.Parse()

	require.Len(t, rules, 1)
	assert.Equal(t, 1, p.Stats().Declarations)
	assert.Equal(t, 1, p.Stats().DroppedRules)
}

func TestParser_ComplexValueRoundTrip(t *testing.T) {
	rules := Parse(`.x { background: linear-gradient(45deg, #ff6b6b, #4ecdc4); }`)
	require.Len(t, rules, 1)
	require.Equal(t, 1, rules[0].Declarations.Len())

	v, ok := rules[0].Declarations.Get("background")
	require.True(t, ok)
	assert.Equal(t, "linear-gradient(45deg, #ff6b6b, #4ecdc4)", v)
}

func TestParser_ValueSerialization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses whitespace", input: "a { font:  bold\n\t12px   serif }", want: "bold 12px serif"},
		{name: "drops comments", input: "a { margin: 0 /* top */ auto }", want: "0 auto"},
		{name: "comment separates", input: "a { margin: 1px/**/2px }", want: "1px 2px"},
		{name: "keeps strings", input: `a { content: "a  b;c" }`, want: `"a  b;c"`},
		{name: "keeps important", input: "a { margin: 0 !IMPORTANT }", want: "0 !IMPORTANT"},
		{name: "url", input: "a { background: url( x.png ) no-repeat }", want: "url( x.png ) no-repeat"},
		{name: "semicolon in parens", input: "a { margin: f(a;b) }", want: "f(a;b)"},
		{name: "braces", input: "a { --x: { b: c; d: e } }", want: "{ b: c; d: e }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := Parse(tt.input)
			require.Len(t, rules, 1)
			require.Len(t, rules[0].Declarations, 1)
			assert.Equal(t, tt.want, rules[0].Declarations[0].Value)
		})
	}
}

func TestParser_ValueIsZeroCopyWhenClean(t *testing.T) {
	input := ".x { color: rgb(1, 2, 3) }"
	rules := Parse(input)
	require.Len(t, rules, 1)

	v := rules[0].Declarations[0].Value
	start := strings.Index(input, "rgb")
	assert.Equal(t, input[start:start+len(v)], v)
}

func TestParser_CommentStripping(t *testing.T) {
	assert.Equal(t, Parse(`div{color:red}`), Parse(`/* c */div{color:red}`))
	assert.Equal(t, Parse(`div p{color:red}`), Parse(`div /* c */ p{color:/* x */red}`))
}

func TestParser_Declarations(t *testing.T) {
	rules := Parse(`a {
		COLOR: red;
		missing-colon;
		: no-name;
		empty: ;
		--Brand-Color: #0af;
		color: blue;
		*zoom: 1;
		margin: 0
	}`)
	require.Len(t, rules, 1)

	assert.Equal(t, Declarations{
		{Property: "color", Value: "blue"},
		{Property: "--Brand-Color", Value: "#0af"},
		{Property: "margin", Value: "0"},
	}, rules[0].Declarations)
}

func TestParser_MissingColonBeforeClose(t *testing.T) {
	rules := Parse(`a { color } b { x: y }`)
	require.Len(t, rules, 2)
	assert.Empty(t, rules[0].Declarations)
	assert.Equal(t, "y", rules[1].Declarations.Map()["x"])
}

func TestParser_AtRulesAreSkipped(t *testing.T) {
	p := NewParser(`
@charset "utf-8";
@import url(base.css) screen;
@media screen and (max-width: 600px) {
  .a { color: red; }
  @supports (display: grid) { .b { display: grid } }
}
.c { margin: 0; @nested { x: y } padding: 1px }
.d { color: blue }
`)
	rules := p.Parse()

	require.Len(t, rules, 2)
	assert.Equal(t, ".c { margin: 0; padding: 1px; }", rules[0].String())
	assert.Equal(t, ".d { color: blue; }", rules[1].String())

	assert.Equal(t, []AtRule{
		{Name: "charset", Prelude: `"utf-8"`},
		{Name: "import", Prelude: "url(base.css) screen"},
		{Name: "media", Prelude: "screen and (max-width: 600px)"},
		{Name: "nested", Prelude: ""},
	}, p.Skipped())
}

func TestParser_StrayTerminatorsAndEOF(t *testing.T) {
	rules := Parse(`}; a { x: y } ;} b, c`)
	require.Len(t, rules, 1)
	assert.Equal(t, "a { x: y; }", rules[0].String())
}

func TestParser_UnterminatedBlock(t *testing.T) {
	rules := Parse(`a { color: red; margin: 0`)
	require.Len(t, rules, 1)
	assert.Equal(t, Declarations{{Property: "color", Value: "red"}, {Property: "margin", Value: "0"}}, rules[0].Declarations)
}

func TestParser_DuplicatePropertyLastWins(t *testing.T) {
	rules := Parse(`a { color: red; margin: 0; color: blue }`)
	require.Len(t, rules, 1)
	assert.Equal(t, Declarations{{Property: "color", Value: "blue"}, {Property: "margin", Value: "0"}}, rules[0].Declarations)
}

func TestParser_HashContext(t *testing.T) {
	rules := Parse(`#fff { color: #fff }`)
	require.Len(t, rules, 1)
	assert.Equal(t, []Selector{&IDSelector{Name: "fff"}}, rules[0].Selectors)
	assert.Equal(t, "#fff", rules[0].Declarations.Map()["color"])
}

func TestParser_IDStartingWithDigit(t *testing.T) {
	rules := Parse(`#1a { color: red }`)
	require.Len(t, rules, 1)
	assert.Equal(t, []Selector{&IDSelector{Name: "1a"}}, rules[0].Selectors)
	assert.Equal(t, "#1a", rules[0].Selectors[0].String())
}

func TestParser_EmptyInput(t *testing.T) {
	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse("  /* only a comment */ "))
}

func TestParser_ParseTwicePanics(t *testing.T) {
	p := NewParser("a{}")
	p.Parse()
	assert.Panics(t, func() { p.Parse() })
}

func TestParseDeclarations(t *testing.T) {
	decls := ParseDeclarations(`color: red; Background: url("x.png") no-repeat;; } margin: 0 auto`)
	assert.Equal(t, Declarations{
		{Property: "color", Value: "red"},
		{Property: "background", Value: `url("x.png") no-repeat`},
		{Property: "margin", Value: "0 auto"},
	}, decls)
}

func TestParser_Stats(t *testing.T) {
	p := NewParser(`a, b { x: 1; y } @media print { c {} }`)
	p.Parse()

	stats := p.Stats()
	assert.Equal(t, 1, stats.Rules)
	assert.Equal(t, 2, stats.Selectors)
	assert.Equal(t, 1, stats.Declarations)
	assert.Equal(t, 1, stats.DroppedDeclarations)
	assert.Equal(t, 1, stats.SkippedAtRules)
	assert.Positive(t, stats.Tokens)
}
