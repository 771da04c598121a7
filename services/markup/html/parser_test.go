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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func el(tag string, attrs Attributes, children ...Node) *Element {
	return &Element{TagName: tag, Attributes: attrs, Children: children}
}

func text(s string) *Text { return &Text{Data: s} }

func TestParser_NestedElements(t *testing.T) {
	nodes := Parse(`<div id="main"><p>Hello <b>world</b></p></div>`)

	want := []Node{
		el("div", Attributes{{Name: "id", Value: "main"}},
			el("p", nil,
				text("Hello "),
				el("b", nil, text("world")),
			),
		),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_VoidElementsDoNotNest(t *testing.T) {
	nodes := Parse(`<br><br/></br>`)

	// The stray </br> matches no open element and is dropped.
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		e, ok := n.(*Element)
		require.True(t, ok)
		assert.Equal(t, "br", e.TagName)
		assert.Empty(t, e.Children)
	}
}

func TestParser_VoidElementInsideParent(t *testing.T) {
	nodes := Parse(`<p>a<img src=x.png>b</p>`)
	want := []Node{
		el("p", nil,
			text("a"),
			el("img", Attributes{{Name: "src", Value: "x.png"}}),
			text("b"),
		),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_SelfClosingNonVoid(t *testing.T) {
	nodes := Parse(`<div/><span>x</span>`)
	require.Len(t, nodes, 2)
	assert.Equal(t, el("div", nil), nodes[0])
}

func TestParser_AttributeLastWriteWins(t *testing.T) {
	nodes := Parse(`<div a="1" a="2"></div>`)
	require.Len(t, nodes, 1)
	assert.Equal(t, "2", nodes[0].(*Element).Attr("a"))
	assert.Equal(t, 1, nodes[0].(*Element).Attributes.Len())
}

func TestParser_UnmatchedEndTagIsNoop(t *testing.T) {
	p := NewParser(`<p>text</div>`)
	nodes := p.Parse()

	assert.Equal(t, []Node{el("p", nil, text("text"))}, nodes)
	assert.Equal(t, 1, p.Stats().StrayEndTags)
}

func TestParser_EndTagClosesIntermediate(t *testing.T) {
	nodes := Parse(`<div><p><span>x</div>after`)

	want := []Node{
		el("div", nil,
			el("p", nil,
				el("span", nil, text("x")),
			),
		),
		text("after"),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_EndTagMatchesInnermost(t *testing.T) {
	nodes := Parse(`<div><div>inner</div>outer</div>`)

	want := []Node{
		el("div", nil,
			el("div", nil, text("inner")),
			text("outer"),
		),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_EndTagCaseInsensitive(t *testing.T) {
	nodes := Parse(`<Section>x</SECTION>`)
	assert.Equal(t, []Node{el("section", nil, text("x"))}, nodes)
}

func TestParser_ClosesEverythingAtEOF(t *testing.T) {
	nodes := Parse(`<html><body><ul><li>one<li>two`)

	want := []Node{
		el("html", nil,
			el("body", nil,
				el("ul", nil,
					el("li", nil,
						text("one"),
						el("li", nil, text("two")),
					),
				),
			),
		),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_DoctypeAndComments(t *testing.T) {
	nodes := Parse(`<!DOCTYPE html><!-- top --><p><!-- in --></p>`)

	want := []Node{
		&Comment{Data: " top "},
		el("p", nil, &Comment{Data: " in "}),
	}
	assert.Equal(t, want, nodes)
}

func TestParser_WhitespaceText(t *testing.T) {
	input := "<ul>\n  <li>a</li>\n</ul>"

	kept := Parse(input)
	require.Len(t, kept, 1)
	assert.Len(t, kept[0].(*Element).Children, 3)

	skipped := Parse(input, WithSkipWhitespaceText(true))
	require.Len(t, skipped, 1)
	assert.Equal(t, []Node{el("li", nil, text("a"))}, skipped[0].(*Element).Children)
}

func TestParser_ScriptContentIsText(t *testing.T) {
	nodes := Parse(`<script>let s = "<b>";</script>`)
	assert.Equal(t, []Node{el("script", nil, text(`let s = "<b>";`))}, nodes)
}

func TestParser_EmptyInput(t *testing.T) {
	assert.Nil(t, Parse(""))
}

func TestParser_ParseTwicePanics(t *testing.T) {
	p := NewParser("<p>")
	p.Parse()
	assert.Panics(t, func() { p.Parse() })
}

func TestParser_DeepNesting(t *testing.T) {
	const depth = 100000
	input := strings.Repeat("<div>", depth) + "leaf"

	p := NewParser(input)
	nodes := p.Parse()
	require.Len(t, nodes, 1)
	assert.Equal(t, depth, p.Stats().MaxDepth)

	levels := 0
	Walk(nodes, func(n Node, d int) bool {
		if d > levels {
			levels = d
		}
		return true
	})
	assert.Equal(t, depth, levels)
}

func TestParser_Stats(t *testing.T) {
	p := NewParser(`<!doctype html><p>a<br>b<!-- c --></p></q>`)
	p.Parse()

	assert.Equal(t, ParseStats{
		Tokens:       8,
		Elements:     2,
		TextNodes:    2,
		Comments:     1,
		StrayEndTags: 1,
		MaxDepth:     2,
	}, p.Stats())
}

// treeIsClosed checks that no element appears twice, which would happen if a
// frame were attached more than once.
func treeIsClosed(nodes []Node) bool {
	seen := map[*Element]bool{}
	ok := true
	Walk(nodes, func(n Node, _ int) bool {
		if e, isEl := n.(*Element); isEl {
			if seen[e] {
				ok = false
			}
			seen[e] = true
		}
		return true
	})
	return ok
}

func TestParser_WellFormedOnMalformedInput(t *testing.T) {
	inputs := []string{
		`<a><b></a></b>`,
		`</x></y><z`,
		`<div class="x`,
		`<p>one<p>two</div></span>`,
		`<<<>>><!--`,
		`<table><tr><td>1<td>2</table>`,
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			p := NewParser(input)
			nodes := p.Parse()
			assert.True(t, treeIsClosed(nodes))
			// Every start tag becomes exactly one element in the output.
			assert.Equal(t, p.Stats().Elements, CountElements(nodes))
		})
	}
}

func TestIsVoidElement(t *testing.T) {
	for _, name := range []string{"br", "HR", "img", "input", "meta", "link", "col", "area", "base", "embed", "source", "track", "wbr"} {
		assert.True(t, IsVoidElement(name), name)
	}
	for _, name := range []string{"div", "param", "p", ""} {
		assert.False(t, IsVoidElement(name), name)
	}
}

func TestFindAllAndTextContent(t *testing.T) {
	nodes := Parse(`<ul><li>a</li><li>b <i>c</i></li></ul>`)

	items := FindAll(nodes, "LI")
	require.Len(t, items, 2)
	assert.Equal(t, "a", TextContent(items[0]))
	assert.Equal(t, "b c", TextContent(items[1]))
}

func TestWalk_SkipChildren(t *testing.T) {
	nodes := Parse(`<a><b></b></a><c></c>`)

	var visited []string
	Walk(nodes, func(n Node, _ int) bool {
		e := n.(*Element)
		visited = append(visited, e.TagName)
		return e.TagName != "a"
	})
	assert.Equal(t, []string{"a", "c"}, visited)
}
