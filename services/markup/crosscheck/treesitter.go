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
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	tscss "github.com/smacker/go-tree-sitter/css"
	tshtml "github.com/smacker/go-tree-sitter/html"
)

// Tree-sitter node types.
const (
	tsStartTag        = "start_tag"
	tsSelfClosingTag  = "self_closing_tag"
	tsErroneousEndTag = "erroneous_end_tag"
	tsRuleSet         = "rule_set"
	tsBlock           = "block"
	tsDeclaration     = "declaration"
	tsStylesheet      = "stylesheet"
	tsError           = "ERROR"
)

func parseTree(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree, nil
}

// visit walks the tree in pre-order with an explicit stack. fn returns
// false to skip a node's children.
func visit(root *sitter.Node, fn func(n *sitter.Node) bool) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}
	}
}

// treeSitterHTML counts elements (one start or self-closing tag each)
// and erroneous end tags.
func treeSitterHTML(ctx context.Context, content []byte) (Counts, bool, error) {
	tree, err := parseTree(ctx, tshtml.GetLanguage(), content)
	if err != nil {
		return Counts{}, false, err
	}
	defer tree.Close()

	var counts Counts
	root := tree.RootNode()
	visit(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case tsStartTag, tsSelfClosingTag:
			counts.Elements++
			return false
		case tsErroneousEndTag:
			counts.StrayEndTags++
			return false
		}
		return true
	})
	return counts, root.HasError(), nil
}

// treeSitterCSS counts rule sets that are direct children of the
// stylesheet and the declarations in their blocks.
func treeSitterCSS(ctx context.Context, content []byte) (Counts, bool, error) {
	tree, err := parseTree(ctx, tscss.GetLanguage(), content)
	if err != nil {
		return Counts{}, false, err
	}
	defer tree.Close()

	var counts Counts
	root := tree.RootNode()
	if root.Type() != tsStylesheet {
		return counts, true, nil
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != tsRuleSet {
			continue
		}
		counts.Rules++
		for j := 0; j < int(child.ChildCount()); j++ {
			block := child.Child(j)
			if block.Type() != tsBlock {
				continue
			}
			for k := 0; k < int(block.ChildCount()); k++ {
				if block.Child(k).Type() == tsDeclaration {
					counts.Declarations++
				}
			}
		}
	}
	return counts, root.HasError(), nil
}
