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

import "strings"

// NodeType identifies the concrete type behind a Node.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
	CommentNode
)

// String returns the lowercase name of the node type.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Node is one entry of a parsed document: *Element, *Text or *Comment.
//
// Nodes are owned by their parent's Children slice. There are no parent
// pointers.
type Node interface {
	Type() NodeType
}

// Element is an HTML element with its attributes and children.
type Element struct {
	// TagName is the lowercase tag name.
	TagName string

	Attributes Attributes

	// Children are the element's child nodes in document order.
	Children []Node
}

// Type implements Node.
func (*Element) Type() NodeType { return ElementNode }

// Attr returns the value of the named attribute, or "" when absent.
func (e *Element) Attr(name string) string {
	v, _ := e.Attributes.Get(lowerASCII(name))
	return v
}

// Text is a run of character data.
type Text struct {
	Data string
}

// Type implements Node.
func (*Text) Type() NodeType { return TextNode }

// Comment is the content of an HTML comment.
type Comment struct {
	Data string
}

// Type implements Node.
func (*Comment) Type() NodeType { return CommentNode }

// WalkFunc is called for each node during Walk. Depth is 0 for top-level
// nodes. Returning false skips the node's children.
type WalkFunc func(n Node, depth int) bool

// Walk visits nodes in document order (pre-order).
//
// Description:
//
//	Uses an explicit stack, so arbitrarily deep trees do not grow the call
//	stack.
func Walk(nodes []Node, fn WalkFunc) {
	type entry struct {
		node  Node
		depth int
	}

	stack := make([]entry, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, entry{node: nodes[i]})
	}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(e.node, e.depth) {
			continue
		}
		el, ok := e.node.(*Element)
		if !ok {
			continue
		}
		for i := len(el.Children) - 1; i >= 0; i-- {
			stack = append(stack, entry{node: el.Children[i], depth: e.depth + 1})
		}
	}
}

// FindAll returns every element with the given tag name in document order.
func FindAll(nodes []Node, tagName string) []*Element {
	tagName = lowerASCII(tagName)
	var found []*Element
	Walk(nodes, func(n Node, _ int) bool {
		if el, ok := n.(*Element); ok && el.TagName == tagName {
			found = append(found, el)
		}
		return true
	})
	return found
}

// CountElements returns the number of elements in the forest.
func CountElements(nodes []Node) int {
	count := 0
	Walk(nodes, func(n Node, _ int) bool {
		if n.Type() == ElementNode {
			count++
		}
		return true
	})
	return count
}

// TextContent concatenates all text beneath n.
func TextContent(n Node) string {
	var sb strings.Builder
	Walk([]Node{n}, func(n Node, _ int) bool {
		if t, ok := n.(*Text); ok {
			sb.WriteString(t.Data)
		}
		return true
	})
	return sb.String()
}
