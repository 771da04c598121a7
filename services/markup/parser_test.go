// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package markup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
)

func TestHTMLParser_Parse(t *testing.T) {
	parser := NewHTMLParser()
	content := `<!DOCTYPE html>
<html>
<head><style>h1 { color: red } @media print { h1 { color: black } }</style></head>
<body>
  <h1 style="margin: 0; COLOR: blue">Title</h1>
  <p>Body</p></span>
</body>
</html>`

	result, err := parser.Parse(context.Background(), []byte(content), "index.html")
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, LanguageHTML, result.Language)
	assert.Equal(t, "index.html", result.FilePath)
	assert.Len(t, result.Hash, 64)
	assert.Positive(t, result.ParsedAtMilli)

	assert.Equal(t, 6, result.Stats.Elements)
	assert.Equal(t, 1, result.Stats.StrayEndTags)
	assert.Equal(t, 1, result.Stats.InlineStyles)
	assert.Equal(t, 1, result.Stats.Rules)
	assert.Equal(t, 1, result.Stats.SkippedAtRules)

	require.Len(t, result.Rules, 1)
	assert.Equal(t, "h1 { color: red; }", result.Rules[0].String())
	assert.Equal(t, []css.AtRule{{Name: "media", Prelude: "print"}}, result.SkippedAtRules)

	h1 := html.FindAll(result.Nodes, "h1")
	require.Len(t, h1, 1)
	assert.Equal(t, css.Declarations{
		{Property: "margin", Value: "0"},
		{Property: "color", Value: "blue"},
	}, result.InlineStyles[h1[0]])
}

func TestHTMLParser_InlineStylesDisabled(t *testing.T) {
	parser := NewHTMLParser(WithHTMLParseInlineStyles(false))
	result, err := parser.Parse(context.Background(), []byte(`<p style="x: y"><style>a{}</style></p>`), "a.html")
	require.NoError(t, err)

	assert.Nil(t, result.InlineStyles)
	assert.Empty(t, result.Rules)
	assert.Zero(t, result.Stats.InlineStyles)
}

func TestHTMLParser_SkipWhitespace(t *testing.T) {
	content := []byte("<ul>\n  <li>a</li>\n</ul>")

	kept, err := NewHTMLParser().Parse(context.Background(), content, "a.html")
	require.NoError(t, err)
	assert.Equal(t, 3, kept.Stats.TextNodes)

	skipped, err := NewHTMLParser(WithHTMLSkipWhitespaceText(true)).Parse(context.Background(), content, "a.html")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped.Stats.TextNodes)
}

func TestCSSParser_Parse(t *testing.T) {
	parser := NewCSSParser()
	content := `.a, .b { color: red } @font-face { font-family: X } p { margin: 0 }`

	result, err := parser.Parse(context.Background(), []byte(content), "site.css")
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, LanguageCSS, result.Language)
	assert.Nil(t, result.Nodes)
	assert.Len(t, result.Rules, 2)
	assert.Equal(t, 3, result.Stats.Selectors)
	assert.Equal(t, 2, result.Stats.Declarations)
	assert.Equal(t, []css.AtRule{{Name: "font-face"}}, result.SkippedAtRules)
}

func TestParsers_EmptyContent(t *testing.T) {
	for _, p := range []Parser{NewHTMLParser(), NewCSSParser()} {
		result, err := p.Parse(context.Background(), []byte(""), "empty")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Hash)
		assert.NoError(t, result.Validate())
	}
}

func TestParsers_FileTooLarge(t *testing.T) {
	content := []byte(strings.Repeat("a", 101))

	_, err := NewHTMLParser(WithHTMLMaxFileSize(100)).Parse(context.Background(), content, "big.html")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.True(t, IsParseError(err))

	_, err = NewCSSParser(WithCSSMaxFileSize(100)).Parse(context.Background(), content, "big.css")
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestParsers_InvalidUTF8(t *testing.T) {
	content := []byte("<p>ok</p>\n<p>\xff</p>")

	_, err := NewHTMLParser().Parse(context.Background(), content, "bad.html")
	require.ErrorIs(t, err, ErrInvalidContent)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, 4, parseErr.Column)
	assert.Equal(t, "bad.html:2:4: content is not valid UTF-8", parseErr.Error())
}

func TestParsers_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTMLParser().Parse(ctx, []byte("<p>"), "a.html")
	assert.ErrorIs(t, err, ErrContextCanceled)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewCSSParser().Parse(ctx, []byte("a{}"), "a.css")
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestParsers_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	_, err := NewHTMLParser().Parse(nil, []byte("<p>"), "a.html")
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestParsers_ConcurrentUse(t *testing.T) {
	parser := NewHTMLParser()
	content := []byte(`<div><p class="x">hello</p></div>`)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := parser.Parse(context.Background(), content, "c.html")
			assert.NoError(t, err)
			assert.Equal(t, 2, result.Stats.Elements)
		}()
	}
	wg.Wait()
}

func TestParserRegistry(t *testing.T) {
	registry := NewDefaultRegistry(DefaultOptions())

	assert.Equal(t, []Language{LanguageCSS, LanguageHTML}, registry.Languages())
	assert.Equal(t, []string{".css", ".htm", ".html", ".xhtml"}, registry.Extensions())

	p, ok := registry.GetByExtension(".HTML")
	require.True(t, ok)
	assert.Equal(t, LanguageHTML, p.Language())

	p, err := registry.GetForFile("styles/site.css")
	require.NoError(t, err)
	assert.Equal(t, LanguageCSS, p.Language())

	_, err = registry.GetForFile("main.go")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	assert.True(t, registry.Supports("a.htm"))
	assert.False(t, registry.Supports("README"))

	registry.Register(nil)
	assert.Len(t, registry.Languages(), 2)
}

func TestParseLanguage(t *testing.T) {
	lang, err := ParseLanguage(" HTML ")
	require.NoError(t, err)
	assert.Equal(t, LanguageHTML, lang)

	_, err = ParseLanguage("scss")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)

	lang, ok := LanguageForPath("x/Y.CSS")
	assert.True(t, ok)
	assert.Equal(t, LanguageCSS, lang)
}

func TestWrapParseError(t *testing.T) {
	assert.Nil(t, WrapParseError(nil, "x"))

	base := errors.New("boom")
	wrapped := WrapParseError(base, "a.css")
	assert.Equal(t, "a.css: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, base)

	assert.Same(t, wrapped, WrapParseError(wrapped, "other"))
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	paths := []string{
		write("a.html", "<p>one</p>"),
		write("b.css", "a { color: red }"),
		write("c.txt", "plain"),
		filepath.Join(dir, "missing.css"),
	}

	results, err := ParseFiles(context.Background(), NewDefaultRegistry(DefaultOptions()), paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Result.Stats.Elements)
	assert.NoError(t, results[1].Err)
	assert.Len(t, results[1].Result.Rules, 1)
	assert.ErrorIs(t, results[2].Err, ErrUnsupportedLanguage)
	assert.ErrorIs(t, results[3].Err, os.ErrNotExist)

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
}

func TestParseFiles_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ParseFiles(ctx, NewDefaultRegistry(DefaultOptions()), []string{"a.html"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}
