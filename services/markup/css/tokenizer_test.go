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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(input string) []Token {
	var toks []Token
	for tok := range NewTokenizer(input).All() {
		toks = append(toks, tok)
	}
	return toks
}

// kinds strips spans so tests can compare type and payload only.
func kinds(toks []Token) []string {
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.String()
	}
	return out
}

func TestTokenizer_Basics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "rule",
			input: "div.a>p{color:red}",
			want: []string{
				"ident(div)", "delim(.)", "ident(a)", "delim(>)", "ident(p)", "delim({)",
				"ident(color)", "delim(:)", "ident(red)", "delim(})",
			},
		},
		{
			name:  "whitespace collapses",
			input: "a \n\t b",
			want:  []string{"ident(a)", `whitespace(" \n\t ")`, "ident(b)"},
		},
		{
			name:  "numbers",
			input: "10 -2.5 +3 .5 -.25",
			want: []string{
				"number(10)", `whitespace(" ")`, "number(-2.5)", `whitespace(" ")`,
				"number(+3)", `whitespace(" ")`, "number(.5)", `whitespace(" ")`, "number(-.25)",
			},
		},
		{
			name:  "dimension and percentage",
			input: "12px 50% 1.5em",
			want:  []string{"dimension(12px)", `whitespace(" ")`, "percentage(50%)", `whitespace(" ")`, "dimension(1.5em)"},
		},
		{
			name:  "hash",
			input: "#fff #main-nav # x",
			want: []string{
				"hash(fff)", `whitespace(" ")`, "hash(main-nav)", `whitespace(" ")`,
				"delim(#)", `whitespace(" ")`, "ident(x)",
			},
		},
		{
			name:  "vendor and custom identifiers",
			input: "-webkit-box --main-color -x",
			want:  []string{"ident(-webkit-box)", `whitespace(" ")`, "ident(--main-color)", `whitespace(" ")`, "ident(-x)"},
		},
		{
			name:  "strings",
			input: `"a b" 'it\'s'`,
			want:  []string{`string("a b")`, `whitespace(" ")`, `string("it\\'s")`},
		},
		{
			name:  "comment",
			input: "/* hi */a",
			want:  []string{`comment(" hi ")`, "ident(a)"},
		},
		{
			name:  "at keyword",
			input: "@media @",
			want:  []string{"at_keyword(media)", `whitespace(" ")`, "delim(@)"},
		},
		{
			name:  "function",
			input: "rgba(0,0,0,.5)",
			want: []string{
				"ident(rgba)", "delim(()", "number(0)", "delim(,)", "number(0)", "delim(,)",
				"number(0)", "delim(,)", "number(.5)", "delim())",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(collect(tt.input)))
		})
	}
}

func TestTokenizer_NumericValues(t *testing.T) {
	toks := collect("-1.5em")
	require.Len(t, toks, 1)
	assert.Equal(t, DimensionToken, toks[0].Type)
	assert.Equal(t, -1.5, toks[0].Value)
	assert.Equal(t, "em", toks[0].Unit)
	assert.Equal(t, "-1.5", toks[0].Text)

	toks = collect("25%")
	require.Len(t, toks, 1)
	assert.Equal(t, 25.0, toks[0].Value)
}

func TestTokenizer_URL(t *testing.T) {
	tests := []struct {
		input string
		text  string
		quote byte
	}{
		{input: `url(img/a.png)`, text: "img/a.png"},
		{input: `URL(  spaced.png  )`, text: "spaced.png"},
		{input: `url("quoted (1).png")`, text: "quoted (1).png", quote: '"'},
		{input: `url('single.png' )`, text: "single.png", quote: '\''},
		{input: `url(data:image/png;base64,AAAA{}==)`, text: "data:image/png;base64,AAAA{}=="},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := collect(tt.input)
			require.Len(t, toks, 1)
			assert.Equal(t, URLToken, toks[0].Type)
			assert.Equal(t, tt.text, toks[0].Text)
			assert.Equal(t, tt.quote, toks[0].Quote)
			assert.Equal(t, len(tt.input), toks[0].End)
		})
	}
}

func TestTokenizer_Unterminated(t *testing.T) {
	toks := collect("a /* open")
	require.Len(t, toks, 3)
	assert.Equal(t, CommentToken, toks[2].Type)
	assert.Equal(t, " open", toks[2].Text)

	toks = collect(`"open`)
	require.Len(t, toks, 1)
	assert.Equal(t, StringToken, toks[0].Type)
	assert.Equal(t, "open", toks[0].Text)
	assert.Equal(t, 5, toks[0].End)

	toks = collect(`url(open`)
	require.Len(t, toks, 1)
	assert.Equal(t, "open", toks[0].Text)
}

func TestTokenizer_SpansCoverInput(t *testing.T) {
	input := `@media screen{.x>#y::before{content:"\"";margin:-1px 2% url(a.png)}}/*c*/`
	pos := 0
	for _, tok := range collect(input) {
		assert.Equal(t, pos, tok.Start, tok.String())
		pos = tok.End
	}
	assert.Equal(t, len(input), pos)
}

func TestTokenizer_EscapedIdentifier(t *testing.T) {
	toks := collect(`.sm\:p-4`)
	require.Len(t, toks, 2)
	assert.Equal(t, `sm\:p-4`, toks[1].Text)
}

func TestTokenizer_Idempotent(t *testing.T) {
	input := `body { margin: 0; font: 12px/1.5 "Helvetica Neue", sans-serif; }`
	assert.Equal(t, collect(input), collect(input))
}

func TestTokenizer_NextAfterExhaustionPanics(t *testing.T) {
	tz := NewTokenizer("")
	_, ok := tz.Next()
	require.False(t, ok)
	assert.True(t, tz.Done())
	assert.Panics(t, func() { tz.Next() })
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "at_keyword", AtKeywordToken.String())
	assert.Equal(t, "token_type(99)", TokenType(99).String())
}
