// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
	"github.com/AleutianAI/markup/services/markup/server"
)

func newTokensCmd(a *app) *cobra.Command {
	var (
		language string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "tokens <file|->",
		Short: "Print the token stream of an HTML or CSS document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args[0], language)
			if err != nil {
				return err
			}
			return a.runTokens(cmd, in, limit)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "html or css (default: from the file extension)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n tokens (0 prints all)")
	return cmd
}

func (a *app) runTokens(cmd *cobra.Command, in input, limit int) error {
	a.logger.Debug("tokenizing", "path", in.path, "language", string(in.language), "bytes", len(in.content))
	src := string(in.content)

	switch in.language {
	case markup.LanguageHTML:
		var tokens []html.Token
		for tok := range html.NewTokenizer(src).All() {
			tokens = append(tokens, tok)
		}
		if a.jsonOutput {
			dtos := make([]server.TokenDTO, 0, len(tokens))
			for _, tok := range truncate(tokens, limit) {
				dtos = append(dtos, server.HTMLTokenToDTO(tok))
			}
			return writeJSON(cmd, dtos)
		}
		return renderer(cmd).HTMLTokens(truncate(tokens, limit))

	default:
		var tokens []css.Token
		for tok := range css.NewTokenizer(src).All() {
			tokens = append(tokens, tok)
		}
		if a.jsonOutput {
			dtos := make([]server.TokenDTO, 0, len(tokens))
			for _, tok := range truncate(tokens, limit) {
				dtos = append(dtos, server.CSSTokenToDTO(tok))
			}
			return writeJSON(cmd, dtos)
		}
		return renderer(cmd).CSSTokens(tokens, limit)
	}
}

// truncate returns the first limit elements of s, or all of s when limit
// is not positive.
func truncate[T any](s []T, limit int) []T {
	if limit > 0 && limit < len(s) {
		return s[:limit]
	}
	return s
}

func newHTMLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "html <file|->",
		Short: "Parse an HTML document and print its node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args[0], string(markup.LanguageHTML))
			if err != nil {
				return err
			}
			result, err := a.parseInput(cmd, in)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd, server.NewHTMLResponse(result))
			}

			r := renderer(cmd)
			if err := r.Tree(result.Nodes); err != nil {
				return err
			}
			if len(result.Rules) > 0 {
				if err := r.Rules(result.Rules); err != nil {
					return err
				}
			}
			return r.AtRules(result.SkippedAtRules)
		},
	}
}

func newCSSCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "css <file|->",
		Short: "Parse a stylesheet and print its rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args[0], string(markup.LanguageCSS))
			if err != nil {
				return err
			}
			result, err := a.parseInput(cmd, in)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd, server.NewCSSResponse(result))
			}

			r := renderer(cmd)
			if err := r.Rules(result.Rules); err != nil {
				return err
			}
			return r.AtRules(result.SkippedAtRules)
		},
	}
}
