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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/render"
)

const stdinPath = "-"

// input is a document read from a file or stdin.
type input struct {
	path     string
	content  []byte
	language markup.Language
}

// readInput reads path, or stdin when path is "-". The language comes
// from langFlag when set, otherwise from the file extension.
func readInput(cmd *cobra.Command, path, langFlag string) (input, error) {
	in := input{path: path}

	var err error
	if path == stdinPath {
		in.path = "<stdin>"
		in.content, err = io.ReadAll(cmd.InOrStdin())
	} else {
		in.content, err = os.ReadFile(path)
	}
	if err != nil {
		return in, fmt.Errorf("read %s: %w", in.path, err)
	}

	switch {
	case langFlag != "":
		in.language, err = markup.ParseLanguage(langFlag)
		if err != nil {
			return in, err
		}
	case path == stdinPath:
		return in, fmt.Errorf("--language is required when reading stdin")
	default:
		lang, ok := markup.LanguageForPath(path)
		if !ok {
			return in, fmt.Errorf("%s: %w (use --language)", path, markup.ErrUnsupportedLanguage)
		}
		in.language = lang
	}
	return in, nil
}

// parseInput parses in with the registry parser for its language.
func (a *app) parseInput(cmd *cobra.Command, in input) (*markup.ParseResult, error) {
	parser, ok := a.registry().GetByLanguage(in.language)
	if !ok {
		return nil, fmt.Errorf("%s: %w", in.language, markup.ErrUnsupportedLanguage)
	}
	return parser.Parse(cmd.Context(), in.content, in.path)
}

// renderer returns a renderer on the command's stdout.
func renderer(cmd *cobra.Command) *render.Renderer {
	return render.New(cmd.OutOrStdout())
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
