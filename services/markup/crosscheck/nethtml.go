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
	"errors"
	"io"

	"golang.org/x/net/html"
)

// netHTMLCounts counts start and self-closing tags with the x/net/html
// tokenizer. It uses the tokenizer rather than html.Parse because the
// tree builder inserts implied html, head and body elements.
func netHTMLCounts(content []byte) Counts {
	var counts Counts
	z := html.NewTokenizer(bytes.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				counts.Elements = -1
			}
			return counts
		case html.StartTagToken, html.SelfClosingTagToken:
			counts.Elements++
		}
	}
}
