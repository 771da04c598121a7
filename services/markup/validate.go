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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// DefaultMaxFileSize is the default document size limit (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// checkContent runs the checks shared by every parser before any scanning.
func checkContent(ctx context.Context, content []byte, maxSize int, filePath string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return NewParseError(filePath, 0, 0, "canceled before start", fmt.Errorf("%w: %w", ErrContextCanceled, err))
	}
	if maxSize > 0 && len(content) > maxSize {
		msg := fmt.Sprintf("%d bytes exceeds limit of %d", len(content), maxSize)
		return NewParseError(filePath, 0, 0, msg, ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		line, col := firstInvalidUTF8(content)
		return NewParseError(filePath, line, col, "content is not valid UTF-8", ErrInvalidContent)
	}
	return nil
}

// checkCanceled reports cancellation that happened while parsing.
func checkCanceled(ctx context.Context, filePath string) error {
	if err := ctx.Err(); err != nil {
		return NewParseError(filePath, 0, 0, "canceled during parse", fmt.Errorf("%w: %w", ErrContextCanceled, err))
	}
	return nil
}

// firstInvalidUTF8 returns the 1-indexed line and column of the first
// invalid UTF-8 sequence in b.
func firstInvalidUTF8(b []byte) (line, col int) {
	line, col = 1, 1
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return line, col
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		b = b[size:]
	}
	return line, col
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
