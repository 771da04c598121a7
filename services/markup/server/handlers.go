// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/crosscheck"
	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
	"github.com/AleutianAI/markup/services/markup/telemetry"
)

const requestIDKey = "request_id"

// getOrCreateRequestID returns the request ID from the X-Request-ID header,
// generating one when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestIDKey, getOrCreateRequestID(c))
		c.Next()
	}
}

// limitBody caps the request body at MaxBodyBytes.
func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	}
}

// bind decodes the JSON body into req. It writes the error response and
// returns false on failure.
func (s *Server) bind(c *gin.Context, req any) bool {
	s.limitBody(c)
	if err := c.ShouldBindJSON(req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "Request body too large",
				Code:    "TOO_LARGE",
				Details: err.Error(),
			})
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// writeParseError maps a parse failure onto an HTTP status.
func (s *Server) writeParseError(c *gin.Context, err error) {
	requestID, _ := c.Get(requestIDKey)

	switch {
	case errors.Is(err, markup.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "Content too large", Code: "TOO_LARGE", Details: err.Error(),
		})
	case errors.Is(err, markup.ErrUnsupportedLanguage):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Error: "Unsupported language", Code: "UNSUPPORTED_LANGUAGE", Details: err.Error(),
		})
	case errors.Is(err, markup.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid content", Code: "INVALID_CONTENT", Details: err.Error(),
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 499 is nginx's client-closed-request status.
		c.JSON(499, ErrorResponse{Error: "Request canceled", Code: "CANCELED"})
	default:
		ctx := c.Request.Context()
		telemetry.RecordError(ctx, err, attribute.String("request_id", fmt.Sprint(requestID)))
		fields := append([]any{"request_id", requestID, "route", c.FullPath(), "error", err}, telemetry.LogFields(ctx)...)
		s.logger.Error("request failed", fields...)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Parse failed", Code: "INTERNAL", Details: err.Error(),
		})
	}
}

func (s *Server) parse(ctx context.Context, lang markup.Language, content []byte, path string) (*markup.ParseResult, error) {
	parser, ok := s.registry.GetByLanguage(lang)
	if !ok {
		return nil, markup.ErrUnsupportedLanguage
	}
	return parser.Parse(ctx, content, path)
}

// HandleHTML handles POST /v1/markup/html.
//
// Description:
//
//	Parses the document and returns its node tree. When inline styles
//	are enabled, elements carry their parsed style attribute and the
//	contents of <style> elements are returned as rules.
//
// Response:
//
//	200 OK: HTMLResponse
//	400 Bad Request: malformed body or invalid UTF-8
//	413 Request Entity Too Large: body or content over the limit
func (s *Server) HandleHTML(c *gin.Context) {
	var req HTMLRequest
	if !s.bind(c, &req) {
		return
	}

	var (
		result *markup.ParseResult
		err    error
	)
	if req.SkipWhitespaceText != nil {
		opts := append(s.cfg.Options.HTMLOptions(), markup.WithHTMLSkipWhitespaceText(*req.SkipWhitespaceText))
		result, err = markup.NewHTMLParser(opts...).Parse(c.Request.Context(), []byte(req.Content), req.FilePath)
	} else {
		result, err = s.parse(c.Request.Context(), markup.LanguageHTML, []byte(req.Content), req.FilePath)
	}
	if err != nil {
		s.writeParseError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewHTMLResponse(result))
}

// HandleCSS handles POST /v1/markup/css.
func (s *Server) HandleCSS(c *gin.Context) {
	var req CSSRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.parse(c.Request.Context(), markup.LanguageCSS, []byte(req.Content), req.FilePath)
	if err != nil {
		s.writeParseError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewCSSResponse(result))
}

// HandleTokens handles POST /v1/markup/tokens.
//
// Tokens are returned in source order with their byte offsets. Content
// is not validated beyond the body limit; the tokenizers accept any
// input.
func (s *Server) HandleTokens(c *gin.Context) {
	var req TokensRequest
	if !s.bind(c, &req) {
		return
	}
	lang, err := markup.ParseLanguage(req.Language)
	if err != nil {
		s.writeParseError(c, err)
		return
	}

	resp := TokensResponse{Language: lang, Tokens: []TokenDTO{}}
	emit := func(dto TokenDTO) bool {
		if req.Limit > 0 && len(resp.Tokens) == req.Limit {
			resp.Truncated = true
			return false
		}
		resp.Tokens = append(resp.Tokens, dto)
		return true
	}

	switch lang {
	case markup.LanguageHTML:
		for tok := range html.NewTokenizer(req.Content).All() {
			if !emit(HTMLTokenToDTO(tok)) {
				break
			}
		}
	case markup.LanguageCSS:
		for tok := range css.NewTokenizer(req.Content).All() {
			if !emit(CSSTokenToDTO(tok)) {
				break
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleStats handles POST /v1/markup/stats.
//
// Description:
//
//	Returns the parse summary for the content. With a cache configured,
//	summaries are keyed by language, content hash and parse options, so
//	repeated requests for the same document skip the parse.
func (s *Server) HandleStats(c *gin.Context) {
	var req StatsRequest
	if !s.bind(c, &req) {
		return
	}
	lang, err := markup.ParseLanguage(req.Language)
	if err != nil {
		s.writeParseError(c, err)
		return
	}

	ctx := c.Request.Context()
	content := []byte(req.Content)
	compute := func(ctx context.Context) (cache.Summary, error) {
		result, err := s.parse(ctx, lang, content, "")
		if err != nil {
			return cache.Summary{}, err
		}
		return cache.SummaryOf(result), nil
	}

	if s.cache == nil {
		summary, err := compute(ctx)
		if err != nil {
			s.writeParseError(c, err)
			return
		}
		c.JSON(http.StatusOK, StatsResponse{Summary: summary})
		return
	}

	key := cache.Key(lang, markup.HashContent(content), s.cfg.Options.Fingerprint())
	summary, hit, err := s.cache.GetOrCompute(ctx, key, compute)
	if err != nil {
		s.writeParseError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatsResponse{Summary: summary, Cached: hit})
}

// HandleMatch handles POST /v1/markup/match.
//
// The stylesheet is parsed and every selector is evaluated against the
// document with cascadia. Selectors cascadia cannot compile are reported
// per entry rather than failing the request.
func (s *Server) HandleMatch(c *gin.Context) {
	var req MatchRequest
	if !s.bind(c, &req) {
		return
	}

	result, err := s.parse(c.Request.Context(), markup.LanguageCSS, []byte(req.CSS), "")
	if err != nil {
		s.writeParseError(c, err)
		return
	}
	matches, err := crosscheck.MatchSelectors([]byte(req.HTML), result.Rules)
	if err != nil {
		s.writeParseError(c, err)
		return
	}
	if matches == nil {
		matches = []crosscheck.SelectorMatch{}
	}
	c.JSON(http.StatusOK, MatchResponse{Matches: matches})
}

// HandleHealth handles GET /v1/markup/health.
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   ServiceVersion,
		Languages: s.registry.Languages(),
	})
}
