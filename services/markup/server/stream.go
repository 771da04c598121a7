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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/css"
	"github.com/AleutianAI/markup/services/markup/html"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// StreamRequest is one document sent over the token stream.
type StreamRequest struct {
	Content string `json:"content"`
}

// HandleStream handles GET /v1/markup/stream?language=html|css.
//
// Description:
//
//	Upgrades to a websocket. Each StreamRequest read from the client is
//	tokenized and answered with one TokenDTO message per token followed
//	by a StreamDone message. The connection stays open for further
//	documents until the client closes it or the request context ends.
//
// Response:
//
//	101 Switching Protocols: stream established
//	415 Unsupported Media Type: unknown language (before upgrade)
func (s *Server) HandleStream(c *gin.Context) {
	lang, err := markup.ParseLanguage(c.Query("language"))
	if err != nil {
		s.writeParseError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	ctx := c.Request.Context()
	if s.metrics != nil {
		s.metrics.StreamsActive.Add(ctx, 1)
		defer s.metrics.StreamsActive.Add(ctx, -1)
	}
	if s.cfg.MaxBodyBytes > 0 {
		ws.SetReadLimit(s.cfg.MaxBodyBytes)
	}

	requestID, _ := c.Get(requestIDKey)
	logger := s.logger.With("request_id", requestID, "language", string(lang))
	logger.Debug("token stream opened")

	for {
		var req StreamRequest
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("token stream closed", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		count, err := streamTokens(ws, lang, req.Content)
		if err != nil {
			logger.Warn("token stream write failed", "error", err)
			return
		}
		if err := ws.WriteJSON(StreamDone{Done: true, Count: count}); err != nil {
			return
		}
	}
}

// streamTokens writes every token of content and returns the count.
func streamTokens(ws *websocket.Conn, lang markup.Language, content string) (int, error) {
	count := 0
	switch lang {
	case markup.LanguageHTML:
		for tok := range html.NewTokenizer(content).All() {
			if err := ws.WriteJSON(HTMLTokenToDTO(tok)); err != nil {
				return count, err
			}
			count++
		}
	case markup.LanguageCSS:
		for tok := range css.NewTokenizer(content).All() {
			if err := ws.WriteJSON(CSSTokenToDTO(tok)); err != nil {
				return count, err
			}
			count++
		}
	default:
		return 0, errors.New("unsupported language")
	}
	return count, nil
}
