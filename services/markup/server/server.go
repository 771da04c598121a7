// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the markup parsers over HTTP.
//
// Routes live under /v1/markup. Every request gets an X-Request-ID (taken
// from the request or generated), is traced by otelgin, counted by the
// telemetry middleware and rate limited per client IP.
//
// # Routes
//
//	POST /v1/markup/html    parse an HTML document into a node tree
//	POST /v1/markup/css     parse a stylesheet into rules
//	POST /v1/markup/tokens  tokenize HTML or CSS
//	POST /v1/markup/stats   parse statistics, served from the cache
//	POST /v1/markup/match   count selector matches against a document
//	GET  /v1/markup/stream  websocket token stream
//	GET  /v1/markup/health  liveness
//	GET  /metrics           Prometheus scrape, when enabled
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/markup/pkg/logging"
	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/telemetry"
)

// Config configures a Server.
type Config struct {
	// Options are the default parse options.
	Options markup.Options

	// MaxBodyBytes caps request bodies and websocket messages.
	MaxBodyBytes int64

	// RateLimit is requests per second per client IP. Zero disables
	// limiting.
	RateLimit float64

	// Burst is the limiter bucket size.
	Burst int

	// ShutdownTimeout bounds graceful shutdown in Run.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Options:         markup.DefaultOptions(),
		MaxBodyBytes:    int64(markup.DefaultMaxFileSize),
		RateLimit:       50,
		Burst:           100,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the markup HTTP API.
//
// Thread Safety: Safe for concurrent use once constructed.
type Server struct {
	cfg      Config
	registry *markup.ParserRegistry
	cache    *cache.Cache
	logger   *logging.Logger
	metrics  *telemetry.Metrics
	limiter  *ipLimiter
	router   *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: logging.Discard().
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCache enables the summary cache for the stats route.
func WithCache(c *cache.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithMetrics sets the HTTP instruments. Default: instruments on the
// global meter provider.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds a Server and its router.
//
// Description:
//
//	The parser registry is built from cfg.Options. Without WithCache the
//	stats route parses every request. Metrics registration failures are
//	logged and leave metrics disabled rather than failing construction.
//
// Example:
//
//	srv := server.New(cfg, server.WithLogger(logger), server.WithCache(c))
//	err := srv.Run(ctx, "127.0.0.1:8787")
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		registry: markup.NewDefaultRegistry(cfg.Options),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.metrics == nil {
		m, err := telemetry.NewMetrics(otel.Meter("markup.server"))
		if err != nil {
			s.logger.Warn("http metrics disabled", "error", err)
		} else {
			s.metrics = m
		}
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.Burst)
	}

	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware("markup"),
		s.requestIDMiddleware(),
		telemetry.MetricsMiddleware(s.metrics),
		s.rateLimitMiddleware(),
	)

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	v1 := router.Group("/v1")
	RegisterRoutes(v1, s)
	return router
}

// RegisterRoutes mounts the markup routes on rg.
func RegisterRoutes(rg *gin.RouterGroup, s *Server) {
	m := rg.Group("/markup")
	{
		m.POST("/html", s.HandleHTML)
		m.POST("/css", s.HandleCSS)
		m.POST("/tokens", s.HandleTokens)
		m.POST("/stats", s.HandleStats)
		m.POST("/match", s.HandleMatch)
		m.GET("/stream", s.HandleStream)
		m.GET("/health", s.HandleHealth)
	}
}

// Handler returns the HTTP handler. Callers that never Serve must Close
// the server when done.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Close stops background work started by New. It is safe to call more
// than once. Serve closes the server when it returns.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return nil
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("markup server listening", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("markup server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
