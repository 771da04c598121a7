// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the markup service configuration from YAML.
//
// A missing file is not an error: Load returns Default with environment
// overrides applied. Every loaded configuration is checked with Validate
// before use.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/markup/pkg/logging"
	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/telemetry"
)

// Environment variables that override file values.
const (
	EnvLogLevel = "MARKUP_LOG_LEVEL"
	EnvListen   = "MARKUP_LISTEN"
	EnvCacheDir = "MARKUP_CACHE_DIR"
)

// Config is the root configuration document.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Parse     ParseConfig      `yaml:"parse"`
	Server    ServerConfig     `yaml:"server"`
	Cache     CacheConfig      `yaml:"cache"`
	Watch     WatchConfig      `yaml:"watch"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// ParseConfig configures the document parsers and batch parsing.
type ParseConfig struct {
	MaxFileSize        int  `yaml:"max_file_size" validate:"gte=0"`
	SkipWhitespaceText bool `yaml:"skip_whitespace_text"`
	ParseInlineStyles  bool `yaml:"parse_inline_styles"`
	Concurrency        int  `yaml:"concurrency" validate:"gte=0,lte=256"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`

	// RateLimit is requests per second per client IP. Zero disables
	// limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`

	MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// CacheConfig configures the parse summary cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	InMemory bool          `yaml:"in_memory"`
	Dir      string        `yaml:"dir" validate:"required_if=Enabled true InMemory false"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// WatchConfig configures the directory watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Parse: ParseConfig{
			MaxFileSize:       markup.DefaultMaxFileSize,
			ParseInlineStyles: true,
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8787",
			RateLimit:       50,
			Burst:           100,
			MaxBodyBytes:    int64(markup.DefaultMaxFileSize),
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join("~", ".markup", "cache"),
			TTL:     24 * time.Hour,
		},
		Watch:     WatchConfig{Debounce: 200 * time.Millisecond},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// DefaultPath returns ~/.markup/config.yaml, or "" without a home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".markup", "config.yaml")
}

// Load reads path over Default, applies environment overrides and
// validates the result.
//
// Description:
//
//	Fields absent from the file keep their defaults. An empty path or a
//	missing file yields the defaults. Unknown keys are rejected so that
//	typos surface instead of being ignored.
//
// Inputs:
//
//	path - YAML file path. May be empty.
//
// Outputs:
//
//	Config - The effective configuration.
//	error - Read, decode or validation failure.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("open config: %w", err)
		default:
			defer f.Close()
			dec := yaml.NewDecoder(f)
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
		c.Cache.InMemory = false
	}
	if v := os.Getenv("MARKUP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MARKUP_CONCURRENCY: %w", err)
		}
		c.Parse.Concurrency = n
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks all struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// Logger builds a logger for service from the log section.
func (c Config) Logger(service string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   c.LogLevel(),
		LogDir:  c.Log.Dir,
		Service: service,
		JSON:    c.Log.JSON,
	})
}

// ParseOptions converts the parse section to document parser options.
func (c Config) ParseOptions() markup.Options {
	return markup.Options{
		MaxFileSize:        c.Parse.MaxFileSize,
		SkipWhitespaceText: c.Parse.SkipWhitespaceText,
		ParseInlineStyles:  c.Parse.ParseInlineStyles,
	}
}

// CacheStore converts the cache section to a cache store configuration.
// A leading "~" in Dir is expanded to the home directory.
func (c Config) CacheStore(logger *logging.Logger) cache.Config {
	var cfg cache.Config
	if c.Cache.InMemory {
		cfg = cache.InMemoryConfig()
	} else {
		cfg = cache.DefaultConfig(expandHome(c.Cache.Dir))
	}
	if c.Cache.TTL > 0 {
		cfg.TTL = c.Cache.TTL
	}
	cfg.Logger = logger
	return cfg
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
