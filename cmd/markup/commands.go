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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/markup/pkg/logging"
	"github.com/AleutianAI/markup/services/markup"
	"github.com/AleutianAI/markup/services/markup/config"
)

// app holds state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	jsonOutput bool

	cfg    config.Config
	logger *logging.Logger
}

// registry builds the parser registry from the loaded configuration.
func (a *app) registry() *markup.ParserRegistry {
	return markup.NewDefaultRegistry(a.cfg.ParseOptions())
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "markup",
		Short: "Tokenize and parse HTML and CSS documents",
		Long: `markup is a forgiving HTML and CSS front end. It prints token streams,
node trees and rule lists, cross-checks its output against reference
parsers, and serves the same operations over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath(), "configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		newTokensCmd(a),
		newHTMLCmd(a),
		newCSSCmd(a),
		newStatsCmd(a),
		newCheckCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel()
	if a.logLevel != "" {
		level, err = logging.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}

	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: logging.DefaultService,
		JSON:    cfg.Log.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	// Libraries that log through the slog default share our handler.
	slog.SetDefault(a.logger.Slog())
	return nil
}
