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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/markup/services/markup/cache"
	"github.com/AleutianAI/markup/services/markup/config"
	"github.com/AleutianAI/markup/services/markup/render"
	"github.com/AleutianAI/markup/services/markup/server"
	"github.com/AleutianAI/markup/services/markup/telemetry"
	"github.com/AleutianAI/markup/services/markup/watch"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parsers over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Server.Listen = listen
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	shutdown, err := telemetry.Init(ctx, a.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			a.logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	opts := []server.Option{server.WithLogger(a.logger)}
	if a.cfg.Cache.Enabled {
		c, err := cache.Open(a.cfg.CacheStore(a.logger))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer c.Close()
		opts = append(opts, server.WithCache(c))
	}

	srv := server.New(serverConfig(a.cfg), opts...)
	return srv.Run(ctx, a.cfg.Server.Listen)
}

func serverConfig(cfg config.Config) server.Config {
	return server.Config{
		Options:         cfg.ParseOptions(),
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		RateLimit:       cfg.Server.RateLimit,
		Burst:           cfg.Server.Burst,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-parse HTML and CSS files under a directory as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args[0])
		},
	}
}

func (a *app) runWatch(cmd *cobra.Command, dir string) error {
	r := render.New(cmd.OutOrStdout())
	handler := func(changes []watch.Change) {
		for _, c := range changes {
			var err error
			switch {
			case c.Removed:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", c.Path)
			case c.Err != nil:
				err = r.Failure(c.Path, c.Err)
			case a.jsonOutput:
				err = writeJSON(cmd, cache.SummaryOf(c.Result))
			default:
				err = r.Stats(c.Path, c.Result.Language, c.Result.Stats)
			}
			if err != nil {
				a.logger.Warn("write change", "path", c.Path, "error", err)
			}
		}
	}

	w, err := watch.New(dir, a.registry(), handler, watch.Options{
		Debounce:    a.cfg.Watch.Debounce,
		Concurrency: a.cfg.Parse.Concurrency,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	ctx := cmd.Context()
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration unless the file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return fmt.Errorf("no configuration path; pass --config")
			}
			if err := config.WriteDefault(a.configPath); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.configPath)
			return err
		},
	})
	return configCmd
}
