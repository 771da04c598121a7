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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for document parsing.
var (
	tracer = otel.Tracer("markup")
	meter  = otel.Meter("markup")
)

// Metrics for parse operations.
var (
	parseLatency   metric.Float64Histogram
	parseTotal     metric.Int64Counter
	nodesExtracted metric.Int64Histogram
	parseErrors    metric.Int64Counter
	batchFiles     metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"markup_parse_duration_seconds",
			metric.WithDescription("Duration of document parse operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"markup_parse_total",
			metric.WithDescription("Total number of parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesExtracted, err = meter.Int64Histogram(
			"markup_nodes_extracted",
			metric.WithDescription("Elements or rules produced per parse"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"markup_parse_errors_total",
			metric.WithDescription("Total number of rejected documents"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		batchFiles, err = meter.Int64Counter(
			"markup_batch_files_total",
			metric.WithDescription("Files processed by batch parsing"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParseMetrics records metrics for a parse operation.
//
// Parameters:
//   - ctx: Context for metric recording
//   - language: Language being parsed ("html" or "css")
//   - duration: How long the parse took
//   - count: Elements (HTML) or rules (CSS) produced
//   - success: Whether the parse succeeded
func recordParseMetrics(ctx context.Context, language Language, duration time.Duration, count int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("language", string(language)),
		attribute.Bool("success", success),
	)

	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)

	langAttr := metric.WithAttributes(attribute.String("language", string(language)))
	if success {
		nodesExtracted.Record(ctx, int64(count), langAttr)
	} else {
		parseErrors.Add(ctx, 1, langAttr)
	}
}

// recordBatchFile counts one file handled by ParseFiles.
func recordBatchFile(ctx context.Context, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	batchFiles.Add(ctx, 1, metric.WithAttributes(attribute.Bool("failed", failed)))
}

// startParseSpan creates a span for a parse operation. The caller must call
// span.End().
func startParseSpan(ctx context.Context, language Language, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "markup.Parse",
		trace.WithAttributes(
			attribute.String("markup.language", string(language)),
			attribute.String("markup.file", filePath),
			attribute.Int("markup.content_size", contentSize),
		),
	)
}

// setParseSpanResult sets the result attributes on a parse span.
func setParseSpanResult(span trace.Span, stats Stats) {
	span.SetAttributes(
		attribute.Int("markup.tokens", stats.Tokens),
		attribute.Int("markup.elements", stats.Elements),
		attribute.Int("markup.rules", stats.Rules),
	)
}
