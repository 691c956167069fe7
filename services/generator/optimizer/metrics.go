// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package optimizer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("keyforge.optimizer")

// Generation modes used as metric labels.
const (
	modeGenerate = "generate"
	modePinned   = "pinned"
	modeIterate  = "iterate"
	modeAnneal   = "anneal"
)

var (
	// layoutsGenerated counts finished candidate layouts.
	// Labels: mode (generate, pinned, iterate, anneal)
	layoutsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keyforge",
		Subsystem: "optimizer",
		Name:      "layouts_generated_total",
		Help:      "Total candidate layouts optimized to completion",
	}, []string{"mode"})

	// swapsCommitted counts swaps applied by hill climbing and annealing.
	swapsCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Subsystem: "optimizer",
		Name:      "swaps_committed_total",
		Help:      "Total swaps committed to a layout",
	})

	// climbsExhausted counts hill climbs stopped by the swap cap.
	climbsExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keyforge",
		Subsystem: "optimizer",
		Name:      "climbs_exhausted_total",
		Help:      "Hill climbs that hit the swap cap before converging",
	})

	// generateDuration measures wall time of one batch.
	// Labels: mode
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "keyforge",
		Subsystem: "optimizer",
		Name:      "batch_duration_seconds",
		Help:      "Wall time of a generation batch",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"mode"})

	// bestScore is the best score produced by the most recent run.
	// Labels: mode
	bestScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "keyforge",
		Subsystem: "optimizer",
		Name:      "best_score",
		Help:      "Best score of the most recent run",
	}, []string{"mode"})
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
