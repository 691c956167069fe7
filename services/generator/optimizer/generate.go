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
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
)

// Generate optimizes one random layout of the generation characters.
func (o *Optimizer) Generate(rng *rand.Rand) (Result, error) {
	l, err := layout.Random(o.scorer.Model().GenerationChars(), rng)
	if err != nil {
		return Result{}, err
	}
	cache := o.scorer.Initialize(l)
	res := o.Optimize(l, cache, o.swaps, true)
	layoutsGenerated.WithLabelValues(modeGenerate).Inc()
	return res, nil
}

// GenerateWithPins reshuffles the unpinned positions of base and optimizes
// them with every pinned character held in place. Column refinement is
// skipped when pins are given. base is not modified.
func (o *Optimizer) GenerateWithPins(base *layout.Layout, pins []int, rng *rand.Rand) (Result, error) {
	candidates, err := kb.PinnedSwaps(pins)
	if err != nil {
		return Result{}, err
	}
	l, err := layout.RandomPinned(base, pins, rng)
	if err != nil {
		return Result{}, err
	}
	cache := o.scorer.Initialize(l)
	res := o.Optimize(l, cache, candidates, len(pins) == 0)
	layoutsGenerated.WithLabelValues(modePinned).Inc()
	return res, nil
}

// GenerateMany runs count independent Generate calls in parallel and
// returns them sorted by descending score.
//
// Description:
//
//	Tasks run on an errgroup bounded by Config.Workers. Task i draws from
//	its own PCG stream seeded with (seed, i), so a fixed Config.Seed
//	reproduces the batch regardless of scheduling. Cancelling ctx stops
//	tasks that have not started yet; running tasks finish.
//
// Outputs:
//   - []Result: count results, best first.
//   - error: ctx.Err() if cancelled, or the first task error.
func (o *Optimizer) GenerateMany(ctx context.Context, count int) ([]Result, error) {
	return o.batch(ctx, modeGenerate, count, func(rng *rand.Rand) (Result, error) {
		return o.Generate(rng)
	})
}

// GenerateManyWithPins runs count GenerateWithPins calls from base in
// parallel and returns them sorted by descending score.
func (o *Optimizer) GenerateManyWithPins(ctx context.Context, base *layout.Layout, pins []int, count int) ([]Result, error) {
	if _, err := kb.PinMask(pins); err != nil {
		return nil, err
	}
	return o.batch(ctx, modePinned, count, func(rng *rand.Rand) (Result, error) {
		return o.GenerateWithPins(base, pins, rng)
	})
}

func (o *Optimizer) seed() uint64 {
	if o.cfg.Seed != 0 {
		return o.cfg.Seed
	}
	return rand.Uint64()
}

func (o *Optimizer) workers() int {
	if o.cfg.Workers > 0 {
		return o.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o *Optimizer) batch(ctx context.Context, mode string, count int, task func(*rand.Rand) (Result, error)) ([]Result, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrConfiguration, count)
	}
	ctx, span := startSpan(ctx, "Optimizer.batch",
		attribute.String("optimizer.mode", mode),
		attribute.Int("optimizer.count", count),
	)
	defer span.End()

	start := time.Now()
	seed := o.seed()
	results := make([]Result, count)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			res, err := task(rand.New(rand.NewPCG(seed, uint64(i))))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	elapsed := time.Since(start)
	generateDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	bestScore.WithLabelValues(mode).Set(results[0].Score)
	span.SetAttributes(attribute.Float64("optimizer.best_score", results[0].Score))
	o.logger.Info("batch finished",
		slog.String("mode", mode),
		slog.Int("count", count),
		slog.Uint64("seed", seed),
		slog.Float64("best_score", results[0].Score),
		slog.Duration("elapsed", elapsed),
	)
	return results, nil
}

// Step reports the state of Iterate after each pin.
type Step struct {
	Index  int
	Pinned []int
	Best   Result
}

// Iterate refines base by pinning one character per step.
//
// Description:
//
//	Each step optimizes BatchSize reshuffles of the current best with the
//	pins collected so far and keeps the best result. The position of the
//	next most frequent generation character in that result is then
//	pinned. Early steps search almost freely; later steps only rearrange
//	the rarest characters around a fixed core. The result never scores
//	below base.
//
// Inputs:
//   - ctx: Cancels between and inside steps.
//   - base: Starting layout. Not modified.
//   - cfg: Step count and batch size.
//   - onStep: Optional progress callback, called after every step.
//
// Outputs:
//   - Result: Best layout found.
//   - error: Invalid cfg, cancellation or a batch failure.
func (o *Optimizer) Iterate(ctx context.Context, base *layout.Layout, cfg IterateConfig, onStep func(Step)) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	ctx, span := startSpan(ctx, "Optimizer.Iterate",
		attribute.Int("optimizer.steps", cfg.Steps),
		attribute.Int("optimizer.batch_size", cfg.BatchSize),
	)
	defer span.End()

	order := o.frequencyOrder()
	current := base.Clone()
	best := Result{Layout: current, Score: o.scorer.Score(current)}
	pins := make([]int, 0, cfg.Steps)

	for i := 0; i < cfg.Steps && i < len(order); i++ {
		results, err := o.GenerateManyWithPins(ctx, best.Layout, pins, cfg.BatchSize)
		if err != nil {
			span.RecordError(err)
			return best, err
		}
		if results[0].Score > best.Score {
			best = results[0]
		}
		layoutsGenerated.WithLabelValues(modeIterate).Inc()

		pos := positionOf(best.Layout, order[i])
		if pos >= 0 {
			pins = append(pins, pos)
		}
		o.logger.Debug("iterate step",
			slog.Int("step", i+1),
			slog.Int("pinned", len(pins)),
			slog.Float64("best_score", best.Score),
		)
		if onStep != nil {
			onStep(Step{Index: i, Pinned: append([]int(nil), pins...), Best: best})
		}
	}
	bestScore.WithLabelValues(modeIterate).Set(best.Score)
	return best, nil
}

// frequencyOrder lists the generation characters, most frequent first.
func (o *Optimizer) frequencyOrder() []uint8 {
	model := o.scorer.Model()
	chars := model.GenerationChars()
	sort.SliceStable(chars, func(i, j int) bool {
		return model.Char(chars[i]) > model.Char(chars[j])
	})
	return chars
}

func positionOf(l *layout.Layout, c uint8) int {
	for pos := 0; pos < kb.PositionCount; pos++ {
		if l.Char(pos) == c {
			return pos
		}
	}
	return -1
}
