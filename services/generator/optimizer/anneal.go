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
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/keyforge/services/generator/layout"
)

// cancelCheckInterval is how many annealing iterations run between
// context checks.
const cancelCheckInterval = 4096

// acceptProbability is the Metropolis rule for a maximized score: moves
// that do not lower the score are always taken, a drop of d is taken with
// probability exp(-d/T).
func acceptProbability(current, candidate, temperature float64) float64 {
	if candidate >= current {
		return 1
	}
	return math.Exp((candidate - current) / temperature)
}

// Anneal runs simulated annealing from initial.
//
// Description:
//
//	Every iteration proposes a uniformly random swap, evaluates it on the
//	cache and accepts it by the Metropolis rule. The temperature is
//	multiplied by CoolingRate after every iteration. The best layout ever
//	accepted is tracked separately from the wandering current one.
//	Degenerate swaps are skipped but still cool the schedule.
//
// Inputs:
//   - ctx: Checked every few thousand iterations. On cancellation the best
//     layout so far is returned together with ctx.Err().
//   - initial: Starting layout. Not modified.
//   - cfg: Schedule.
//
// Outputs:
//   - Result: Best layout seen; Score never below the initial score.
//   - error: Invalid cfg or cancellation.
func (o *Optimizer) Anneal(ctx context.Context, initial *layout.Layout, cfg AnnealConfig) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	ctx, span := startSpan(ctx, "Optimizer.Anneal",
		attribute.Int("optimizer.iterations", cfg.Iterations),
		attribute.Float64("optimizer.initial_temperature", cfg.InitialTemperature),
	)
	defer span.End()

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	start := time.Now()
	current := initial.Clone()
	cache := o.scorer.Initialize(current)
	currentScore := cache.TotalScore()
	best := Result{Layout: current.Clone(), Score: currentScore}

	temperature := cfg.InitialTemperature
	accepted := 0
	for i := 0; i < cfg.Iterations; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				span.RecordError(err)
				best.Swaps = accepted
				best.Exhausted = true
				return best, err
			}
		}

		p := o.swaps[rng.IntN(len(o.swaps))]
		candidate, ok := o.scorer.EvaluateSwap(current, p, cache)
		if ok && acceptProbability(currentScore, candidate, temperature) > rng.Float64() {
			o.scorer.CommitSwap(current, p, cache)
			currentScore = candidate
			accepted++
			if currentScore > best.Score {
				best.Layout = current.Clone()
				best.Score = currentScore
			}
		}
		temperature *= cfg.CoolingRate
	}

	// The running score carries evaluation rounding; report the exact one.
	best.Score = o.scorer.Score(best.Layout)
	best.Swaps = accepted
	swapsCommitted.Add(float64(accepted))
	layoutsGenerated.WithLabelValues(modeAnneal).Inc()
	bestScore.WithLabelValues(modeAnneal).Set(best.Score)
	span.SetAttributes(attribute.Float64("optimizer.best_score", best.Score))
	o.logger.Info("anneal finished",
		slog.Int("iterations", cfg.Iterations),
		slog.Int("accepted", accepted),
		slog.Uint64("seed", seed),
		slog.Float64("best_score", best.Score),
		slog.Duration("elapsed", time.Since(start)),
	)
	return best, nil
}
