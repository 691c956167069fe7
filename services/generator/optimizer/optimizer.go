// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package optimizer searches for high-scoring layouts.
//
// The core search is steepest-ascent hill climbing over single swaps,
// alternated with an exhaustive permutation of the six outer columns until
// neither step improves the score. Batches of independent searches run in
// parallel; each task owns its Layout and Cache and shares only the
// immutable Scorer.
//
// Simulated annealing and iterative pinned refinement are available as
// alternative strategies.
package optimizer

import (
	"fmt"
	"log/slog"
	"math"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
	"github.com/AleutianAI/keyforge/services/generator/scoring"
)

// outerColumns are the pinky, ring and middle columns of both hands.
var outerColumns = [6]int{0, 1, 2, 7, 8, 9}

// Optimizer runs layout searches against one Scorer.
//
// Thread Safety: Safe for concurrent use. Every method works on the
// Layout and Cache it is given and never on shared state.
type Optimizer struct {
	scorer *scoring.Scorer
	cfg    Config
	swaps  []kb.PosPair
	logger *slog.Logger
}

// Result is one finished search.
type Result struct {
	Layout *layout.Layout
	Score  float64

	// Swaps is the number of swaps committed.
	Swaps int

	// Rounds is the number of climb/refine alternations.
	Rounds int

	// Exhausted is set when a cap stopped the search before it converged.
	// The layout is still the best found.
	Exhausted bool
}

// ClimbResult is the outcome of one HillClimb.
type ClimbResult struct {
	Score     float64
	Swaps     int
	Exhausted bool
}

// New creates an optimizer.
//
// Outputs:
//   - *Optimizer: The optimizer.
//   - error: Wraps ErrConfiguration for a nil scorer or invalid cfg.
func New(scorer *scoring.Scorer, cfg Config) (*Optimizer, error) {
	if scorer == nil {
		return nil, fmt.Errorf("%w: nil scorer", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		scorer: scorer,
		cfg:    cfg,
		swaps:  kb.PossibleSwaps(),
		logger: logger.With(slog.String("component", "optimizer")),
	}, nil
}

// Scorer returns the scorer the optimizer maximizes.
func (o *Optimizer) Scorer() *scoring.Scorer { return o.scorer }

// improves reports whether candidate beats current by more than rounding
// noise.
func improves(candidate, current float64) bool {
	return candidate-current > 1e-12*math.Max(1, math.Abs(current))
}

// BestSwap scans candidates and returns the one with the highest score
// after swapping, if that score beats the current one.
//
// Outputs:
//   - kb.PosPair: The best improving swap.
//   - float64: Score after that swap.
//   - bool: False when no candidate improves the score.
func (o *Optimizer) BestSwap(l *layout.Layout, cache *scoring.Cache, candidates []kb.PosPair) (kb.PosPair, float64, bool) {
	current := cache.TotalScore()
	var best kb.PosPair
	bestScore := current
	found := false
	for _, p := range candidates {
		score, ok := o.scorer.EvaluateSwap(l, p, cache)
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	if !found || !improves(bestScore, current) {
		return kb.PosPair{}, current, false
	}
	return best, bestScore, true
}

// HillClimb commits the best improving swap until none is left or
// MaxSwaps swaps have been committed.
func (o *Optimizer) HillClimb(l *layout.Layout, cache *scoring.Cache, candidates []kb.PosPair) ClimbResult {
	res := ClimbResult{Score: cache.TotalScore()}
	for {
		p, _, ok := o.BestSwap(l, cache, candidates)
		if !ok {
			break
		}
		if res.Swaps == o.cfg.MaxSwaps {
			res.Exhausted = true
			climbsExhausted.Inc()
			o.logger.Warn("hill climb hit swap cap", slog.Int("max_swaps", o.cfg.MaxSwaps))
			break
		}
		o.scorer.CommitSwap(l, p, cache)
		res.Swaps++
	}
	swapsCommitted.Add(float64(res.Swaps))
	res.Score = cache.TotalScore()
	return res
}

// ColumnRefine tries every arrangement of the six outer columns, with and
// without the two inner index columns exchanged, and keeps the best.
//
// Description:
//
//	Each of the 1440 arrangements is scored from scratch. When one beats
//	the current score l becomes that arrangement and cache is rebuilt.
//	Characters move with their columns, so this must not be used with
//	pins.
//
// Outputs:
//   - float64: Score after refinement, never lower than before.
//   - bool: True when l changed.
func (o *Optimizer) ColumnRefine(l *layout.Layout, cache *scoring.Cache) (float64, bool) {
	current := cache.TotalScore()
	bestScore := current
	var best *layout.Layout

	work := l.Clone()
	try := func() {
		if score := o.scorer.Score(work); score > bestScore && improves(score, current) {
			bestScore = score
			best = work.Clone()
		}
	}
	permuteColumns(work, try)
	work.SwapIndexes()
	try()
	permuteColumns(work, try)

	if best == nil {
		return current, false
	}
	*l = *best
	*cache = *o.scorer.Initialize(l)
	return cache.TotalScore(), true
}

// permuteColumns walks l through every permutation of the outer columns
// with Heap's algorithm, calling visit after each column swap. The
// arrangement l starts in is not visited.
func permuteColumns(l *layout.Layout, visit func()) {
	n := len(outerColumns)
	c := make([]int, n)
	for i := 1; i < n; {
		if c[i] < i {
			if i%2 == 0 {
				l.SwapColumns(outerColumns[0], outerColumns[i])
			} else {
				l.SwapColumns(outerColumns[c[i]], outerColumns[i])
			}
			visit()
			c[i]++
			i = 1
		} else {
			c[i] = 0
			i++
		}
	}
}

// Optimize alternates HillClimb and ColumnRefine until neither improves the
// score. With refine false it is a single HillClimb.
func (o *Optimizer) Optimize(l *layout.Layout, cache *scoring.Cache, candidates []kb.PosPair, refine bool) Result {
	res := Result{Layout: l}
	for res.Rounds < o.cfg.MaxRounds {
		res.Rounds++
		climb := o.HillClimb(l, cache, candidates)
		res.Swaps += climb.Swaps
		if climb.Exhausted {
			res.Exhausted = true
			break
		}
		if !refine {
			break
		}
		if _, changed := o.ColumnRefine(l, cache); !changed {
			break
		}
		if res.Rounds == o.cfg.MaxRounds {
			res.Exhausted = true
		}
	}
	res.Score = cache.TotalScore()
	return res
}
