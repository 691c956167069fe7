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
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyforge/services/generator/layout"
	"github.com/AleutianAI/keyforge/services/generator/optimizer"
	"github.com/AleutianAI/keyforge/services/generator/results"
)

// runGenerate optimizes --count random layouts and prints the --top best.
func runGenerate(cmd *cobra.Command, opts *options) error {
	if opts.count <= 0 {
		return fmt.Errorf("%w: --count must be positive", errUsage)
	}
	s, err := openSession(cmd, opts, sessionNeeds{scorer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	res, err := s.optimizer.GenerateMany(ctx, opts.count)
	if err != nil {
		return err
	}
	views := s.record(ctx, opts, "generate", res[:clampTop(opts.top, len(res))], nil)
	return printLayouts(cmd.OutOrStdout(), opts.jsonOut, views)
}

// runImprove reshuffles the unpinned keys of a layout and optimizes it.
func runImprove(cmd *cobra.Command, opts *options, arg string) error {
	if opts.count <= 0 {
		return fmt.Errorf("%w: --count must be positive", errUsage)
	}
	var pins []int
	if opts.pins != "" {
		var err error
		if pins, err = layout.ParsePins(opts.pins); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
	}

	s, err := openSession(cmd, opts, sessionNeeds{scorer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	base, err := s.parseLayout(arg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	res, err := s.optimizer.GenerateManyWithPins(ctx, base, pins, opts.count)
	if err != nil {
		return err
	}
	views := s.record(ctx, opts, "improve", res[:clampTop(opts.top, len(res))], pins)
	return printLayouts(cmd.OutOrStdout(), opts.jsonOut, views)
}

// runIterate pins one character per step, starting from --from or from a
// freshly generated layout.
func runIterate(cmd *cobra.Command, opts *options) error {
	cfg := optimizer.IterateConfig{Steps: opts.steps, BatchSize: opts.batchSize}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	s, err := openSession(cmd, opts, sessionNeeds{scorer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	base, err := s.startLayout(opts, true)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := s.optimizer.Iterate(ctx, base, cfg, func(step optimizer.Step) {
		s.logger.Info("iterate step",
			slog.Int("step", step.Index+1),
			slog.Int("pinned", len(step.Pinned)),
			slog.Float64("best_score", step.Best.Score),
		)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	views := s.record(context.WithoutCancel(ctx), opts, "iterate", []optimizer.Result{res}, nil)
	if perr := printLayouts(cmd.OutOrStdout(), opts.jsonOut, views); perr != nil {
		return perr
	}
	return err
}

// runAnneal runs simulated annealing from --from or a random layout.
func runAnneal(cmd *cobra.Command, opts *options) error {
	cfg := optimizer.AnnealConfig{
		InitialTemperature: opts.temperature,
		CoolingRate:        opts.cooling,
		Iterations:         opts.iterations,
		Seed:               opts.seed,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	s, err := openSession(cmd, opts, sessionNeeds{scorer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	initial, err := s.startLayout(opts, false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	res, err := s.optimizer.Anneal(ctx, initial, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	views := s.record(context.WithoutCancel(ctx), opts, "anneal", []optimizer.Result{res}, nil)
	if perr := printLayouts(cmd.OutOrStdout(), opts.jsonOut, views); perr != nil {
		return perr
	}
	return err
}

// =============================================================================
// Helpers
// =============================================================================

// parseLayout reads a layout argument against the session's character set.
func (s *session) parseLayout(arg string) (*layout.Layout, error) {
	text, err := readLayoutArg(arg)
	if err != nil {
		return nil, err
	}
	l, err := layout.Parse(s.scorer.Model().Index(), text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	return l, nil
}

// startLayout returns --from when set. Otherwise it returns a random
// layout, hill climbed first when optimized is true.
func (s *session) startLayout(opts *options, optimized bool) (*layout.Layout, error) {
	if opts.from != "" {
		return s.parseLayout(opts.from)
	}
	seed := opts.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, 0))
	if optimized {
		res, err := s.optimizer.Generate(rng)
		if err != nil {
			return nil, err
		}
		return res.Layout, nil
	}
	return layout.Random(s.scorer.Model().GenerationChars(), rng)
}

// record turns results into views and, when a store is open and --save is
// set, stores each one. A failed save is logged and does not fail the
// command; the layout is still printed.
func (s *session) record(ctx context.Context, opts *options, mode string, res []optimizer.Result, pins []int) []layoutView {
	index := s.scorer.Model().Index()
	views := make([]layoutView, 0, len(res))
	for _, r := range res {
		v := layoutView{
			Layout:    r.Layout.Compact(index),
			Score:     r.Score,
			Swaps:     r.Swaps,
			Rounds:    r.Rounds,
			Exhausted: r.Exhausted,
			Pins:      pins,
		}
		if s.store != nil && opts.save {
			rec, err := s.store.Save(ctx, results.Record{
				Mode:       mode,
				Language:   s.language(),
				Layout:     v.Layout,
				Score:      r.Score,
				Pins:       pins,
				Components: s.scorer.Initialize(r.Layout).Components(),
			})
			if err != nil {
				s.logger.Warn("result not stored", slog.String("error", err.Error()))
			} else {
				v.ID = rec.ID
			}
		}
		views = append(views, v)
	}
	return views
}

// clampTop bounds a --top value to [1, n].
func clampTop(top, n int) int {
	if top < 1 {
		return 1
	}
	if top > n {
		return n
	}
	return top
}
