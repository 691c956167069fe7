// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring computes the fitness of a layout and keeps it current
// under single swaps.
//
// # Score
//
// The score (higher is better) is
//
//	trigrams - sum(usage) - sum(fspeed) - scissors - lsb - pinkyRing - stretch
//
// where trigrams rewards rolls, onehands and alternates and penalizes
// redirects over the top trigrams of the model, usage penalizes fingers
// above their cap, fspeed is distance-weighted same-finger bigram and
// skipgram frequency, and the remaining terms are weighted bigram
// frequency over fixed sets of awkward position pairs.
//
// # Incremental updates
//
// Score recomputes everything from scratch. A Cache holds the same score
// split into per-finger and per-term partial sums, and EvaluateSwap /
// CommitSwap recompute only the partials a swap can touch. After any
// sequence of CommitSwap calls Cache.TotalScore agrees with Score up to
// floating point rounding.
package scoring

import (
	"fmt"
	"math"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
	"github.com/AleutianAI/keyforge/services/generator/ngrams"
	"github.com/AleutianAI/keyforge/services/generator/patterns"
	"github.com/AleutianAI/keyforge/services/generator/weights"
)

// Scorer evaluates layouts against one frequency model and weight set.
//
// Thread Safety: Immutable after construction; safe for concurrent use by
// any number of searches, each with its own Layout and Cache.
type Scorer struct {
	model    *ngrams.Model
	weights  weights.Weights
	table    *patterns.Table
	geometry *kb.Geometry

	bigrams *ngrams.PairTable
	fspeed  *ngrams.PairTable
	stretch *ngrams.PairTable

	trigrams      []ngrams.Trigram
	patternWeight [patterns.Count]float64
	caps          [kb.FingerCount]float64
}

// NewScorer builds the derived tables for a model and weight set.
//
// Description:
//
//	Builds the finger geometry for the configured lateral penalty, the
//	trigram classification table and the two weighted bigram tables (one
//	scaled by fspeed, one by stretches). Only the first TrigramPrecision
//	trigrams of the model are scored.
//
// Inputs:
//   - model: Frequency model. Must not be nil.
//   - w: Weight set. Must pass Validate.
//
// Outputs:
//   - *Scorer: The scorer.
//   - error: Wraps ErrConfiguration.
func NewScorer(model *ngrams.Model, w weights.Weights) (*Scorer, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil frequency model", ErrConfiguration)
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if n := len(model.GenerationChars()); n != kb.PositionCount {
		return nil, fmt.Errorf("%w: model places %d characters on %d positions", ErrConfiguration, n, kb.PositionCount)
	}
	geometry, err := kb.NewGeometry(w.LateralPenalty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	s := &Scorer{
		model:    model,
		weights:  w,
		table:    patterns.NewTable(),
		geometry: geometry,
		bigrams:  model.Bigrams(),
		fspeed:   model.WeightedBigrams(w.SkipRatios(), w.FSpeed),
		stretch:  model.WeightedBigrams(w.SkipRatios(), w.Stretches),
	}

	trigrams := model.Trigrams()
	if len(trigrams) > w.TrigramPrecision {
		trigrams = trigrams[:w.TrigramPrecision]
	}
	s.trigrams = trigrams

	s.patternWeight[patterns.Inroll] = w.Inrolls
	s.patternWeight[patterns.Outroll] = w.Outrolls
	s.patternWeight[patterns.Onehand] = w.Onehands
	s.patternWeight[patterns.Alternate] = w.Alternates
	s.patternWeight[patterns.AlternateSfs] = w.AlternatesSfs
	s.patternWeight[patterns.Redirect] = -w.Redirects
	s.patternWeight[patterns.RedirectSfs] = -w.RedirectsSfs
	s.patternWeight[patterns.BadRedirect] = -w.BadRedirects
	s.patternWeight[patterns.BadRedirectSfs] = -w.BadRedirectsSfs

	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		s.caps[f] = w.UsageCap(f)
	}
	return s, nil
}

// Model returns the frequency model.
func (s *Scorer) Model() *ngrams.Model { return s.model }

// Weights returns the weight set.
func (s *Scorer) Weights() weights.Weights { return s.weights }

// Geometry returns the finger geometry.
func (s *Scorer) Geometry() *kb.Geometry { return s.geometry }

// Patterns returns the trigram classification table.
func (s *Scorer) Patterns() *patterns.Table { return s.table }

// Score fully recomputes the fitness of l.
func (s *Scorer) Score(l *layout.Layout) float64 {
	total := s.TrigramScore(l)
	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		total -= s.FingerUsage(l, f) + s.FingerSpeed(l, f)
	}
	return total - s.Scissors(l) - s.LateralStretch(l) - s.PinkyRing(l) - s.Stretch(l)
}

// TrigramScore is the weighted sum of trigram categories over the scored
// trigrams. Positive categories add, redirects subtract.
func (s *Scorer) TrigramScore(l *layout.Layout) float64 {
	total := 0.0
	for _, t := range s.trigrams {
		total += t.Freq * s.patternWeight[l.Pattern(s.table, t.Chars)]
	}
	return total
}

// fingerShare is the total character frequency typed by f.
func (s *Scorer) fingerShare(l *layout.Layout, f kb.Finger) float64 {
	share := 0.0
	for _, pos := range s.geometry.Positions(f) {
		share += s.model.Char(l.Char(pos))
	}
	return share
}

// FingerUsage is the over-capacity penalty of finger f.
func (s *Scorer) FingerUsage(l *layout.Layout, f kb.Finger) float64 {
	return math.Max(0, s.fingerShare(l, f)-s.caps[f]) * s.weights.MaxFingerUse.Penalty
}

// FingerSpeed is the distance-weighted same-finger cost of finger f.
func (s *Scorer) FingerSpeed(l *layout.Layout, f kb.Finger) float64 {
	total := 0.0
	for _, wp := range s.geometry.SameFingerPairs(f) {
		total += s.fspeed.Both(l.Char(int(wp.Pair.A)), l.Char(int(wp.Pair.B))) * wp.Factor
	}
	return total
}

func (s *Scorer) pairSet(l *layout.Layout, pairs []kb.PosPair) float64 {
	total := 0.0
	for _, p := range pairs {
		total += s.bigrams.Both(l.Char(int(p.A)), l.Char(int(p.B)))
	}
	return total
}

// Scissors is the weighted bigram frequency over scissor pairs.
func (s *Scorer) Scissors(l *layout.Layout) float64 {
	return s.pairSet(l, s.geometry.Scissors()) * s.weights.Scissors
}

// LateralStretch is the weighted bigram frequency over lateral stretch pairs.
func (s *Scorer) LateralStretch(l *layout.Layout) float64 {
	return s.pairSet(l, s.geometry.LateralStretches()) * s.weights.LSBs
}

// PinkyRing is the weighted bigram frequency over pinky-ring pairs.
func (s *Scorer) PinkyRing(l *layout.Layout) float64 {
	return s.pairSet(l, s.geometry.PinkyRing()) * s.weights.PinkyRing
}

// Stretch is the stretch-factor weighted cost of every stretch pair.
func (s *Scorer) Stretch(l *layout.Layout) float64 {
	total := 0.0
	for _, wp := range s.geometry.Stretches() {
		total += s.stretchPair(l, wp)
	}
	return total
}

func (s *Scorer) stretchPair(l *layout.Layout, wp kb.WeightedPair) float64 {
	return s.stretch.Both(l.Char(int(wp.Pair.A)), l.Char(int(wp.Pair.B))) * wp.Factor
}

// stretchTouching sums the stretch cost of every pair touching p.
func (s *Scorer) stretchTouching(l *layout.Layout, p kb.PosPair) float64 {
	all := s.geometry.Stretches()
	total := 0.0
	for _, i := range s.geometry.StretchesAt(int(p.A)) {
		total += s.stretchPair(l, all[i])
	}
	for _, i := range s.geometry.StretchesAt(int(p.B)) {
		if all[i].Pair.Contains(int(p.A)) {
			continue
		}
		total += s.stretchPair(l, all[i])
	}
	return total
}

// trigramsTouching sums the weighted contribution of every scored trigram
// that uses character a or b.
func (s *Scorer) trigramsTouching(l *layout.Layout, a, b uint8) float64 {
	limit := int32(len(s.trigrams))
	total := 0.0
	for _, i := range s.model.TrigramsWith(a) {
		if i >= limit {
			break
		}
		t := s.trigrams[i]
		total += t.Freq * s.patternWeight[l.Pattern(s.table, t.Chars)]
	}
	if b == a {
		return total
	}
	for _, i := range s.model.TrigramsWith(b) {
		if i >= limit {
			break
		}
		t := s.trigrams[i]
		if t.Contains(a) {
			continue
		}
		total += t.Freq * s.patternWeight[l.Pattern(s.table, t.Chars)]
	}
	return total
}
