// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/keyforge/services/generator/fixtures"
	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
	"github.com/AleutianAI/keyforge/services/generator/ngrams"
	"github.com/AleutianAI/keyforge/services/generator/patterns"
	"github.com/AleutianAI/keyforge/services/generator/weights"
)

func buildModel(t *testing.T, tables map[string]map[string]float64, precision int) *ngrams.Model {
	t.Helper()
	model, err := ngrams.Build(ngrams.NewRaw("test", tables), []rune(fixtures.Qwerty), precision)
	require.NoError(t, err)
	return model
}

func qwertyScorer(t *testing.T) (*Scorer, *layout.Layout) {
	t.Helper()
	model := buildModel(t, fixtures.QwertySynthetic(), 1000)
	s, err := NewScorer(model, weights.Default())
	require.NoError(t, err)
	l, err := layout.Parse(model.Index(), fixtures.Qwerty)
	require.NoError(t, err)
	return s, l
}

// assertClose compares scores with a relative tolerance.
func assertClose(t *testing.T, want, got float64, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want, got, 1e-7*math.Max(1, math.Abs(want)), msgAndArgs...)
}

func TestNewScorer_Errors(t *testing.T) {
	_, err := NewScorer(nil, weights.Default())
	assert.ErrorIs(t, err, ErrConfiguration)

	model := buildModel(t, fixtures.QwertySynthetic(), 1000)
	w := weights.Default()
	w.FSpeed = -1
	_, err = NewScorer(model, w)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, weights.ErrInvalidWeights)
}

// The synthetic corpus makes every term of the QWERTY score computable by
// hand: "ed"/"de" share the left middle finger one row apart, the index
// fingers and pinkies each carry more than their cap, and "the" alternates.
func TestScore_QwertyByHand(t *testing.T) {
	s, l := qwertyScorer(t)

	middle := math.Pow(1, 0.65) * kb.LI.Strength() / kb.LM.Strength()
	fspeed := 0.5 * 8 * middle

	assert.InDelta(t, fspeed, s.FingerSpeed(l, kb.LM), 1e-12)
	assert.Zero(t, s.FingerSpeed(l, kb.RI))

	assert.InDelta(t, 0.05, s.FingerUsage(l, kb.LI), 1e-12)
	assert.InDelta(t, 0.025, s.FingerUsage(l, kb.LP), 1e-12)
	assert.Zero(t, s.FingerUsage(l, kb.LR))
	assert.Zero(t, s.FingerUsage(l, kb.LM))

	assert.Zero(t, s.Scissors(l))
	assert.Zero(t, s.LateralStretch(l))
	assert.Zero(t, s.PinkyRing(l))
	assert.Zero(t, s.Stretch(l))
	assert.InDelta(t, 0.7, s.TrigramScore(l), 1e-12)

	want := 0.7 - 0.15 - fspeed
	assert.InDelta(t, want, s.Score(l), 1e-9)
	assert.InDelta(t, -4.0333333, s.Score(l), 1e-6)
	assert.InDelta(t, want, s.Initialize(l).TotalScore(), 1e-9)
}

func TestStats_Qwerty(t *testing.T) {
	s, l := qwertyScorer(t)
	st := s.Stats(l)

	assert.InDelta(t, 0.5, st.SFB, 1e-12)
	assert.Equal(t, [3]float64{}, st.DSFB)
	assert.InDelta(t, 0.2, st.FingerUsage[kb.LI], 1e-12)
	assert.InDelta(t, 0.1, st.FingerUsage[kb.RP], 1e-12)
	assert.Zero(t, st.FingerUsage[kb.LT])
	assert.InDelta(t, 1.0, st.Trigrams[patterns.Alternate], 1e-12)
	assert.Zero(t, st.Trigrams[patterns.Inroll])
	assert.InDelta(t, s.Score(l), st.Score, 1e-12)
	assert.InDelta(t, 0.15, st.Components.Usage, 1e-12)

	worst := s.WorstSameFinger(l, 5)
	require.Len(t, worst, 1)
	assert.Equal(t, "ed", worst[0].Pair)
	assert.InDelta(t, 0.5, worst[0].Freq, 1e-12)
}

func TestScore_RedirectSfsUsesItsOwnWeight(t *testing.T) {
	tables := fixtures.QwertySynthetic()
	tables["trigrams"] = map[string]float64{"fer": 1}
	model := buildModel(t, tables, 1000)
	l, err := layout.Parse(model.Index(), fixtures.Qwerty)
	require.NoError(t, err)

	w := weights.Default()
	w.Redirects = 1
	w.RedirectsSfs = 3
	s, err := NewScorer(model, w)
	require.NoError(t, err)
	assert.InDelta(t, -3.0, s.TrigramScore(l), 1e-12)
}

func TestScore_TrigramPrecisionLimitsScoredTrigrams(t *testing.T) {
	tables := fixtures.QwertySynthetic()
	tables["trigrams"] = map[string]float64{"the": 3, "ing": 1}
	model := buildModel(t, tables, 1000)
	l, err := layout.Parse(model.Index(), fixtures.Qwerty)
	require.NoError(t, err)

	w := weights.Default()
	s, err := NewScorer(model, w)
	require.NoError(t, err)
	assert.InDelta(t, 0.75*w.Alternates+0.25*w.Inrolls, s.TrigramScore(l), 1e-12)

	w.TrigramPrecision = 1
	s, err = NewScorer(model, w)
	require.NoError(t, err)
	assert.InDelta(t, 0.75*w.Alternates, s.TrigramScore(l), 1e-12)
}

func randomScorer(t *testing.T, seed uint64, extra string, precision int) *Scorer {
	t.Helper()
	model := buildModel(t, fixtures.Random(seed, fixtures.Qwerty+extra), 100000)
	w := weights.Default()
	w.TrigramPrecision = precision
	s, err := NewScorer(model, w)
	require.NoError(t, err)
	return s
}

func TestEvaluateSwap_MatchesFullScore(t *testing.T) {
	for _, tc := range []struct {
		name      string
		seed      uint64
		extra     string
		precision int
	}{
		{"all trigrams", 1, "", 100000},
		{"truncated trigrams", 2, "", 250},
		{"unplaced characters", 3, "-'", 100000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := randomScorer(t, tc.seed, tc.extra, tc.precision)
			rng := rand.New(rand.NewPCG(tc.seed, 99))
			l, err := layout.Random(s.Model().GenerationChars(), rng)
			require.NoError(t, err)
			cache := s.Initialize(l)

			swaps := kb.PossibleSwaps()
			for i := 0; i < 200; i++ {
				p := swaps[rng.IntN(len(swaps))]
				before := l.Clone()

				got, ok := s.EvaluateSwap(l, p, cache)
				require.True(t, ok)
				require.True(t, before.Equal(l), "evaluate changed the layout")

				swapped := l.Clone()
				swapped.Swap(p)
				assertClose(t, s.Score(swapped), got, "swap %d %s", i, p)

				if rng.IntN(2) == 0 {
					s.CommitSwap(l, p, cache)
					assertClose(t, s.Score(l), cache.TotalScore(), "commit %d %s", i, p)
				}
			}

			fresh := s.Initialize(l).Components()
			held := cache.Components()
			assertClose(t, fresh.Trigrams, held.Trigrams)
			assertClose(t, fresh.Stretches, held.Stretches)
			assertClose(t, fresh.Usage, held.Usage)
			assertClose(t, fresh.FingerSpeed, held.FingerSpeed)
			assertClose(t, fresh.Scissors, held.Scissors)
			assertClose(t, fresh.LSBs, held.LSBs)
			assertClose(t, fresh.PinkyRing, held.PinkyRing)
		})
	}
}

func TestCommitSwap_Twice_RestoresScore(t *testing.T) {
	s := randomScorer(t, 5, "", 1000)
	rng := rand.New(rand.NewPCG(5, 5))
	l, err := layout.Random(s.Model().GenerationChars(), rng)
	require.NoError(t, err)
	cache := s.Initialize(l)
	start := cache.TotalScore()

	p, err := kb.NewPosPair(3, 26)
	require.NoError(t, err)
	s.CommitSwap(l, p, cache)
	s.CommitSwap(l, p, cache)
	assertClose(t, start, cache.TotalScore())
}

func TestEvaluateSwap_Degenerate(t *testing.T) {
	model := buildModel(t, fixtures.QwertySynthetic(), 1000)
	s, err := NewScorer(model, weights.Default())
	require.NoError(t, err)

	l, err := layout.Parse(model.Index(), "qwertyuiopasdfghjkl;zxcvbnm#@/")
	require.NoError(t, err)
	cache := s.Initialize(l)

	empty, err := kb.NewPosPair(27, 28)
	require.NoError(t, err)
	_, ok := s.EvaluateSwap(l, empty, cache)
	assert.False(t, ok)
	assert.ErrorIs(t, s.TrySwap(l, empty, cache), ErrInvalidSwap)

	moved, err := kb.NewPosPair(0, 27)
	require.NoError(t, err)
	_, ok = s.EvaluateSwap(l, moved, cache)
	assert.True(t, ok)
	require.NoError(t, s.TrySwap(l, moved, cache))
	assert.Equal(t, ngrams.Absent, l.Char(0))
	assertClose(t, s.Score(l), cache.TotalScore())
}

func TestEvaluateSwap_UntypedCharacters(t *testing.T) {
	tables := map[string]map[string]float64{
		"characters": {"a": 1, "s": 1},
		"bigrams":    {"as": 1},
	}
	model := buildModel(t, tables, 1000)
	s, err := NewScorer(model, weights.Default())
	require.NoError(t, err)
	l, err := layout.Parse(model.Index(), fixtures.Qwerty)
	require.NoError(t, err)
	cache := s.Initialize(l)

	qw, err := kb.NewPosPair(0, 1)
	require.NoError(t, err)
	_, ok := s.EvaluateSwap(l, qw, cache)
	assert.False(t, ok)

	qa, err := kb.NewPosPair(0, 10)
	require.NoError(t, err)
	_, ok = s.EvaluateSwap(l, qa, cache)
	assert.True(t, ok)
}
