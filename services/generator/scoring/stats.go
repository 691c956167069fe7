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
	"sort"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
	"github.com/AleutianAI/keyforge/services/generator/patterns"
)

// Stats is an unweighted description of a layout for reporting. Every
// frequency is a share of its table (1.0 = 100%).
type Stats struct {
	// SFB is the share of bigrams typed with one finger on two keys.
	SFB float64 `json:"sfb"`

	// DSFB holds the same measure over skipgrams of depth 1, 2 and 3.
	DSFB [3]float64 `json:"dsfb"`

	// FingerUsage is the share of characters typed by each finger.
	FingerUsage [kb.FingerCount]float64 `json:"finger_usage"`

	// FingerSpeed is the weighted same-finger cost of each finger, as scored.
	FingerSpeed [kb.FingerCount]float64 `json:"finger_speed"`

	Scissors  float64 `json:"scissors"`
	LSBs      float64 `json:"lsbs"`
	PinkyRing float64 `json:"pinky_ring"`

	// Trigrams is the share of scored trigram frequency in each category.
	Trigrams [patterns.Count]float64 `json:"trigrams"`

	Score      float64    `json:"score"`
	Components Components `json:"components"`
}

// Stats describes l over every table of the model.
func (s *Scorer) Stats(l *layout.Layout) Stats {
	var st Stats

	dsfb := [3]float64{}
	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		for _, wp := range s.geometry.SameFingerPairs(f) {
			a, b := l.Char(int(wp.Pair.A)), l.Char(int(wp.Pair.B))
			st.SFB += s.bigrams.Both(a, b)
			for d := 0; d < 3; d++ {
				dsfb[d] += s.model.Skipgram(d+1, a, b) + s.model.Skipgram(d+1, b, a)
			}
		}
		st.FingerUsage[f] = s.fingerShare(l, f)
		st.FingerSpeed[f] = s.FingerSpeed(l, f)
	}
	st.DSFB = dsfb

	st.Scissors = s.pairSet(l, s.geometry.Scissors())
	st.LSBs = s.pairSet(l, s.geometry.LateralStretches())
	st.PinkyRing = s.pairSet(l, s.geometry.PinkyRing())

	for _, t := range s.trigrams {
		st.Trigrams[l.Pattern(s.table, t.Chars)] += t.Freq
	}

	st.Components = s.Initialize(l).Components()
	st.Score = st.Components.Total
	return st
}

// PairShare is one character pair and its combined frequency in both
// directions.
type PairShare struct {
	Pair string  `json:"pair"`
	Freq float64 `json:"freq"`
}

// WorstSameFinger lists the n most frequent same-finger bigrams of l, most
// frequent first. n <= 0 lists all of them.
func (s *Scorer) WorstSameFinger(l *layout.Layout, n int) []PairShare {
	index := s.model.Index()
	var out []PairShare
	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		for _, wp := range s.geometry.SameFingerPairs(f) {
			a, b := l.Char(int(wp.Pair.A)), l.Char(int(wp.Pair.B))
			freq := s.bigrams.Both(a, b)
			if freq == 0 {
				continue
			}
			out = append(out, PairShare{Pair: index.Decode([]uint8{a, b}), Freq: freq})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Freq != out[j].Freq {
			return out[i].Freq > out[j].Freq
		}
		return out[i].Pair < out[j].Pair
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
