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
	"fmt"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/layout"
)

// Cache holds the partial sums of one layout's score.
//
// A Cache describes exactly one layout. It is valid after Initialize and
// stays valid as long as every change to the layout goes through
// CommitSwap. It is not safe for concurrent use.
type Cache struct {
	usage     [kb.FingerCount]float64
	fspeed    [kb.FingerCount]float64
	scissors  float64
	lsb       float64
	pinkyRing float64
	stretch   float64
	trigrams  float64
}

// Components is the weighted breakdown of a score. Penalties are positive
// magnitudes; Total = Trigrams - the sum of every other field.
type Components struct {
	Trigrams    float64 `json:"trigrams"`
	Usage       float64 `json:"usage"`
	FingerSpeed float64 `json:"finger_speed"`
	Scissors    float64 `json:"scissors"`
	LSBs        float64 `json:"lsbs"`
	PinkyRing   float64 `json:"pinky_ring"`
	Stretches   float64 `json:"stretches"`
	Total       float64 `json:"total"`
}

// TotalScore returns the score of the layout the cache describes.
func (c *Cache) TotalScore() float64 {
	total := c.trigrams
	for f := 0; f < kb.FingerCount; f++ {
		total -= c.usage[f] + c.fspeed[f]
	}
	return total - c.scissors - c.lsb - c.pinkyRing - c.stretch
}

// Components returns the weighted breakdown the cache currently holds.
func (c *Cache) Components() Components {
	out := Components{
		Trigrams:  c.trigrams,
		Scissors:  c.scissors,
		LSBs:      c.lsb,
		PinkyRing: c.pinkyRing,
		Stretches: c.stretch,
		Total:     c.TotalScore(),
	}
	for f := 0; f < kb.FingerCount; f++ {
		out.Usage += c.usage[f]
		out.FingerSpeed += c.fspeed[f]
	}
	return out
}

// Clone returns an independent copy.
func (c *Cache) Clone() *Cache {
	out := *c
	return &out
}

// Initialize computes every partial sum of l from scratch.
func (s *Scorer) Initialize(l *layout.Layout) *Cache {
	c := &Cache{
		scissors:  s.Scissors(l),
		lsb:       s.LateralStretch(l),
		pinkyRing: s.PinkyRing(l),
		stretch:   s.Stretch(l),
		trigrams:  s.TrigramScore(l),
	}
	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		c.usage[f] = s.FingerUsage(l, f)
		c.fspeed[f] = s.FingerSpeed(l, f)
	}
	return c
}

// IsDegenerate reports whether swapping p cannot change the score of l:
// both positions hold the same character or neither character is ever
// typed.
func (s *Scorer) IsDegenerate(l *layout.Layout, p kb.PosPair) bool {
	a, b := l.Char(int(p.A)), l.Char(int(p.B))
	if a == b {
		return true
	}
	return s.model.Char(a) == 0 && s.model.Char(b) == 0
}

// EvaluateSwap returns the score l would have after swapping p, without
// changing l or c.
//
// Description:
//
//	Only the partials the swap can touch are recomputed: usage and speed
//	of the one or two fingers owning the positions, the static pair sets
//	that contain either position, the stretch pairs at either position,
//	and the scored trigrams containing either character. l is swapped in
//	place while the new partials are computed and swapped back before
//	returning, so it must not be shared with another goroutine.
//
// Inputs:
//   - l: The layout c describes.
//   - p: The swap to evaluate.
//   - c: Cache for l.
//
// Outputs:
//   - float64: Score after the swap.
//   - bool: False when the swap is degenerate (see IsDegenerate); the
//     score is then meaningless.
func (s *Scorer) EvaluateSwap(l *layout.Layout, p kb.PosPair, c *Cache) (float64, bool) {
	if s.IsDegenerate(l, p) {
		return 0, false
	}
	next := s.swapped(l, p, c)
	l.Swap(p)
	return next.TotalScore(), true
}

// CommitSwap applies p to l and brings c up to date.
func (s *Scorer) CommitSwap(l *layout.Layout, p kb.PosPair, c *Cache) {
	*c = s.swapped(l, p, c)
}

// TrySwap commits p unless it is degenerate.
//
// Outputs:
//   - error: ErrInvalidSwap when IsDegenerate(l, p); l and c are unchanged.
func (s *Scorer) TrySwap(l *layout.Layout, p kb.PosPair, c *Cache) error {
	if s.IsDegenerate(l, p) {
		return fmt.Errorf("%w: %s", ErrInvalidSwap, p)
	}
	s.CommitSwap(l, p, c)
	return nil
}

// swapped applies p to l and returns the cache of the swapped layout.
func (s *Scorer) swapped(l *layout.Layout, p kb.PosPair, c *Cache) Cache {
	next := *c
	a, b := l.Char(int(p.A)), l.Char(int(p.B))

	trigramsBefore := s.trigramsTouching(l, a, b)
	stretchBefore := s.stretchTouching(l, p)

	l.Swap(p)

	fa, fb := kb.PositionFinger(int(p.A)), kb.PositionFinger(int(p.B))
	next.usage[fa] = s.FingerUsage(l, fa)
	next.fspeed[fa] = s.FingerSpeed(l, fa)
	if fb != fa {
		next.usage[fb] = s.FingerUsage(l, fb)
		next.fspeed[fb] = s.FingerSpeed(l, fb)
	}

	if s.geometry.AffectsScissors(p) {
		next.scissors = s.Scissors(l)
	}
	if s.geometry.AffectsLSB(p) {
		next.lsb = s.LateralStretch(l)
	}
	if s.geometry.AffectsPinkyRing(p) {
		next.pinkyRing = s.PinkyRing(l)
	}

	next.stretch += s.stretchTouching(l, p) - stretchBefore
	next.trigrams += s.trigramsTouching(l, a, b) - trigramsBefore
	return next
}
