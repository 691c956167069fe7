// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package keyboard

import (
	"fmt"
	"math"
)

// WeightedPair is a position pair with a physical cost factor attached.
type WeightedPair struct {
	Pair   PosPair
	Factor float64
}

// Geometry holds the static pair tables derived from the board model.
//
// Description:
//
//	Geometry is built once per session from the lateral penalty weight and
//	then shared read-only by every scorer and search. It contains:
//	  - per-finger same-finger pairs with their distance factors
//	  - the scissor, lateral-stretch and pinky-ring pair sets
//	  - the stretch pair table plus a per-position index into it
//
// Thread Safety: Immutable after construction; safe for concurrent use.
// Callers must not modify the slices returned by the accessors.
type Geometry struct {
	lateralPenalty float64

	sameFinger [FingerCount][]WeightedPair
	positions  [FingerCount][]int

	scissors  []PosPair
	lsbs      []PosPair
	pinkyRing []PosPair

	inScissors  [PositionCount]bool
	inLSB       [PositionCount]bool
	inPinkyRing [PositionCount]bool

	stretches     []WeightedPair
	stretchByPos  [PositionCount][]int
	stretchFactor [PositionCount][PositionCount]float64
}

// NewGeometry builds the static tables for the given lateral penalty.
//
// Inputs:
//   - lateralPenalty: Multiplier applied to horizontal distance between the
//     two columns of an index finger. Must be finite and non-negative.
//
// Outputs:
//   - *Geometry: The immutable table set.
//   - error: ErrInvalidGeometry for a negative or non-finite penalty.
func NewGeometry(lateralPenalty float64) (*Geometry, error) {
	if math.IsNaN(lateralPenalty) || math.IsInf(lateralPenalty, 0) || lateralPenalty < 0 {
		return nil, fmt.Errorf("%w: lateral penalty %v", ErrInvalidGeometry, lateralPenalty)
	}

	g := &Geometry{lateralPenalty: lateralPenalty}

	for f := Finger(0); f < FingerCount; f++ {
		g.positions[f] = FingerPositions(f)
		g.sameFinger[f] = sameFingerPairs(f, g.positions[f], lateralPenalty)
	}

	g.scissors = scissorPairs()
	g.lsbs = lateralStretchPairs()
	g.pinkyRing = pinkyRingPairs()
	markMembers(&g.inScissors, g.scissors)
	markMembers(&g.inLSB, g.lsbs)
	markMembers(&g.inPinkyRing, g.pinkyRing)

	g.stretches = stretchPairs()
	for i, wp := range g.stretches {
		g.stretchByPos[wp.Pair.A] = append(g.stretchByPos[wp.Pair.A], i)
		g.stretchByPos[wp.Pair.B] = append(g.stretchByPos[wp.Pair.B], i)
		g.stretchFactor[wp.Pair.A][wp.Pair.B] = wp.Factor
		g.stretchFactor[wp.Pair.B][wp.Pair.A] = wp.Factor
	}

	return g, nil
}

// LateralPenalty returns the penalty the distance table was built with.
func (g *Geometry) LateralPenalty() float64 { return g.lateralPenalty }

// SameFingerPairs returns every pair of positions owned by f with its
// distance factor. Thumbs return nil.
func (g *Geometry) SameFingerPairs(f Finger) []WeightedPair { return g.sameFinger[f] }

// Positions returns the positions owned by f.
func (g *Geometry) Positions(f Finger) []int { return g.positions[f] }

// Scissors returns the scissor pair set.
func (g *Geometry) Scissors() []PosPair { return g.scissors }

// LateralStretches returns the lateral-stretch-bigram pair set.
func (g *Geometry) LateralStretches() []PosPair { return g.lsbs }

// PinkyRing returns the pinky-ring pair set.
func (g *Geometry) PinkyRing() []PosPair { return g.pinkyRing }

// Stretches returns every same-hand, different-finger pair with a positive
// stretch factor.
func (g *Geometry) Stretches() []WeightedPair { return g.stretches }

// StretchesAt returns indexes into Stretches() of the pairs touching pos.
func (g *Geometry) StretchesAt(pos int) []int { return g.stretchByPos[pos] }

// StretchFactor returns the stretch factor between two positions, zero when
// the pair is not a stretch.
func (g *Geometry) StretchFactor(a, b int) float64 { return g.stretchFactor[a][b] }

// AffectsScissors reports whether swapping p can change the scissor total.
func (g *Geometry) AffectsScissors(p PosPair) bool {
	return g.inScissors[p.A] || g.inScissors[p.B]
}

// AffectsLSB reports whether swapping p can change the lateral-stretch total.
func (g *Geometry) AffectsLSB(p PosPair) bool {
	return g.inLSB[p.A] || g.inLSB[p.B]
}

// AffectsPinkyRing reports whether swapping p can change the pinky-ring total.
func (g *Geometry) AffectsPinkyRing(p PosPair) bool {
	return g.inPinkyRing[p.A] || g.inPinkyRing[p.B]
}

func markMembers(mask *[PositionCount]bool, pairs []PosPair) {
	for _, p := range pairs {
		mask[p.A] = true
		mask[p.B] = true
	}
}

// sameFingerPairs enumerates all pairs of positions on one finger.
//
// The factor is (dx^2 * lateral + dy^2)^0.65 scaled by the finger's
// strength relative to the index finger.
func sameFingerPairs(f Finger, positions []int, lateralPenalty float64) []WeightedPair {
	if len(positions) < 2 {
		return nil
	}
	ratio := LI.Strength() / f.Strength()
	out := make([]WeightedPair, 0, len(positions)*(len(positions)-1)/2)
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			a, b := positions[i], positions[j]
			dx := float64(Column(a) - Column(b))
			dy := float64(Row(a) - Row(b))
			dist := math.Pow(dx*dx*lateralPenalty+dy*dy, 0.65) * ratio
			out = append(out, WeightedPair{Pair: pair(a, b), Factor: dist})
		}
	}
	return out
}

// scissorPairs lists full-row stretches between adjacent columns, the
// pinky-to-ring one-row stretches and the inner index scissors.
func scissorPairs() []PosPair {
	raw := [][2]int{
		{0, 21}, {1, 22}, {6, 27}, {7, 28}, {8, 29},
		{1, 20}, {2, 21}, {3, 22}, {8, 27}, {9, 28},
		{0, 11}, {9, 18}, {10, 21}, {19, 28},
		{2, 24}, {22, 4}, {5, 27},
	}
	return pairsOf(raw)
}

// lateralStretchPairs lists middle finger to outer index column bigrams.
func lateralStretchPairs() []PosPair {
	raw := [][2]int{
		{2, 4}, {2, 14}, {2, 24}, {12, 4}, {12, 14}, {22, 4}, {22, 14}, {22, 24},
		{5, 7}, {5, 17}, {5, 27}, {15, 7}, {15, 17}, {15, 27}, {25, 17}, {25, 27},
	}
	return pairsOf(raw)
}

// pinkyRingPairs lists every pinky column to ring column pair per hand.
func pinkyRingPairs() []PosPair {
	var out []PosPair
	for _, cols := range [][2]int{{0, 1}, {9, 8}} {
		for r1 := 0; r1 < Rows; r1++ {
			for r2 := 0; r2 < Rows; r2++ {
				out = append(out, pair(r1*Columns+cols[0], r2*Columns+cols[1]))
			}
		}
	}
	return out
}

func pairsOf(raw [][2]int) []PosPair {
	out := make([]PosPair, len(raw))
	for i, r := range raw {
		out[i] = pair(r[0], r[1])
	}
	return out
}

// neighbourOverlap is how far two adjacent fingers overlap horizontally at
// rest, in key widths.
func neighbourOverlap(f1, f2 Finger) float64 {
	if f1 > f2 {
		f1, f2 = f2, f1
	}
	switch {
	case f1 == LP && f2 == LR, f1 == RR && f2 == RP:
		return 0.8
	case f1 == LR && f2 == LM, f1 == RM && f2 == RR:
		return 0.4
	case f1 == LM && f2 == LI, f1 == RI && f2 == RM:
		return 0.1
	default:
		return 0
	}
}

// stretchPairs computes the stretch factor for every same-hand pair of
// positions played by two different fingers and keeps the positive ones.
//
// Keys are unit squares on an ortholinear grid. Each finger's reach shifts
// its vertical coordinate; fingers that would have to cross each other
// get a negative horizontal distance, which inflates the overlap term.
func stretchPairs() []WeightedPair {
	var out []WeightedPair
	for a := 0; a < PositionCount; a++ {
		for b := a + 1; b < PositionCount; b++ {
			f1, f2 := PositionFinger(a), PositionFinger(b)
			if f1 == f2 || f1.Hand() != f2.Hand() {
				continue
			}
			if s := stretch(a, b, f1, f2); s > 0.001 {
				out = append(out, WeightedPair{Pair: pair(a, b), Factor: s})
			}
		}
	}
	return out
}

func stretch(a, b int, f1, f2 Finger) float64 {
	x1, x2 := float64(Column(a)), float64(Column(b))
	y1 := float64(Row(a)) + f1.reach()
	y2 := float64(Row(b)) + f2.reach()

	overlap := neighbourOverlap(f1, f2)
	dx := math.Abs(x1 - x2)
	dy := math.Abs(y1 - y2)
	switch {
	case f1 > f2 && x1 < x2+overlap:
		dx = -dx
	case f1 < f2 && x1+overlap > x2:
		dx = -dx
	}

	fingerGap := math.Abs(float64(f1)-float64(f2)) * 1.35
	xOverlap := math.Max(0, overlap-dx*1.3+dy*0.3333)
	return math.Hypot(dx, dy) + xOverlap - fingerGap
}
