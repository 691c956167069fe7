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

import "fmt"

// PosPair is an unordered pair of distinct positions.
//
// The zero value is not a valid pair. Values are built through NewPosPair or
// taken from the tables in this package, so A < B < PositionCount always
// holds and callers may index fixed-size arrays with A and B directly.
type PosPair struct {
	A uint8
	B uint8
}

// NewPosPair validates and normalizes a pair of positions.
//
// Inputs:
//   - a, b: Positions in [0, PositionCount). Order does not matter.
//
// Outputs:
//   - PosPair: The pair with A < B.
//   - error: ErrInvalidPosition if either position is out of range or a == b.
func NewPosPair(a, b int) (PosPair, error) {
	if a < 0 || a >= PositionCount || b < 0 || b >= PositionCount {
		return PosPair{}, fmt.Errorf("%w: pair (%d, %d)", ErrInvalidPosition, a, b)
	}
	if a == b {
		return PosPair{}, fmt.Errorf("%w: pair (%d, %d) repeats a position", ErrInvalidPosition, a, b)
	}
	return pair(a, b), nil
}

// pair builds a pair from positions already known to be valid.
func pair(a, b int) PosPair {
	if a > b {
		a, b = b, a
	}
	return PosPair{A: uint8(a), B: uint8(b)}
}

// Contains reports whether pos is one of the pair's positions.
func (p PosPair) Contains(pos int) bool {
	return int(p.A) == pos || int(p.B) == pos
}

// String renders the pair as "(a, b)".
func (p PosPair) String() string {
	return fmt.Sprintf("(%d, %d)", p.A, p.B)
}

// PossibleSwaps returns every unordered position pair, C(30, 2) = 435 of them,
// ordered by first then second position.
func PossibleSwaps() []PosPair {
	out := make([]PosPair, 0, PositionCount*(PositionCount-1)/2)
	for a := 0; a < PositionCount; a++ {
		for b := a + 1; b < PositionCount; b++ {
			out = append(out, pair(a, b))
		}
	}
	return out
}

// PinnedSwaps returns every swap whose two positions are both unpinned.
//
// Inputs:
//   - pins: Pinned positions. Duplicates are tolerated.
//
// Outputs:
//   - []PosPair: Candidate swaps that never move a pinned position.
//   - error: ErrInvalidPosition if any pin is out of range.
func PinnedSwaps(pins []int) ([]PosPair, error) {
	pinned, err := PinMask(pins)
	if err != nil {
		return nil, err
	}
	out := make([]PosPair, 0, PositionCount*(PositionCount-1)/2)
	for a := 0; a < PositionCount; a++ {
		if pinned[a] {
			continue
		}
		for b := a + 1; b < PositionCount; b++ {
			if !pinned[b] {
				out = append(out, pair(a, b))
			}
		}
	}
	return out, nil
}

// PinMask converts a pin list into a per-position membership mask.
func PinMask(pins []int) ([PositionCount]bool, error) {
	var mask [PositionCount]bool
	for _, p := range pins {
		if p < 0 || p >= PositionCount {
			return mask, fmt.Errorf("%w: pin %d", ErrInvalidPosition, p)
		}
		mask[p] = true
	}
	return mask, nil
}

// NormalizePins validates pins and returns them in ascending order without
// duplicates.
func NormalizePins(pins []int) ([]int, error) {
	mask, err := PinMask(pins)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(pins))
	for pos, pinned := range mask {
		if pinned {
			out = append(out, pos)
		}
	}
	return out, nil
}
