// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patterns classifies three consecutive keystrokes by the movement
// their fingers make.
//
// Classification depends only on the ordered finger triple, so every one of
// the 10^3 possible triples is classified once by NewTable and looked up in
// O(1) during search.
package patterns

import (
	"fmt"

	"github.com/AleutianAI/keyforge/services/generator/keyboard"
)

// Pattern is the movement category of a trigram.
type Pattern uint8

const (
	// Alternate is left-right-left or right-left-right with distinct outer fingers.
	Alternate Pattern = iota

	// AlternateSfs is an alternation whose first and third keys share a finger.
	AlternateSfs

	// Inroll is a same-hand pair moving toward the index finger next to a key
	// on the other hand.
	Inroll

	// Outroll is a same-hand pair moving away from the index finger next to a
	// key on the other hand.
	Outroll

	// Onehand is three distinct fingers of one hand moving in one direction.
	Onehand

	// Redirect is a one-hand trigram that changes direction.
	Redirect

	// RedirectSfs is a redirect whose first and third keys share a finger.
	RedirectSfs

	// BadRedirect is a redirect that never uses the index finger.
	BadRedirect

	// BadRedirectSfs is a BadRedirect whose first and third keys share a finger.
	BadRedirectSfs

	// Sfb is a mixed-hand trigram that contains a same-finger bigram.
	Sfb

	// BadSfb is a one-hand trigram that contains a same-finger bigram.
	BadSfb

	// Sft is three keys on the same finger.
	Sft

	// Thumb is any trigram that involves a thumb.
	Thumb

	// Other is any triple not covered above.
	Other

	// Invalid marks a trigram with a character that is not on the layout.
	Invalid
)

// Count is the number of categories.
const Count = 15

var patternNames = [Count]string{
	"alternate", "alternate_sfs", "inroll", "outroll", "onehand",
	"redirect", "redirect_sfs", "bad_redirect", "bad_redirect_sfs",
	"sfb", "bad_sfb", "sft", "thumb", "other", "invalid",
}

// String returns the snake_case category name.
func (p Pattern) String() string {
	if int(p) < Count {
		return patternNames[p]
	}
	return fmt.Sprintf("Pattern(%d)", uint8(p))
}

// All returns every category in declaration order.
func All() []Pattern {
	out := make([]Pattern, Count)
	for i := range out {
		out[i] = Pattern(i)
	}
	return out
}

// Classify computes the category of an ordered finger triple.
//
// Description:
//
//	Rules are applied in order and the first match wins:
//	  1. any thumb                                   -> Thumb
//	  2. hands alternate                             -> Alternate / AlternateSfs
//	  3. one hand: Sft, BadSfb, redirect family or Onehand
//	  4. mixed hands with an adjacent repeated finger -> Sfb
//	  5. two keys on one hand then one on the other  -> Inroll / Outroll
//	  6. everything else                             -> Other
//
// Inputs:
//   - f1, f2, f3: Fingers of the first, second and third keystroke.
//
// Outputs:
//   - Pattern: Never Invalid. Invalid is reserved for unplaced characters.
//
// Thread Safety: Pure function.
func Classify(f1, f2, f3 keyboard.Finger) Pattern {
	if f1.IsThumb() || f2.IsThumb() || f3.IsThumb() {
		return Thumb
	}

	h1, h2, h3 := f1.Hand(), f2.Hand(), f3.Hand()

	if h1 != h2 && h2 != h3 {
		if f1 == f3 {
			return AlternateSfs
		}
		return Alternate
	}

	if h1 == h2 && h2 == h3 {
		return classifyOneHand(f1, f2, f3)
	}

	if f1 == f2 || f2 == f3 {
		return Sfb
	}

	// Exactly one adjacent pair shares a hand.
	a, b := f2, f3
	if h1 == h2 {
		a, b = f1, f2
	}
	if movesInward(a, b) {
		return Inroll
	}
	if a != b {
		return Outroll
	}
	return Other
}

func classifyOneHand(f1, f2, f3 keyboard.Finger) Pattern {
	switch {
	case f1 == f2 && f2 == f3:
		return Sft
	case f1 == f2 || f2 == f3:
		return BadSfb
	}

	// The middle key is a local extremum of finger order: direction reverses.
	if (f1 < f2) == (f2 > f3) {
		sfs := f1 == f3
		bad := f1.IsOuter() && f2.IsOuter() && f3.IsOuter()
		switch {
		case bad && sfs:
			return BadRedirectSfs
		case bad:
			return BadRedirect
		case sfs:
			return RedirectSfs
		default:
			return Redirect
		}
	}
	return Onehand
}

// movesInward reports whether going from a to b on one hand moves toward
// the index finger. Finger values grow left to right across the board, so
// inward is increasing on the left hand and decreasing on the right.
func movesInward(a, b keyboard.Finger) bool {
	if a.Hand() == keyboard.Left {
		return a < b
	}
	return a > b
}

// Table is the precomputed classification of every finger triple.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Table struct {
	codes [keyboard.FingerCount * keyboard.FingerCount * keyboard.FingerCount]Pattern
}

// NewTable classifies every finger triple.
func NewTable() *Table {
	t := &Table{}
	for f1 := keyboard.Finger(0); f1 < keyboard.FingerCount; f1++ {
		for f2 := keyboard.Finger(0); f2 < keyboard.FingerCount; f2++ {
			for f3 := keyboard.Finger(0); f3 < keyboard.FingerCount; f3++ {
				t.codes[Code(f1, f2, f3)] = Classify(f1, f2, f3)
			}
		}
	}
	return t
}

// Code packs a finger triple into [0, 1000).
func Code(f1, f2, f3 keyboard.Finger) int {
	return int(f1)*keyboard.FingerCount*keyboard.FingerCount + int(f2)*keyboard.FingerCount + int(f3)
}

// Lookup returns the category of a finger triple. All three fingers must be valid.
func (t *Table) Lookup(f1, f2, f3 keyboard.Finger) Pattern {
	return t.codes[Code(f1, f2, f3)]
}

// Size returns the number of entries in the table.
func (t *Table) Size() int { return len(t.codes) }
