// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package layout holds the assignment of characters to key positions.
//
// A Layout keeps two views in step: the position to character matrix and
// the character to finger reverse map. Swap is the only mutator and
// updates both, so the reverse map can never drift from the matrix.
package layout

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/ngrams"
	"github.com/AleutianAI/keyforge/services/generator/patterns"
)

// NoFinger marks a character that is not on the layout.
const NoFinger kb.Finger = 255

// Layout is a 30-position character assignment.
//
// The zero value is not usable; build layouts with New, Parse or Random.
//
// Thread Safety: Not safe for concurrent mutation. Each search owns its
// own Layout; use Clone to hand a copy to another goroutine.
type Layout struct {
	matrix  [kb.PositionCount]uint8
	fingers [256]kb.Finger
}

// New builds a layout from a matrix of character codes.
//
// Inputs:
//   - matrix: Character code per position. ngrams.Absent marks an empty slot
//     and may repeat; every other code must appear at most once.
//
// Outputs:
//   - *Layout: The layout with its reverse finger map filled in.
//   - error: ErrInvalidLayout if a code repeats.
func New(matrix [kb.PositionCount]uint8) (*Layout, error) {
	l := &Layout{matrix: matrix}
	for i := range l.fingers {
		l.fingers[i] = NoFinger
	}
	for pos, c := range matrix {
		if c == ngrams.Absent {
			continue
		}
		if l.fingers[c] != NoFinger {
			return nil, fmt.Errorf("%w: code %d placed twice", ErrInvalidLayout, c)
		}
		l.fingers[c] = kb.PositionFinger(pos)
	}
	return l, nil
}

// Parse reads a layout from its 30 characters in row-major order.
// Whitespace is ignored. Runes the index does not know become empty slots.
func Parse(index *ngrams.CharacterIndex, s string) (*Layout, error) {
	var runes []rune
	for _, r := range s {
		if !unicode.IsSpace(r) {
			runes = append(runes, r)
		}
	}
	if len(runes) != kb.PositionCount {
		return nil, fmt.Errorf("%w: %d keys, want %d", ErrInvalidLayout, len(runes), kb.PositionCount)
	}

	var matrix [kb.PositionCount]uint8
	for i, r := range runes {
		if c, ok := index.Code(r); ok {
			matrix[i] = c
		} else {
			matrix[i] = ngrams.Absent
		}
	}
	l, err := New(matrix)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}
	return l, nil
}

// Char returns the code at pos.
func (l *Layout) Char(pos int) uint8 { return l.matrix[pos] }

// Matrix returns a copy of the position to character matrix.
func (l *Layout) Matrix() [kb.PositionCount]uint8 { return l.matrix }

// FingerOf returns the finger that types c, or NoFinger if c is not placed.
func (l *Layout) FingerOf(c uint8) kb.Finger { return l.fingers[c] }

// Swap exchanges the characters at the two positions of p.
func (l *Layout) Swap(p kb.PosPair) {
	a, b := l.matrix[p.A], l.matrix[p.B]
	l.matrix[p.A], l.matrix[p.B] = b, a
	if a != ngrams.Absent {
		l.fingers[a] = kb.PositionFinger(int(p.B))
	}
	if b != ngrams.Absent {
		l.fingers[b] = kb.PositionFinger(int(p.A))
	}
}

// SwapColumns exchanges two whole columns. Both must be in [0, kb.Columns).
func (l *Layout) SwapColumns(a, b int) {
	if a == b {
		return
	}
	for row := 0; row < kb.Rows; row++ {
		p, _ := kb.NewPosPair(row*kb.Columns+a, row*kb.Columns+b)
		l.Swap(p)
	}
}

// SwapIndexes mirrors the four index columns: 3 with 6 and 4 with 5.
func (l *Layout) SwapIndexes() {
	l.SwapColumns(3, 6)
	l.SwapColumns(4, 5)
}

// Clone returns an independent copy.
func (l *Layout) Clone() *Layout {
	c := *l
	return &c
}

// Equal reports whether two layouts place every character identically.
func (l *Layout) Equal(o *Layout) bool {
	return l.matrix == o.matrix
}

// Pattern classifies trigram t on this layout. Trigrams with a character
// that is not placed are Invalid.
func (l *Layout) Pattern(table *patterns.Table, t [3]uint8) patterns.Pattern {
	f1, f2, f3 := l.fingers[t[0]], l.fingers[t[1]], l.fingers[t[2]]
	if f1 == NoFinger || f2 == NoFinger || f3 == NoFinger {
		return patterns.Invalid
	}
	return table.Lookup(f1, f2, f3)
}

// Compact renders the layout as 30 runes with no separators.
func (l *Layout) Compact(index *ngrams.CharacterIndex) string {
	return index.Decode(l.matrix[:])
}

// Format renders the layout as three rows split between the hands:
//
//	q w e r t  y u i o p
//	a s d f g  h j k l ;
//	z x c v b  n m , . /
func (l *Layout) Format(index *ngrams.CharacterIndex) string {
	var b strings.Builder
	for row := 0; row < kb.Rows; row++ {
		for col := 0; col < kb.Columns; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			if col == kb.Columns/2 {
				b.WriteByte(' ')
			}
			b.WriteRune(index.Rune(l.matrix[row*kb.Columns+col]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Random places chars on the board in a uniformly random order.
//
// Inputs:
//   - chars: Exactly kb.PositionCount distinct codes.
//   - rng: Source of randomness owned by the caller.
func Random(chars []uint8, rng *rand.Rand) (*Layout, error) {
	if len(chars) != kb.PositionCount {
		return nil, fmt.Errorf("%w: %d characters, want %d", ErrInvalidLayout, len(chars), kb.PositionCount)
	}
	var matrix [kb.PositionCount]uint8
	copy(matrix[:], chars)
	shuffle(&matrix, nil, rng)
	return New(matrix)
}

// RandomPinned reshuffles base while keeping every pinned position fixed.
// base is not modified.
func RandomPinned(base *Layout, pins []int, rng *rand.Rand) (*Layout, error) {
	mask, err := kb.PinMask(pins)
	if err != nil {
		return nil, err
	}
	matrix := base.matrix
	shuffle(&matrix, &mask, rng)
	return New(matrix)
}

// shuffle is a Fisher-Yates shuffle restricted to unpinned positions.
func shuffle(matrix *[kb.PositionCount]uint8, pinned *[kb.PositionCount]bool, rng *rand.Rand) {
	free := make([]int, 0, kb.PositionCount)
	for pos := 0; pos < kb.PositionCount; pos++ {
		if pinned == nil || !pinned[pos] {
			free = append(free, pos)
		}
	}
	for i := 0; i < len(free)-1; i++ {
		j := i + rng.IntN(len(free)-i)
		matrix[free[i]], matrix[free[j]] = matrix[free[j]], matrix[free[i]]
	}
}

// ParsePins reads a pin mask: 30 runes in row-major order where 'x' or 'X'
// pins the position and anything else leaves it free. Whitespace is ignored.
//
//	xxx.. .....
//	..... .....
//	..... ....x
func ParsePins(mask string) ([]int, error) {
	var pins []int
	n := 0
	for _, r := range mask {
		if unicode.IsSpace(r) {
			continue
		}
		if n >= kb.PositionCount {
			return nil, fmt.Errorf("%w: more than %d positions", ErrInvalidPins, kb.PositionCount)
		}
		if r == 'x' || r == 'X' {
			pins = append(pins, n)
		}
		n++
	}
	if n != kb.PositionCount {
		return nil, fmt.Errorf("%w: %d positions, want %d", ErrInvalidPins, n, kb.PositionCount)
	}
	return pins, nil
}
