// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ngrams

import (
	"fmt"
	"strings"
)

const (
	// Absent is the code for an empty slot or a rune the index does not know.
	// Every frequency lookup involving Absent yields zero.
	Absent uint8 = 255

	// MaxCharacters is the largest number of runes an index can hold.
	MaxCharacters = 255

	// AbsentRune is how Absent is rendered.
	AbsentRune = '·'
)

// CharacterIndex is a bijection between runes and dense codes in [0, Len()).
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type CharacterIndex struct {
	runes []rune
	codes map[rune]uint8
}

// NewCharacterIndex assigns codes to runes in the order given.
//
// Outputs:
//   - *CharacterIndex: The index.
//   - error: ErrDuplicateCharacter or ErrTooManyCharacters.
func NewCharacterIndex(runes []rune) (*CharacterIndex, error) {
	if len(runes) > MaxCharacters {
		return nil, fmt.Errorf("%w: %d runes, limit %d", ErrTooManyCharacters, len(runes), MaxCharacters)
	}
	idx := &CharacterIndex{
		runes: make([]rune, len(runes)),
		codes: make(map[rune]uint8, len(runes)),
	}
	for i, r := range runes {
		if _, dup := idx.codes[r]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCharacter, r)
		}
		idx.runes[i] = r
		idx.codes[r] = uint8(i)
	}
	return idx, nil
}

// Len returns the number of runes in the index.
func (c *CharacterIndex) Len() int { return len(c.runes) }

// Code returns the code of r and whether r is known.
func (c *CharacterIndex) Code(r rune) (uint8, bool) {
	code, ok := c.codes[r]
	return code, ok
}

// Rune returns the rune for code, or AbsentRune for Absent and unknown codes.
func (c *CharacterIndex) Rune(code uint8) rune {
	if int(code) >= len(c.runes) {
		return AbsentRune
	}
	return c.runes[code]
}

// Encode converts s into codes. Unknown runes become Absent.
func (c *CharacterIndex) Encode(s string) []uint8 {
	out := make([]uint8, 0, len(s))
	for _, r := range s {
		if code, ok := c.codes[r]; ok {
			out = append(out, code)
		} else {
			out = append(out, Absent)
		}
	}
	return out
}

// Decode converts codes back into a string.
func (c *CharacterIndex) Decode(codes []uint8) string {
	var b strings.Builder
	for _, code := range codes {
		b.WriteRune(c.Rune(code))
	}
	return b.String()
}

// Runes returns a copy of the indexed runes in code order.
func (c *CharacterIndex) Runes() []rune {
	out := make([]rune, len(c.runes))
	copy(out, c.runes)
	return out
}
