// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package keyboard describes the fixed physical model every layout is placed on.
//
// The board is a 3x10 ortholinear grid of 30 positions numbered row-major
// (0-9 top row, 10-19 home row, 20-29 bottom row). Each column is owned by one
// of ten fingers; the index fingers own two columns each and the thumbs own no
// positions at all. Everything in this package is either a constant or an
// immutable table built once per session by NewGeometry.
package keyboard

import "fmt"

const (
	// PositionCount is the number of key positions on the board.
	PositionCount = 30

	// FingerCount is the number of assignable fingers, thumbs included.
	FingerCount = 10

	// Columns is the number of columns per row.
	Columns = 10

	// Rows is the number of rows.
	Rows = 3
)

// Finger identifies one of the ten digits.
//
// The numeric order is significant: on each hand the value increases from
// the left edge of the board toward the right edge, so LP < LR < LM < LI
// and RI < RM < RR < RP. Roll direction and redirect detection rely on it.
type Finger uint8

const (
	LP Finger = iota // left pinky
	LR               // left ring
	LM               // left middle
	LI               // left index
	RI               // right index
	RM               // right middle
	RR               // right ring
	RP               // right pinky
	LT               // left thumb
	RT               // right thumb
)

var fingerNames = [FingerCount]string{"LP", "LR", "LM", "LI", "RI", "RM", "RR", "RP", "LT", "RT"}

// String returns the two-letter finger abbreviation.
func (f Finger) String() string {
	if int(f) < FingerCount {
		return fingerNames[f]
	}
	return fmt.Sprintf("Finger(%d)", uint8(f))
}

// Valid reports whether f is one of the ten fingers.
func (f Finger) Valid() bool {
	return int(f) < FingerCount
}

// Hand identifies the left or right hand.
type Hand uint8

const (
	Left Hand = iota
	Right
)

// String returns "left" or "right".
func (h Hand) String() string {
	if h == Left {
		return "left"
	}
	return "right"
}

// Hand returns the hand that owns f.
func (f Finger) Hand() Hand {
	switch f {
	case LP, LR, LM, LI, LT:
		return Left
	default:
		return Right
	}
}

// IsThumb reports whether f is a thumb.
func (f Finger) IsThumb() bool {
	return f == LT || f == RT
}

// IsOuter reports whether f is a pinky, ring or middle finger.
//
// Redirects made exclusively with outer fingers are the "bad" variants.
func (f Finger) IsOuter() bool {
	switch f {
	case LP, LR, LM, RM, RR, RP:
		return true
	default:
		return false
	}
}

// FingerClass groups mirror-image fingers of both hands.
type FingerClass uint8

const (
	Pinky FingerClass = iota
	Ring
	Middle
	Index
	Thumb
)

// String returns the lower-case class name.
func (c FingerClass) String() string {
	switch c {
	case Pinky:
		return "pinky"
	case Ring:
		return "ring"
	case Middle:
		return "middle"
	case Index:
		return "index"
	default:
		return "thumb"
	}
}

// Class returns the finger class of f.
func (f Finger) Class() FingerClass {
	switch f {
	case LP, RP:
		return Pinky
	case LR, RR:
		return Ring
	case LM, RM:
		return Middle
	case LI, RI:
		return Index
	default:
		return Thumb
	}
}

// Strength is the relative speed weight of a finger used by the same-finger
// distance model. The index finger is the reference at 5.5.
func (f Finger) Strength() float64 {
	switch f.Class() {
	case Pinky:
		return 1.4
	case Ring:
		return 3.6
	case Middle:
		return 4.8
	default:
		return 5.5
	}
}

// reach is the vertical offset of the fingertip relative to the home row,
// positive for fingers that naturally rest further up the board.
func (f Finger) reach() float64 {
	switch f.Class() {
	case Pinky:
		return -0.15
	case Ring:
		return 0.35
	case Middle:
		return 0.25
	case Index:
		return -0.30
	default:
		return -1.80
	}
}

var columnFingers = [Columns]Finger{LP, LR, LM, LI, LI, RI, RI, RM, RR, RP}

// ColumnFinger returns the finger owning column col. col must be in [0, Columns).
func ColumnFinger(col int) Finger {
	return columnFingers[col]
}

// PositionFinger returns the finger owning position pos. pos must be in
// [0, PositionCount).
func PositionFinger(pos int) Finger {
	return columnFingers[pos%Columns]
}

// Column returns the column of pos.
func Column(pos int) int { return pos % Columns }

// Row returns the row of pos.
func Row(pos int) int { return pos / Columns }

// FingerPositions returns the positions owned by f in ascending order.
// Thumbs own no positions.
func FingerPositions(f Finger) []int {
	var out []int
	for pos := 0; pos < PositionCount; pos++ {
		if PositionFinger(pos) == f {
			out = append(out, pos)
		}
	}
	return out
}
