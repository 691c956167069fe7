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

import "errors"

// Sentinel errors for the ngrams package.
var (
	// ErrConfiguration indicates frequency tables or a character set that
	// cannot be turned into a usable model.
	ErrConfiguration = errors.New("frequency model configuration error")

	// ErrDuplicateCharacter indicates a rune listed twice in a character set.
	ErrDuplicateCharacter = errors.New("duplicate character")

	// ErrTooManyCharacters indicates more distinct runes than codes available.
	ErrTooManyCharacters = errors.New("too many characters")
)
