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

import "errors"

// Sentinel errors for the scoring package.
var (
	// ErrConfiguration indicates a scorer that cannot be built from the
	// given model and weights.
	ErrConfiguration = errors.New("scorer configuration error")

	// ErrInvalidSwap indicates a swap that cannot change the score: both
	// positions hold the same character or neither character is ever typed.
	ErrInvalidSwap = errors.New("invalid swap")
)
