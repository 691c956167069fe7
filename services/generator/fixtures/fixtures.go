// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixtures provides reference layouts and synthetic corpus
// statistics shared by the generator's tests.
//
// Statistics are returned as plain table maps keyed by the statistics file
// field names so this package stays free of generator imports.
package fixtures

import (
	"math/rand/v2"
)

const (
	// Qwerty is the standard QWERTY arrangement of the 30 main keys.
	Qwerty = "qwertyuiopasdfghjkl;zxcvbnm,./"

	// Dvorak is the standard Dvorak arrangement of the 30 main keys.
	Dvorak = "',.pyfgcrlaoeuidhtns;qjkxbmwvz"

	// Colemak is the Colemak arrangement of the 30 main keys.
	Colemak = "qwfpgjluy;arstdhneiozxcvbkm,./"
)

// QwertySynthetic is a tiny corpus whose scores on Qwerty can be worked
// out by hand: every key has the same frequency, "ed"/"de" form the only
// same-finger bigrams, "th" crosses hands and "the" is the only trigram.
func QwertySynthetic() map[string]map[string]float64 {
	chars := make(map[string]float64, len(Qwerty))
	for _, r := range Qwerty {
		chars[string(r)] = 1
	}
	return map[string]map[string]float64{
		"characters": chars,
		"bigrams":    {"ed": 1, "de": 1, "th": 2},
		"trigrams":   {"the": 1},
	}
}

// Random builds dense pseudo-random statistics over the runes of chars.
//
// Every character, bigram and skipgram gets a frequency; trigrams are
// sampled. The same seed always produces the same tables.
func Random(seed uint64, chars string) map[string]map[string]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	runes := []rune(chars)

	out := map[string]map[string]float64{
		"characters": {},
		"bigrams":    {},
		"skipgrams":  {},
		"skipgrams2": {},
		"skipgrams3": {},
		"trigrams":   {},
	}
	for _, r := range runes {
		out["characters"][string(r)] = rng.Float64()*100 + 1
	}
	for _, a := range runes {
		for _, b := range runes {
			key := string([]rune{a, b})
			out["bigrams"][key] = rng.Float64() * 10
			out["skipgrams"][key] = rng.Float64() * 10
			out["skipgrams2"][key] = rng.Float64() * 10
			out["skipgrams3"][key] = rng.Float64() * 10
		}
	}
	for i := 0; i < 4000; i++ {
		key := string([]rune{
			runes[rng.IntN(len(runes))],
			runes[rng.IntN(len(runes))],
			runes[rng.IntN(len(runes))],
		})
		out["trigrams"][key] += rng.Float64() * 10
	}
	return out
}
