// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ngrams holds the language statistics a layout is scored against.
//
// A Model is built once per session from raw corpus counts and then shared
// read-only by every concurrent search. All tables are indexed by the dense
// character codes of a CharacterIndex, with a fixed stride of 256 so that
// the Absent code addresses a row and column of zeros.
package ngrams

import (
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

// GenerationSize is the number of characters placed on a layout.
const GenerationSize = 30

// stride is the row length of every pair table.
const stride = 256

// Trigram is a character triple with its normalized frequency.
type Trigram struct {
	Chars [3]uint8
	Freq  float64
}

// Contains reports whether the trigram uses code c.
func (t Trigram) Contains(c uint8) bool {
	return t.Chars[0] == c || t.Chars[1] == c || t.Chars[2] == c
}

// Raw is corpus statistics as produced by the corpus collaborator. Keys are
// strings of one, two or three runes; values are counts or frequencies on
// any scale.
type Raw struct {
	Language   string             `json:"language"`
	Characters map[string]float64 `json:"characters"`
	Bigrams    map[string]float64 `json:"bigrams"`
	Skipgrams  map[string]float64 `json:"skipgrams"`
	Skipgrams2 map[string]float64 `json:"skipgrams2"`
	Skipgrams3 map[string]float64 `json:"skipgrams3"`
	Trigrams   map[string]float64 `json:"trigrams"`
}

// Model is the immutable frequency model.
//
// Every table is normalized so its entries sum to 1. Trigrams that repeat a
// character back to back are dropped, the rest are sorted by descending
// frequency and truncated to the configured precision.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Model struct {
	language   string
	index      *CharacterIndex
	generation []uint8
	precision  int

	chars   [stride]float64
	bigrams []float64
	skips   [3][]float64

	trigrams []Trigram
	byChar   [stride][]int32
}

// Build turns raw statistics into a Model.
//
// Description:
//
//	Codes are assigned to the generation characters first (so they occupy
//	codes 0..29) and then to every other rune seen in the statistics,
//	ordered by descending character frequency. Missing pairs and triples
//	read as zero.
//
// Inputs:
//   - raw: Corpus statistics.
//   - generationChars: The exactly 30 distinct runes a layout places.
//   - precision: Number of trigrams kept after sorting. Must be positive.
//
// Outputs:
//   - *Model: The model.
//   - error: Wraps ErrConfiguration when the generation set is not exactly
//     30 distinct runes, the precision is not positive, a key has the wrong
//     length, a value is negative or not finite, or the character table is empty.
func Build(raw Raw, generationChars []rune, precision int) (*Model, error) {
	if precision <= 0 {
		return nil, fmt.Errorf("%w: trigram precision must be positive, got %d", ErrConfiguration, precision)
	}
	if len(generationChars) != GenerationSize {
		return nil, fmt.Errorf("%w: %d generation characters, layout has %d positions",
			ErrConfiguration, len(generationChars), GenerationSize)
	}

	runes, err := orderRunes(raw, generationChars)
	if err != nil {
		return nil, err
	}
	index, err := NewCharacterIndex(runes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	m := &Model{
		language:   raw.Language,
		index:      index,
		generation: make([]uint8, GenerationSize),
		precision:  precision,
		bigrams:    make([]float64, stride*stride),
	}
	for i := range m.generation {
		m.generation[i] = uint8(i)
	}

	if err := m.fillChars(raw.Characters); err != nil {
		return nil, err
	}
	if err := m.fillPairs(m.bigrams, raw.Bigrams, "bigrams"); err != nil {
		return nil, err
	}
	skipTables := []map[string]float64{raw.Skipgrams, raw.Skipgrams2, raw.Skipgrams3}
	for depth, table := range skipTables {
		m.skips[depth] = make([]float64, stride*stride)
		if err := m.fillPairs(m.skips[depth], table, fmt.Sprintf("skipgrams depth %d", depth+1)); err != nil {
			return nil, err
		}
	}
	if err := m.fillTrigrams(raw.Trigrams); err != nil {
		return nil, err
	}
	return m, nil
}

// orderRunes lists the generation runes followed by every other rune in
// the statistics, most frequent first.
func orderRunes(raw Raw, generationChars []rune) ([]rune, error) {
	seen := make(map[rune]bool, len(generationChars))
	out := make([]rune, 0, len(generationChars)+len(raw.Characters))
	for _, r := range generationChars {
		if seen[r] {
			return nil, fmt.Errorf("%w: %w: %q in generation set", ErrConfiguration, ErrDuplicateCharacter, r)
		}
		seen[r] = true
		out = append(out, r)
	}

	freq := make(map[rune]float64)
	note := func(key string, f float64) {
		for _, r := range key {
			if !seen[r] {
				if _, ok := freq[r]; !ok {
					freq[r] = 0
				}
			}
		}
		if utf8.RuneCountInString(key) == 1 {
			r, _ := utf8.DecodeRuneInString(key)
			if !seen[r] {
				freq[r] += f
			}
		}
	}
	for k, f := range raw.Characters {
		note(k, f)
	}
	for _, table := range []map[string]float64{raw.Bigrams, raw.Skipgrams, raw.Skipgrams2, raw.Skipgrams3, raw.Trigrams} {
		for k := range table {
			note(k, 0)
		}
	}

	extra := make([]rune, 0, len(freq))
	for r := range freq {
		extra = append(extra, r)
	}
	sort.Slice(extra, func(i, j int) bool {
		if freq[extra[i]] != freq[extra[j]] {
			return freq[extra[i]] > freq[extra[j]]
		}
		return extra[i] < extra[j]
	})
	return append(out, extra...), nil
}

func checkValue(kind, key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s %q has invalid frequency %v", ErrConfiguration, kind, key, v)
	}
	return nil
}

func (m *Model) codes(kind, key string, want int) ([]uint8, error) {
	if utf8.RuneCountInString(key) != want {
		return nil, fmt.Errorf("%w: %s key %q must have %d characters", ErrConfiguration, kind, key, want)
	}
	out := make([]uint8, 0, want)
	for _, r := range key {
		code, _ := m.index.Code(r)
		out = append(out, code)
	}
	return out, nil
}

func (m *Model) fillChars(table map[string]float64) error {
	total := 0.0
	for k, v := range table {
		if err := checkValue("character", k, v); err != nil {
			return err
		}
		code, err := m.codes("character", k, 1)
		if err != nil {
			return err
		}
		m.chars[code[0]] += v
		total += v
	}
	if total == 0 {
		return fmt.Errorf("%w: character table is empty", ErrConfiguration)
	}
	for i := range m.chars {
		m.chars[i] /= total
	}
	return nil
}

func (m *Model) fillPairs(dst []float64, table map[string]float64, kind string) error {
	total := 0.0
	for k, v := range table {
		if err := checkValue(kind, k, v); err != nil {
			return err
		}
		c, err := m.codes(kind, k, 2)
		if err != nil {
			return err
		}
		dst[int(c[0])*stride+int(c[1])] += v
		total += v
	}
	if total > 0 {
		for i := range dst {
			dst[i] /= total
		}
	}
	return nil
}

func (m *Model) fillTrigrams(table map[string]float64) error {
	total := 0.0
	kept := make([]Trigram, 0, len(table))
	for k, v := range table {
		if err := checkValue("trigram", k, v); err != nil {
			return err
		}
		c, err := m.codes("trigram", k, 3)
		if err != nil {
			return err
		}
		total += v
		if c[0] == c[1] || c[1] == c[2] || v == 0 {
			continue
		}
		kept = append(kept, Trigram{Chars: [3]uint8{c[0], c[1], c[2]}, Freq: v})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Freq != kept[j].Freq {
			return kept[i].Freq > kept[j].Freq
		}
		a, b := kept[i].Chars, kept[j].Chars
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	if len(kept) > m.precision {
		kept = kept[:m.precision]
	}
	for i := range kept {
		kept[i].Freq /= total
	}
	m.trigrams = kept

	for i, t := range kept {
		m.byChar[t.Chars[0]] = append(m.byChar[t.Chars[0]], int32(i))
		if t.Chars[1] != t.Chars[0] {
			m.byChar[t.Chars[1]] = append(m.byChar[t.Chars[1]], int32(i))
		}
		if t.Chars[2] != t.Chars[0] && t.Chars[2] != t.Chars[1] {
			m.byChar[t.Chars[2]] = append(m.byChar[t.Chars[2]], int32(i))
		}
	}
	return nil
}

// Language returns the language name carried by the raw statistics.
func (m *Model) Language() string { return m.language }

// Index returns the character index.
func (m *Model) Index() *CharacterIndex { return m.index }

// Len returns the number of indexed characters.
func (m *Model) Len() int { return m.index.Len() }

// Precision returns the trigram cutoff the model was built with.
func (m *Model) Precision() int { return m.precision }

// GenerationChars returns the codes placed on a generated layout.
func (m *Model) GenerationChars() []uint8 {
	out := make([]uint8, len(m.generation))
	copy(out, m.generation)
	return out
}

// Char returns the frequency of code c.
func (m *Model) Char(c uint8) float64 { return m.chars[c] }

// Bigram returns the frequency of the ordered pair (a, b).
func (m *Model) Bigram(a, b uint8) float64 { return m.bigrams[int(a)*stride+int(b)] }

// Skipgram returns the frequency of (a, b) with depth characters between
// them. depth must be 1, 2 or 3.
func (m *Model) Skipgram(depth int, a, b uint8) float64 {
	return m.skips[depth-1][int(a)*stride+int(b)]
}

// Trigrams returns the kept trigrams in descending frequency order.
func (m *Model) Trigrams() []Trigram { return m.trigrams }

// TrigramsWith returns indexes into Trigrams() of every trigram that uses c.
func (m *Model) TrigramsWith(c uint8) []int32 { return m.byChar[c] }

// PairTable is an immutable table over ordered character pairs derived from
// a Model.
type PairTable struct {
	values []float64
}

// At returns the table value for the ordered pair (a, b).
func (p *PairTable) At(a, b uint8) float64 { return p.values[int(a)*stride+int(b)] }

// Both returns At(a, b) + At(b, a).
func (p *PairTable) Both(a, b uint8) float64 {
	return p.values[int(a)*stride+int(b)] + p.values[int(b)*stride+int(a)]
}

// WeightedBigrams derives the combined same-finger table
// (bigram + skip1*r1 + skip2*r2 + skip3*r3) * scale.
func (m *Model) WeightedBigrams(ratios [3]float64, scale float64) *PairTable {
	out := make([]float64, stride*stride)
	for i := range out {
		v := m.bigrams[i]
		for d := 0; d < 3; d++ {
			v += m.skips[d][i] * ratios[d]
		}
		out[i] = v * scale
	}
	return &PairTable{values: out}
}

// Bigrams exposes the raw bigram table as a PairTable.
func (m *Model) Bigrams() *PairTable { return &PairTable{values: m.bigrams} }

// Skipgrams exposes one skipgram depth as a PairTable. depth must be 1, 2 or 3.
func (m *Model) Skipgrams(depth int) *PairTable { return &PairTable{values: m.skips[depth-1]} }

// NewRaw assembles Raw from tables keyed by their statistics file field
// names ("characters", "bigrams", "skipgrams", "skipgrams2", "skipgrams3",
// "trigrams"). Missing tables are left nil.
func NewRaw(language string, tables map[string]map[string]float64) Raw {
	return Raw{
		Language:   language,
		Characters: tables["characters"],
		Bigrams:    tables["bigrams"],
		Skipgrams:  tables["skipgrams"],
		Skipgrams2: tables["skipgrams2"],
		Skipgrams3: tables["skipgrams3"],
		Trigrams:   tables["trigrams"],
	}
}
