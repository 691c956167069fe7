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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/keyforge/services/generator/fixtures"
)

func qwertyModel(t *testing.T) *Model {
	t.Helper()
	m, err := Build(NewRaw("synthetic", fixtures.QwertySynthetic()), []rune(fixtures.Qwerty), 1000)
	require.NoError(t, err)
	return m
}

func code(t *testing.T, m *Model, r rune) uint8 {
	t.Helper()
	c, ok := m.Index().Code(r)
	require.True(t, ok, "rune %q not indexed", r)
	return c
}

func TestCharacterIndex(t *testing.T) {
	idx, err := NewCharacterIndex([]rune("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	c, ok := idx.Code('b')
	assert.True(t, ok)
	assert.Equal(t, uint8(1), c)
	_, ok = idx.Code('z')
	assert.False(t, ok)

	assert.Equal(t, []uint8{2, Absent, 0}, idx.Encode("cza"))
	assert.Equal(t, "c·a", idx.Decode([]uint8{2, Absent, 0}))
	assert.Equal(t, AbsentRune, idx.Rune(200))

	_, err = NewCharacterIndex([]rune("abca"))
	assert.ErrorIs(t, err, ErrDuplicateCharacter)

	many := make([]rune, MaxCharacters+1)
	for i := range many {
		many[i] = rune(0x4e00 + i)
	}
	_, err = NewCharacterIndex(many)
	assert.ErrorIs(t, err, ErrTooManyCharacters)
}

func TestBuild_Normalizes(t *testing.T) {
	m := qwertyModel(t)

	assert.Equal(t, 30, m.Len())
	assert.Equal(t, "synthetic", m.Language())

	// Generation characters take the first 30 codes in order.
	for i, r := range fixtures.Qwerty {
		assert.Equal(t, uint8(i), code(t, m, r))
	}

	total := 0.0
	for c := 0; c < m.Len(); c++ {
		total += m.Char(uint8(c))
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.InDelta(t, 1.0/30, m.Char(code(t, m, 'e')), 1e-12)

	e, d, th, h := code(t, m, 'e'), code(t, m, 'd'), code(t, m, 't'), code(t, m, 'h')
	assert.InDelta(t, 0.25, m.Bigram(e, d), 1e-12)
	assert.InDelta(t, 0.25, m.Bigram(d, e), 1e-12)
	assert.InDelta(t, 0.5, m.Bigram(th, h), 1e-12)
	assert.Zero(t, m.Bigram(h, th))
	assert.Zero(t, m.Skipgram(1, e, d))

	require.Len(t, m.Trigrams(), 1)
	assert.Equal(t, [3]uint8{th, h, e}, m.Trigrams()[0].Chars)
	assert.InDelta(t, 1.0, m.Trigrams()[0].Freq, 1e-12)
	assert.Equal(t, []int32{0}, m.TrigramsWith(h))
	assert.Empty(t, m.TrigramsWith(d))
}

func TestBuild_AbsentReadsZero(t *testing.T) {
	m := qwertyModel(t)
	e := code(t, m, 'e')
	assert.Zero(t, m.Char(Absent))
	assert.Zero(t, m.Bigram(Absent, e))
	assert.Zero(t, m.Bigram(e, Absent))
	assert.Zero(t, m.Skipgram(3, Absent, Absent))
	assert.Empty(t, m.TrigramsWith(Absent))
}

func TestBuild_TrigramsSortedTruncatedAndFiltered(t *testing.T) {
	tables := fixtures.QwertySynthetic()
	tables["trigrams"] = map[string]float64{
		"the": 5, "and": 3, "ing": 4, "eel": 9, "see": 9, "ion": 1,
	}
	m, err := Build(NewRaw("", tables), []rune(fixtures.Qwerty), 2)
	require.NoError(t, err)

	got := m.Trigrams()
	require.Len(t, got, 2)
	assert.Equal(t, "the", m.Index().Decode(got[0].Chars[:]))
	assert.Equal(t, "ing", m.Index().Decode(got[1].Chars[:]))
	// Frequencies are shares of every trigram in the input.
	assert.InDelta(t, 5.0/31, got[0].Freq, 1e-12)
	assert.GreaterOrEqual(t, got[0].Freq, got[1].Freq)
}

func TestBuild_ExtraCharactersGetCodesAfterGeneration(t *testing.T) {
	tables := fixtures.QwertySynthetic()
	tables["characters"]["'"] = 3
	tables["characters"]["-"] = 5
	tables["bigrams"]["e'"] = 1

	m, err := Build(NewRaw("", tables), []rune(fixtures.Qwerty), 10)
	require.NoError(t, err)
	assert.Equal(t, 32, m.Len())
	assert.Equal(t, uint8(30), code(t, m, '-'))
	assert.Equal(t, uint8(31), code(t, m, '\''))
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	valid := fixtures.QwertySynthetic()

	tests := []struct {
		name      string
		tables    map[string]map[string]float64
		chars     string
		precision int
	}{
		{"too few generation chars", valid, fixtures.Qwerty[:29], 10},
		{"too many generation chars", valid, fixtures.Qwerty + "-", 10},
		{"duplicate generation char", valid, "q" + fixtures.Qwerty[1:29] + "q", 10},
		{"zero precision", valid, fixtures.Qwerty, 0},
		{"empty characters", map[string]map[string]float64{"characters": {}}, fixtures.Qwerty, 10},
		{"bad bigram key", map[string]map[string]float64{
			"characters": {"a": 1},
			"bigrams":    {"abc": 1},
		}, fixtures.Qwerty, 10},
		{"negative frequency", map[string]map[string]float64{
			"characters": {"a": -1},
		}, fixtures.Qwerty, 10},
		{"nan frequency", map[string]map[string]float64{
			"characters": {"a": 1},
			"trigrams":   {"abc": math.NaN()},
		}, fixtures.Qwerty, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(NewRaw("", tt.tables), []rune(tt.chars), tt.precision)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestWeightedBigrams(t *testing.T) {
	tables := fixtures.QwertySynthetic()
	tables["skipgrams"] = map[string]float64{"ed": 1}
	tables["skipgrams2"] = map[string]float64{"ed": 1, "de": 1}
	tables["skipgrams3"] = map[string]float64{"de": 1}
	m, err := Build(NewRaw("", tables), []rune(fixtures.Qwerty), 10)
	require.NoError(t, err)

	e, d := code(t, m, 'e'), code(t, m, 'd')
	w := m.WeightedBigrams([3]float64{0.5, 0.25, 0.125}, 2)

	assert.InDelta(t, (0.25+1*0.5+0.5*0.25)*2, w.At(e, d), 1e-12)
	assert.InDelta(t, (0.25+0.5*0.25+1*0.125)*2, w.At(d, e), 1e-12)
	assert.InDelta(t, w.At(e, d)+w.At(d, e), w.Both(e, d), 1e-12)
	assert.Zero(t, w.At(Absent, e))
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "english.json")
	doc := `{
		"language": "english",
		"characters": {"e": 2, "t": 1},
		"bigrams": {"te": 1},
		"skipgrams": {}, "skipgrams2": {}, "skipgrams3": {},
		"trigrams": {"tet": 1}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	raw, err := LoadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "english", raw.Language)
	assert.Equal(t, 2.0, raw.Characters["e"])
	assert.Equal(t, 1.0, raw.Trigrams["tet"])

	_, err = DecodeJSON([]byte("{not json"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = LoadJSON(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
