// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"

	"github.com/AleutianAI/keyforge/services/generator/fixtures"
	"github.com/AleutianAI/keyforge/services/generator/ngrams"
	"github.com/AleutianAI/keyforge/services/generator/results"
)

// =============================================================================
// Helpers
// =============================================================================

func writeCorpus(t *testing.T, tables map[string]map[string]float64) string {
	t.Helper()
	data, err := sonnet.Marshal(ngrams.NewRaw("english", tables))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "english.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// execute runs one keyforge invocation and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error", "--log-format", "text"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, sonnet.Unmarshal([]byte(strings.TrimSpace(out)), &v), "output: %q", out)
	return v
}

// =============================================================================
// analyze
// =============================================================================

func TestAnalyze_QwertySynthetic(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())

	out, err := execute(t, "--corpus", corpus, "--json", "analyze", fixtures.Qwerty)
	require.NoError(t, err)

	a := decode[analysis](t, out)
	assert.Equal(t, fixtures.Qwerty, a.Layout)
	assert.Equal(t, "english", a.Language)
	assert.InDelta(t, -4.0333333, a.Stats.Score, 1e-6)
	assert.InDelta(t, 0.5, a.Stats.SFB, 1e-12)
	require.NotEmpty(t, a.WorstSFBs)
	assert.Equal(t, "ed", a.WorstSFBs[0].Pair)
}

func TestAnalyze_TextOutput(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())

	out, err := execute(t, "--corpus", corpus, "analyze", fixtures.Qwerty)
	require.NoError(t, err)
	assert.Contains(t, out, "q w e r t  y u i o p")
	assert.Contains(t, out, "-4.033333")
	assert.Contains(t, out, "alternate")
}

func TestAnalyze_LayoutFromFile(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())
	path := filepath.Join(t.TempDir(), "dvorak.txt")
	require.NoError(t, os.WriteFile(path, []byte("',.py fgcrl\naoeui dhtns\n;qjkx bmwvz\n"), 0o600))

	out, err := execute(t, "--corpus", corpus, "--json", "analyze", "@"+path)
	require.NoError(t, err)
	a := decode[analysis](t, out)
	// "'" is not a generation character, so it reads back as an empty slot.
	assert.Equal(t, "·,.py", string([]rune(a.Layout)[:5]))
	assert.Equal(t, "fgcrl", string([]rune(a.Layout)[5:10]))
}

func TestAnalyze_BadLayout(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())
	_, err := execute(t, "--corpus", corpus, "analyze", "qwerty")
	assert.ErrorIs(t, err, errUsage)
}

// =============================================================================
// Search commands
// =============================================================================

func TestGenerate_StoresAndBrowsesResults(t *testing.T) {
	corpus := writeCorpus(t, fixtures.Random(3, fixtures.Qwerty))
	db := filepath.Join(t.TempDir(), "results")
	common := []string{"--corpus", corpus, "--db", db, "--seed", "11", "--workers", "2", "--max-rounds", "2", "--json"}

	out, err := execute(t, append(common, "generate", "--count", "3", "--top", "2")...)
	require.NoError(t, err)
	views := decode[[]layoutView](t, out)
	require.Len(t, views, 2)
	assert.GreaterOrEqual(t, views[0].Score, views[1].Score)
	for _, v := range views {
		assert.NotEmpty(t, v.ID)
		assert.Len(t, []rune(v.Layout), 30)
	}

	out, err = execute(t, "--db", db, "--json", "results", "list")
	require.NoError(t, err)
	recs := decode[[]results.Record](t, out)
	require.Len(t, recs, 2)

	out, err = execute(t, "--db", db, "--json", "results", "top", "--n", "1")
	require.NoError(t, err)
	top := decode[[]results.Record](t, out)
	require.Len(t, top, 1)
	assert.Equal(t, views[0].ID, top[0].ID)
	assert.InDelta(t, top[0].Score, top[0].Components.Total, 1e-9)

	out, err = execute(t, "--db", db, "--json", "results", "show", views[1].ID)
	require.NoError(t, err)
	assert.Equal(t, views[1].Layout, decode[results.Record](t, out).Layout)

	_, err = execute(t, "--db", db, "results", "delete", views[1].ID)
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "results", "show", views[1].ID)
	assert.ErrorIs(t, err, results.ErrNotFound)
}

func TestImprove_KeepsPinnedRow(t *testing.T) {
	corpus := writeCorpus(t, fixtures.Random(5, fixtures.Qwerty))

	out, err := execute(t, "--corpus", corpus, "--seed", "2", "--workers", "1", "--json",
		"improve", fixtures.Qwerty, "--count", "2", "--pins", "xxxxxxxxxx ..........  ..........")
	require.NoError(t, err)
	views := decode[[]layoutView](t, out)
	require.Len(t, views, 1)
	assert.Equal(t, fixtures.Qwerty[:10], string([]rune(views[0].Layout)[:10]))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, views[0].Pins)
}

func TestImprove_BadPins(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())
	_, err := execute(t, "--corpus", corpus, "improve", fixtures.Qwerty, "--pins", "xx")
	assert.ErrorIs(t, err, errUsage)
}

func TestIterate_FromLayout(t *testing.T) {
	corpus := writeCorpus(t, fixtures.Random(7, fixtures.Qwerty))
	start, err := execute(t, "--corpus", corpus, "--json", "analyze", fixtures.Qwerty)
	require.NoError(t, err)
	base := decode[analysis](t, start).Stats.Score

	out, err := execute(t, "--corpus", corpus, "--seed", "4", "--workers", "2", "--json",
		"iterate", "--from", fixtures.Qwerty, "--steps", "2", "--batch", "2")
	require.NoError(t, err)
	views := decode[[]layoutView](t, out)
	require.Len(t, views, 1)
	assert.GreaterOrEqual(t, views[0].Score, base-1e-9)
}

func TestAnneal_FromLayout(t *testing.T) {
	corpus := writeCorpus(t, fixtures.Random(9, fixtures.Qwerty))
	start, err := execute(t, "--corpus", corpus, "--json", "analyze", fixtures.Qwerty)
	require.NoError(t, err)
	base := decode[analysis](t, start).Stats.Score

	out, err := execute(t, "--corpus", corpus, "--seed", "8", "--json",
		"anneal", "--from", fixtures.Qwerty, "--iterations", "3000", "--temperature", "1", "--cooling", "0.999")
	require.NoError(t, err)
	views := decode[[]layoutView](t, out)
	require.Len(t, views, 1)
	assert.GreaterOrEqual(t, views[0].Score, base-1e-9)
}

func TestSearch_UsageErrors(t *testing.T) {
	corpus := writeCorpus(t, fixtures.QwertySynthetic())

	tests := []struct {
		name string
		args []string
	}{
		{"missing corpus", []string{"generate"}},
		{"zero count", []string{"--corpus", corpus, "generate", "--count", "0"}},
		{"bad log level", []string{"--log-level", "loud", "--corpus", corpus, "generate"}},
		{"bad cooling", []string{"--corpus", corpus, "anneal", "--cooling", "1"}},
		{"too many steps", []string{"--corpus", corpus, "iterate", "--steps", "31"}},
		{"results without db", []string{"results", "list"}},
		{"bad swap cap", []string{"--corpus", corpus, "--max-swaps", "0", "generate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.ErrorIs(t, err, errUsage)
			assert.Equal(t, exitUsage, exitCode(err))
		})
	}
}

// =============================================================================
// Output
// =============================================================================

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitInterrupted, exitCode(context.Canceled))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
}

func TestPrintLayouts_PipeFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLayouts(&buf, false, []layoutView{
		{Layout: fixtures.Qwerty, Score: 1.5},
		{Layout: fixtures.Dvorak, Score: -0.25},
	}))
	assert.Equal(t, "1.500000\t"+fixtures.Qwerty+"\n-0.250000\t"+fixtures.Dvorak+"\n", buf.String())
}

func TestGrid(t *testing.T) {
	want := "  q w e r t  y u i o p\n  a s d f g  h j k l ;\n  z x c v b  n m , . /\n"
	assert.Equal(t, want, grid(fixtures.Qwerty))
	assert.Equal(t, "abc\n", grid("abc"))
}

func TestClampTop(t *testing.T) {
	assert.Equal(t, 1, clampTop(0, 5))
	assert.Equal(t, 3, clampTop(3, 5))
	assert.Equal(t, 5, clampTop(9, 5))
}

func TestGenerationChars(t *testing.T) {
	assert.Equal(t, []rune("abcdef"), generationChars(" abc\tdef\n"))
}
