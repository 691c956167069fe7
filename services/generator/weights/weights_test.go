// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package weights

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
)

func TestDefault_IsValid(t *testing.T) {
	w := Default()
	require.NoError(t, w.Validate())
	assert.Equal(t, 1000, w.TrigramPrecision)
	assert.Equal(t, [3]float64{0.12, 0.36, 0.110592}, w.SkipRatios())
}

func TestUsageCap(t *testing.T) {
	w := Default()
	assert.InDelta(t, 0.09, w.UsageCap(kb.LP), 1e-12)
	assert.InDelta(t, 0.16, w.UsageCap(kb.RR), 1e-12)
	assert.InDelta(t, 0.195, w.UsageCap(kb.LM), 1e-12)
	assert.InDelta(t, 0.18, w.UsageCap(kb.RI), 1e-12)
	assert.Equal(t, 1.0, w.UsageCap(kb.LT))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *Weights)
	}{
		{"negative fspeed", func(w *Weights) { w.FSpeed = -1 }},
		{"nan scissors", func(w *Weights) { w.Scissors = math.NaN() }},
		{"infinite inrolls", func(w *Weights) { w.Inrolls = math.Inf(1) }},
		{"zero precision", func(w *Weights) { w.TrigramPrecision = 0 }},
		{"zero pinky cap", func(w *Weights) { w.MaxFingerUse.Pinky = 0 }},
		{"cap over 100", func(w *Weights) { w.MaxFingerUse.Index = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Default()
			tt.mutate(&w)
			assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)
		})
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	doc := `
fspeed: 6.5
redirects: 2
max_finger_use:
  pinky: 8
trigram_precision: 250
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	w, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6.5, w.FSpeed)
	assert.Equal(t, 2.0, w.Redirects)
	assert.Equal(t, 8.0, w.MaxFingerUse.Pinky)
	assert.Equal(t, 16.0, w.MaxFingerUse.Ring)
	assert.Equal(t, 250, w.TrigramPrecision)
	assert.Equal(t, Default().Scissors, w.Scissors)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fspeed: [1, 2"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("lsbs: -3\n"), 0o600))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KEYFORGE_FSPEED", "4.25")
	t.Setenv("KEYFORGE_MAX_FINGER_USE_INDEX", "20")
	t.Setenv("KEYFORGE_TRIGRAM_PRECISION", "77")

	w, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4.25, w.FSpeed)
	assert.Equal(t, 20.0, w.MaxFingerUse.Index)
	assert.Equal(t, 77, w.TrigramPrecision)
}

func TestApplyEnv_BadNumber(t *testing.T) {
	w := Default()
	lookup := func(name string) (string, bool) {
		if name == "KEYFORGE_SCISSORS" {
			return "lots", true
		}
		return "", false
	}
	assert.ErrorIs(t, w.applyEnv(lookup), ErrInvalidWeights)
}
