// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package weights defines the tunable coefficients of the scoring model.
//
// Weights are loaded the same way as every other keyforge config: start
// from Default(), overlay a YAML file, overlay KEYFORGE_* environment
// variables, then Validate().
//
//	weights, err := weights.Load("weights.yaml")
//	if err != nil {
//	    return fmt.Errorf("load weights: %w", err)
//	}
package weights

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
)

// ErrInvalidWeights indicates a weight set that failed validation.
var ErrInvalidWeights = errors.New("invalid weights")

var weightsValidate *validator.Validate

func init() {
	weightsValidate = validator.New()
	_ = weightsValidate.RegisterValidation("finite", validateFinite)
}

// validateFinite rejects NaN and infinite float fields.
func validateFinite(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MaxFingerUse caps the share of keystrokes each finger class should take.
// Caps are percentages; usage above the cap costs Penalty per unit share.
type MaxFingerUse struct {
	Penalty float64 `yaml:"penalty" validate:"finite,gte=0"`
	Pinky   float64 `yaml:"pinky" validate:"finite,gt=0,lte=100"`
	Ring    float64 `yaml:"ring" validate:"finite,gt=0,lte=100"`
	Middle  float64 `yaml:"middle" validate:"finite,gt=0,lte=100"`
	Index   float64 `yaml:"index" validate:"finite,gt=0,lte=100"`
}

// Weights is the full coefficient set.
//
// Trigram category weights are magnitudes: rolls, onehands and alternates
// add to the score, redirects subtract from it.
type Weights struct {
	// LateralPenalty scales horizontal distance between index finger columns.
	LateralPenalty float64 `yaml:"lateral_penalty" validate:"finite,gte=0"`

	// FSpeed scales the same-finger speed term.
	FSpeed float64 `yaml:"fspeed" validate:"finite,gte=0"`

	// DSFBRatio, DSFBRatio2 and DSFBRatio3 weigh skipgrams at depth 1, 2 and 3
	// relative to bigrams.
	DSFBRatio  float64 `yaml:"dsfb_ratio" validate:"finite,gte=0"`
	DSFBRatio2 float64 `yaml:"dsfb_ratio2" validate:"finite,gte=0"`
	DSFBRatio3 float64 `yaml:"dsfb_ratio3" validate:"finite,gte=0"`

	Scissors  float64 `yaml:"scissors" validate:"finite,gte=0"`
	LSBs      float64 `yaml:"lsbs" validate:"finite,gte=0"`
	PinkyRing float64 `yaml:"pinky_ring" validate:"finite,gte=0"`
	Stretches float64 `yaml:"stretches" validate:"finite,gte=0"`

	Inrolls         float64 `yaml:"inrolls" validate:"finite,gte=0"`
	Outrolls        float64 `yaml:"outrolls" validate:"finite,gte=0"`
	Onehands        float64 `yaml:"onehands" validate:"finite,gte=0"`
	Alternates      float64 `yaml:"alternates" validate:"finite,gte=0"`
	AlternatesSfs   float64 `yaml:"alternates_sfs" validate:"finite,gte=0"`
	Redirects       float64 `yaml:"redirects" validate:"finite,gte=0"`
	RedirectsSfs    float64 `yaml:"redirects_sfs" validate:"finite,gte=0"`
	BadRedirects    float64 `yaml:"bad_redirects" validate:"finite,gte=0"`
	BadRedirectsSfs float64 `yaml:"bad_redirects_sfs" validate:"finite,gte=0"`

	MaxFingerUse MaxFingerUse `yaml:"max_finger_use"`

	// TrigramPrecision is how many of the most frequent trigrams are scored.
	TrigramPrecision int `yaml:"trigram_precision" validate:"gt=0"`
}

// Default returns the stock weight set for English.
func Default() Weights {
	return Weights{
		LateralPenalty: 1.3,
		FSpeed:         8.0,
		DSFBRatio:      0.12,
		DSFBRatio2:     0.36,
		DSFBRatio3:     0.110592,

		Scissors:  5.0,
		LSBs:      2.0,
		PinkyRing: 1.5,
		Stretches: 2.0,

		Inrolls:         1.6,
		Outrolls:        1.3,
		Onehands:        0.8,
		Alternates:      0.7,
		AlternatesSfs:   0.35,
		Redirects:       1.5,
		RedirectsSfs:    2.75,
		BadRedirects:    4.0,
		BadRedirectsSfs: 6.0,

		MaxFingerUse: MaxFingerUse{
			Penalty: 2.5,
			Pinky:   9.0,
			Ring:    16.0,
			Middle:  19.5,
			Index:   18.0,
		},

		TrigramPrecision: 1000,
	}
}

// Validate checks every field against its tag constraints.
func (w Weights) Validate() error {
	if err := weightsValidate.Struct(w); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWeights, err)
	}
	return nil
}

// SkipRatios returns the three skipgram ratios in depth order.
func (w Weights) SkipRatios() [3]float64 {
	return [3]float64{w.DSFBRatio, w.DSFBRatio2, w.DSFBRatio3}
}

// UsageCap returns the usage cap of a finger as a share in [0, 1].
// Thumbs own no keys and are never capped.
func (w Weights) UsageCap(f kb.Finger) float64 {
	switch f.Class() {
	case kb.Pinky:
		return w.MaxFingerUse.Pinky / 100
	case kb.Ring:
		return w.MaxFingerUse.Ring / 100
	case kb.Middle:
		return w.MaxFingerUse.Middle / 100
	case kb.Index:
		return w.MaxFingerUse.Index / 100
	default:
		return 1
	}
}

// Load builds a weight set from defaults, an optional YAML file and the
// environment.
//
// Inputs:
//   - path: YAML file to overlay. Empty skips the file; a missing file is
//     an error because an explicitly named weights file must exist.
//
// Outputs:
//   - Weights: The validated weights.
//   - error: File, parse or validation failure.
func Load(path string) (Weights, error) {
	w := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return w, fmt.Errorf("read weights file: %w", err)
		}
		if err := yaml.Unmarshal(data, &w); err != nil {
			return w, fmt.Errorf("parse weights file %s: %w", path, err)
		}
	}

	if err := w.applyEnv(os.LookupEnv); err != nil {
		return w, err
	}

	if err := w.Validate(); err != nil {
		return w, err
	}
	return w, nil
}

// applyEnv overlays KEYFORGE_<YAML_KEY> variables, for example
// KEYFORGE_FSPEED=6 or KEYFORGE_MAX_FINGER_USE_PINKY=8.
func (w *Weights) applyEnv(lookup func(string) (string, bool)) error {
	floats := map[string]*float64{
		"KEYFORGE_LATERAL_PENALTY":        &w.LateralPenalty,
		"KEYFORGE_FSPEED":                 &w.FSpeed,
		"KEYFORGE_DSFB_RATIO":             &w.DSFBRatio,
		"KEYFORGE_DSFB_RATIO2":            &w.DSFBRatio2,
		"KEYFORGE_DSFB_RATIO3":            &w.DSFBRatio3,
		"KEYFORGE_SCISSORS":               &w.Scissors,
		"KEYFORGE_LSBS":                   &w.LSBs,
		"KEYFORGE_PINKY_RING":             &w.PinkyRing,
		"KEYFORGE_STRETCHES":              &w.Stretches,
		"KEYFORGE_INROLLS":                &w.Inrolls,
		"KEYFORGE_OUTROLLS":               &w.Outrolls,
		"KEYFORGE_ONEHANDS":               &w.Onehands,
		"KEYFORGE_ALTERNATES":             &w.Alternates,
		"KEYFORGE_ALTERNATES_SFS":         &w.AlternatesSfs,
		"KEYFORGE_REDIRECTS":              &w.Redirects,
		"KEYFORGE_REDIRECTS_SFS":          &w.RedirectsSfs,
		"KEYFORGE_BAD_REDIRECTS":          &w.BadRedirects,
		"KEYFORGE_BAD_REDIRECTS_SFS":      &w.BadRedirectsSfs,
		"KEYFORGE_MAX_FINGER_USE_PENALTY": &w.MaxFingerUse.Penalty,
		"KEYFORGE_MAX_FINGER_USE_PINKY":   &w.MaxFingerUse.Pinky,
		"KEYFORGE_MAX_FINGER_USE_RING":    &w.MaxFingerUse.Ring,
		"KEYFORGE_MAX_FINGER_USE_MIDDLE":  &w.MaxFingerUse.Middle,
		"KEYFORGE_MAX_FINGER_USE_INDEX":   &w.MaxFingerUse.Index,
	}
	for name, dst := range floats {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidWeights, name, v, err)
		}
		*dst = f
	}

	if v, ok := lookup("KEYFORGE_TRIGRAM_PRECISION"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: KEYFORGE_TRIGRAM_PRECISION=%q: %w", ErrInvalidWeights, v, err)
		}
		w.TrigramPrecision = n
	}
	return nil
}
