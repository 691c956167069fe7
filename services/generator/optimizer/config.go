// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package optimizer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration indicates an optimizer or run config that failed validation.
var ErrConfiguration = errors.New("optimizer configuration error")

var optimizerValidate = validator.New()

// Config controls the search shared by every generation mode.
type Config struct {
	// MaxSwaps caps the swaps committed by one hill climb. Reaching it ends
	// the climb with Exhausted set.
	MaxSwaps int `yaml:"max_swaps" validate:"gt=0"`

	// MaxRounds caps the climb/column-refine alternations of one Optimize.
	MaxRounds int `yaml:"max_rounds" validate:"gt=0"`

	// Workers bounds parallel generation. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`

	// Seed makes batch runs reproducible. Zero draws a fresh seed per run.
	Seed uint64 `yaml:"seed"`

	// Logger receives progress logs. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-" validate:"-"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxSwaps:  10_000,
		MaxRounds: 100,
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := optimizerValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// AnnealConfig parameterizes simulated annealing.
type AnnealConfig struct {
	// InitialTemperature is the starting temperature in score units.
	InitialTemperature float64 `yaml:"initial_temperature" validate:"gt=0"`

	// CoolingRate multiplies the temperature after every iteration.
	CoolingRate float64 `yaml:"cooling_rate" validate:"gt=0,lt=1"`

	// Iterations is the number of random swaps proposed.
	Iterations int `yaml:"iterations" validate:"gt=0"`

	// Seed fixes the swap sequence. Zero draws a fresh seed.
	Seed uint64 `yaml:"seed"`
}

// DefaultAnnealConfig returns a schedule that cools from 10 to roughly
// 2e-8 over two million iterations.
func DefaultAnnealConfig() AnnealConfig {
	return AnnealConfig{
		InitialTemperature: 10,
		CoolingRate:        0.99999,
		Iterations:         2_000_000,
	}
}

// Validate checks field constraints.
func (c AnnealConfig) Validate() error {
	if err := optimizerValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

// IterateConfig parameterizes iterative pinned refinement.
type IterateConfig struct {
	// Steps is how many characters get pinned, most frequent first.
	Steps int `yaml:"steps" validate:"gt=0,lte=30"`

	// BatchSize is the number of pinned candidates optimized per step.
	BatchSize int `yaml:"batch_size" validate:"gt=0"`
}

// DefaultIterateConfig pins every generation character, one per step.
func DefaultIterateConfig() IterateConfig {
	return IterateConfig{
		Steps:     30,
		BatchSize: 250,
	}
}

// Validate checks field constraints.
func (c IterateConfig) Validate() error {
	if err := optimizerValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
