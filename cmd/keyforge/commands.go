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
	"errors"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyforge/services/generator/optimizer"
)

// errUsage marks errors caused by bad flags or arguments.
var errUsage = errors.New("usage")

// defaultChars is the generation set used when --chars is not given.
const defaultChars = "qwertyuiopasdfghjkl;zxcvbnm,./"

// options holds every flag value. One instance backs one command tree.
type options struct {
	// --- Global ---
	corpus      string
	weights     string
	chars       string
	logLevel    string
	logFormat   string
	logDir      string
	metricsAddr string
	dbPath      string
	seed        uint64
	workers     int
	maxSwaps    int
	maxRounds   int
	jsonOut     bool

	// --- generate / improve ---
	count int
	top   int
	pins  string
	save  bool

	// --- iterate ---
	steps     int
	batchSize int
	from      string

	// --- anneal ---
	temperature float64
	cooling     float64
	iterations  int

	// --- analyze ---
	sfbs int

	// --- results ---
	limit    int
	language string
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}
	optDefaults := optimizer.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "keyforge",
		Short: "Score and generate 30-key keyboard layouts",
		Long: `keyforge rates keyboard layouts against corpus statistics and
searches for better ones by hill climbing, column refinement and simulated
annealing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.corpus, "corpus", "", "corpus statistics JSON file")
	pf.StringVar(&opts.weights, "weights", "", "weights YAML file (defaults are used when empty)")
	pf.StringVar(&opts.chars, "chars", defaultChars, "the 30 characters a generated layout places")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "auto", "log format (auto, text, json)")
	pf.StringVar(&opts.logDir, "log-dir", "", "also write JSON logs to this directory")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running, e.g. :9464")
	pf.StringVar(&opts.dbPath, "db", "", "results database directory (results are not stored when empty)")
	pf.Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one at random)")
	pf.IntVar(&opts.workers, "workers", 0, "parallel workers (0 uses every CPU)")
	pf.IntVar(&opts.maxSwaps, "max-swaps", optDefaults.MaxSwaps, "swap cap of one hill climb")
	pf.IntVar(&opts.maxRounds, "max-rounds", optDefaults.MaxRounds, "cap on climb/refine alternations")
	pf.BoolVar(&opts.jsonOut, "json", false, "print machine-readable JSON")

	rootCmd.AddCommand(
		newGenerateCmd(opts),
		newImproveCmd(opts),
		newIterateCmd(opts),
		newAnnealCmd(opts),
		newAnalyzeCmd(opts),
		newResultsCmd(opts),
	)
	return rootCmd
}

// =============================================================================
// Search Commands
// =============================================================================

func newGenerateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Optimize random layouts and print the best",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.count, "count", 100, "number of random layouts to optimize")
	cmd.Flags().IntVar(&opts.top, "top", 1, "number of best layouts to print")
	cmd.Flags().BoolVar(&opts.save, "save", true, "store printed layouts in --db")
	return cmd
}

func newImproveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "improve <layout>",
		Short: "Reshuffle and optimize a layout while keeping pinned keys in place",
		Long: `improve starts from the given layout, reshuffles every key not covered
by --pins and optimizes the result. The pins mask has 30 characters in
row-major order; 'x' pins a key and anything else leaves it free.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImprove(cmd, opts, args[0])
		},
	}
	cmd.Flags().IntVar(&opts.count, "count", 100, "number of reshuffles to optimize")
	cmd.Flags().IntVar(&opts.top, "top", 1, "number of best layouts to print")
	cmd.Flags().StringVar(&opts.pins, "pins", "", "pin mask, e.g. \"xxx.. ..... ..... ..... ..... .....\"")
	cmd.Flags().BoolVar(&opts.save, "save", true, "store printed layouts in --db")
	return cmd
}

func newIterateCmd(opts *options) *cobra.Command {
	defaults := optimizer.DefaultIterateConfig()
	cmd := &cobra.Command{
		Use:   "iterate",
		Short: "Refine a layout by pinning one character per step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIterate(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.steps, "steps", defaults.Steps, "number of characters to pin")
	cmd.Flags().IntVar(&opts.batchSize, "batch", defaults.BatchSize, "layouts optimized per step")
	cmd.Flags().StringVar(&opts.from, "from", "", "starting layout (a random optimized layout when empty)")
	cmd.Flags().BoolVar(&opts.save, "save", true, "store the result in --db")
	return cmd
}

func newAnnealCmd(opts *options) *cobra.Command {
	defaults := optimizer.DefaultAnnealConfig()
	cmd := &cobra.Command{
		Use:   "anneal",
		Short: "Search with simulated annealing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnneal(cmd, opts)
		},
	}
	cmd.Flags().Float64Var(&opts.temperature, "temperature", defaults.InitialTemperature, "initial temperature")
	cmd.Flags().Float64Var(&opts.cooling, "cooling", defaults.CoolingRate, "temperature multiplier per iteration")
	cmd.Flags().IntVar(&opts.iterations, "iterations", defaults.Iterations, "number of proposed swaps")
	cmd.Flags().StringVar(&opts.from, "from", "", "starting layout (random when empty)")
	cmd.Flags().BoolVar(&opts.save, "save", true, "store the result in --db")
	return cmd
}

// =============================================================================
// Reporting Commands
// =============================================================================

func newAnalyzeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <layout>",
		Short: "Print the score breakdown and statistics of a layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}
	cmd.Flags().IntVar(&opts.sfbs, "sfbs", 10, "number of worst same-finger bigrams to list")
	return cmd
}

func newResultsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Browse stored layouts (requires --db)",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored layouts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsList(cmd, opts)
		},
	}
	listCmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum records to print (0 prints all)")

	topCmd := &cobra.Command{
		Use:   "top",
		Short: "List the best stored layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsTop(cmd, opts)
		},
	}
	topCmd.Flags().IntVar(&opts.limit, "n", 10, "maximum records to print (0 prints all)")
	topCmd.Flags().StringVar(&opts.language, "language", "", "only layouts scored on this corpus language")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one stored layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsShow(cmd, opts, args[0])
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one stored layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsDelete(cmd, opts, args[0])
		},
	}

	cmd.AddCommand(listCmd, topCmd, showCmd, deleteCmd)
	return cmd
}
