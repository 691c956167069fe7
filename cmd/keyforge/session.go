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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyforge/pkg/logging"
	"github.com/AleutianAI/keyforge/services/generator/ngrams"
	"github.com/AleutianAI/keyforge/services/generator/optimizer"
	"github.com/AleutianAI/keyforge/services/generator/results"
	"github.com/AleutianAI/keyforge/services/generator/scoring"
	"github.com/AleutianAI/keyforge/services/generator/storage/badger"
	"github.com/AleutianAI/keyforge/services/generator/weights"
)

const metricsShutdownTimeout = 5 * time.Second

// session is everything one command invocation needs, opened from flags.
type session struct {
	logger    *logging.Logger
	scorer    *scoring.Scorer
	optimizer *optimizer.Optimizer
	db        *badger.DB
	store     *results.Store
	metrics   *http.Server
}

// sessionNeeds selects which parts openSession builds.
type sessionNeeds struct {
	scorer bool
	store  bool
}

// openSession builds the logger, then the scorer and optimizer, then the
// results store, as requested by needs.
//
// Description:
//
//	The metrics server starts whenever --metrics-addr is set so that a
//	long search can be watched while it runs. The store is opened when
//	--db is set; needs.store makes a missing --db a usage error.
//
// Outputs:
//   - *session: The session. Close it when the command ends.
//   - error: Wraps errUsage for bad flags; other errors come from loading
//     the corpus, weights or database.
func openSession(cmd *cobra.Command, opts *options, needs sessionNeeds) (*session, error) {
	level, err := logging.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}
	format, err := logging.ParseFormat(opts.logFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	s := &session{
		logger: logging.New(logging.Config{
			Level:   level,
			Format:  format,
			LogDir:  opts.logDir,
			Service: "keyforge",
			Output:  cmd.ErrOrStderr(),
		}),
	}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	if opts.metricsAddr != "" {
		if err := s.serveMetrics(opts.metricsAddr); err != nil {
			return nil, err
		}
	}

	if needs.scorer {
		if err := s.loadScorer(opts); err != nil {
			return nil, err
		}
	}

	if opts.dbPath != "" {
		if err := s.openStore(opts, level); err != nil {
			return nil, err
		}
	} else if needs.store {
		return nil, fmt.Errorf("%w: --db is required", errUsage)
	}

	ok = true
	return s, nil
}

// loadScorer reads the weights and corpus and builds the scorer and
// optimizer.
func (s *session) loadScorer(opts *options) error {
	if opts.corpus == "" {
		return fmt.Errorf("%w: --corpus is required", errUsage)
	}

	w, err := weights.Load(opts.weights)
	if err != nil {
		return err
	}
	raw, err := ngrams.LoadJSON(expandPath(opts.corpus))
	if err != nil {
		return err
	}
	model, err := ngrams.Build(raw, generationChars(opts.chars), w.TrigramPrecision)
	if err != nil {
		return err
	}
	scorer, err := scoring.NewScorer(model, w)
	if err != nil {
		return err
	}
	opt, err := optimizer.New(scorer, optimizer.Config{
		MaxSwaps:  opts.maxSwaps,
		MaxRounds: opts.maxRounds,
		Workers:   opts.workers,
		Seed:      opts.seed,
		Logger:    s.logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	s.scorer = scorer
	s.optimizer = opt
	s.logger.Debug("corpus loaded",
		slog.String("language", model.Language()),
		slog.Int("characters", model.Len()),
		slog.Int("trigrams", len(model.Trigrams())),
	)
	return nil
}

func (s *session) openStore(opts *options, level logging.Level) error {
	cfg := badger.DefaultConfig(expandPath(opts.dbPath))
	if level == logging.LevelDebug {
		cfg.Logger = s.logger.Slog().With(slog.String("component", "badger"))
	}
	db, err := badger.Open(cfg)
	if err != nil {
		return err
	}
	store, err := results.NewStore(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	s.store = store
	return nil
}

// serveMetrics exposes the default Prometheus registry on /metrics.
func (s *session) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s.metrics = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger := s.logger
	go func() {
		if err := s.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("serving metrics", slog.String("address", ln.Addr().String()))
	return nil
}

// Close stops the metrics server and closes the database and log file.
func (s *session) Close() error {
	var errs []error
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		errs = append(errs, s.metrics.Shutdown(ctx))
		cancel()
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	errs = append(errs, s.logger.Close())
	return errors.Join(errs...)
}

// language returns the corpus language recorded with stored results.
func (s *session) language() string {
	if s.scorer == nil {
		return ""
	}
	return s.scorer.Model().Language()
}

// generationChars strips whitespace from the --chars value.
func generationChars(chars string) []rune {
	out := make([]rune, 0, len(chars))
	for _, r := range chars {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}

// readLayoutArg returns the layout text of arg, reading it from a file when
// arg starts with '@'.
func readLayoutArg(arg string) (string, error) {
	if !strings.HasPrefix(arg, "@") {
		return arg, nil
	}
	data, err := os.ReadFile(expandPath(arg[1:]))
	if err != nil {
		return "", fmt.Errorf("read layout file: %w", err)
	}
	return string(data), nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
