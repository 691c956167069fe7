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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/keyforge/services/generator/results"
)

func runResultsList(cmd *cobra.Command, opts *options) error {
	s, err := openSession(cmd, opts, sessionNeeds{store: true})
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.store.List(cmd.Context(), opts.limit)
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), opts.jsonOut, recs)
}

func runResultsTop(cmd *cobra.Command, opts *options) error {
	s, err := openSession(cmd, opts, sessionNeeds{store: true})
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.store.Top(cmd.Context(), opts.limit, opts.language)
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), opts.jsonOut, recs)
}

func runResultsShow(cmd *cobra.Command, opts *options, id string) error {
	s, err := openSession(cmd, opts, sessionNeeds{store: true})
	if err != nil {
		return err
	}
	defer s.Close()

	rec, err := s.store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	return writeRecord(cmd, rec)
}

func runResultsDelete(cmd *cobra.Command, opts *options, id string) error {
	s, err := openSession(cmd, opts, sessionNeeds{store: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	s.logger.Info("result deleted", "id", id)
	return nil
}

func writeRecord(cmd *cobra.Command, rec results.Record) error {
	out := cmd.OutOrStdout()
	c := rec.Components
	_, err := fmt.Fprintf(out, "id        %s\ncreated   %s\nmode      %s\nlanguage  %s\nscore     %.6f\n%s\n"+
		"trigrams %+.6f  usage %+.6f  speed %+.6f  scissors %+.6f  lsbs %+.6f  pinky/ring %+.6f  stretches %+.6f\n",
		rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), rec.Mode, rec.Language, rec.Score,
		grid(rec.Layout),
		c.Trigrams, -c.Usage, -c.FingerSpeed, -c.Scissors, -c.LSBs, -c.PinkyRing, -c.Stretches,
	)
	return err
}
