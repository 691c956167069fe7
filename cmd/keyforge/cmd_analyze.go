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
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/patterns"
	"github.com/AleutianAI/keyforge/services/generator/scoring"
)

// analysis is the JSON form of the analyze command.
type analysis struct {
	Layout    string              `json:"layout"`
	Language  string              `json:"language"`
	Stats     scoring.Stats       `json:"stats"`
	WorstSFBs []scoring.PairShare `json:"worst_sfbs"`
}

func runAnalyze(cmd *cobra.Command, opts *options, arg string) error {
	s, err := openSession(cmd, opts, sessionNeeds{scorer: true})
	if err != nil {
		return err
	}
	defer s.Close()

	l, err := s.parseLayout(arg)
	if err != nil {
		return err
	}
	a := analysis{
		Layout:    l.Compact(s.scorer.Model().Index()),
		Language:  s.language(),
		Stats:     s.scorer.Stats(l),
		WorstSFBs: s.scorer.WorstSameFinger(l, opts.sfbs),
	}

	if opts.jsonOut {
		return printJSON(cmd.OutOrStdout(), a)
	}
	return writeAnalysis(cmd.OutOrStdout(), a)
}

// writeAnalysis prints an analysis as aligned text.
func writeAnalysis(out io.Writer, a analysis) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	st := a.Stats
	c := st.Components

	fmt.Fprint(w, grid(a.Layout))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "score\t%.6f\n", st.Score)
	fmt.Fprintf(w, "  trigrams\t%+.6f\n", c.Trigrams)
	fmt.Fprintf(w, "  finger usage\t%+.6f\n", -c.Usage)
	fmt.Fprintf(w, "  finger speed\t%+.6f\n", -c.FingerSpeed)
	fmt.Fprintf(w, "  scissors\t%+.6f\n", -c.Scissors)
	fmt.Fprintf(w, "  lateral stretches\t%+.6f\n", -c.LSBs)
	fmt.Fprintf(w, "  pinky/ring\t%+.6f\n", -c.PinkyRing)
	fmt.Fprintf(w, "  stretches\t%+.6f\n", -c.Stretches)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "sfb\t%s\n", percent(st.SFB))
	for d, v := range st.DSFB {
		fmt.Fprintf(w, "dsfb%d\t%s\n", d+1, percent(v))
	}
	fmt.Fprintf(w, "scissors\t%s\n", percent(st.Scissors))
	fmt.Fprintf(w, "lsbs\t%s\n", percent(st.LSBs))
	fmt.Fprintf(w, "pinky/ring\t%s\n", percent(st.PinkyRing))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "finger\tusage\tspeed")
	for f := kb.Finger(0); f < kb.FingerCount; f++ {
		if st.FingerUsage[f] == 0 && st.FingerSpeed[f] == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.6f\n", f, percent(st.FingerUsage[f]), st.FingerSpeed[f])
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "trigram pattern\tshare")
	for _, p := range patterns.All() {
		if st.Trigrams[p] == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", p, percent(st.Trigrams[p]))
	}

	if len(a.WorstSFBs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "same-finger bigram\tshare")
		for _, ps := range a.WorstSFBs {
			fmt.Fprintf(w, "%q\t%s\n", ps.Pair, percent(ps.Freq))
		}
	}
	return w.Flush()
}

func percent(v float64) string {
	return fmt.Sprintf("%.3f%%", v*100)
}
