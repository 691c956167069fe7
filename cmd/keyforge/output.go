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
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sugawarayuuta/sonnet"

	kb "github.com/AleutianAI/keyforge/services/generator/keyboard"
	"github.com/AleutianAI/keyforge/services/generator/results"
)

// layoutView is one printed layout.
type layoutView struct {
	ID        string  `json:"id,omitempty"`
	Layout    string  `json:"layout"`
	Score     float64 `json:"score"`
	Swaps     int     `json:"swaps,omitempty"`
	Rounds    int     `json:"rounds,omitempty"`
	Exhausted bool    `json:"exhausted,omitempty"`
	Pins      []int   `json:"pins,omitempty"`
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printJSON writes v as one line of JSON.
func printJSON(w io.Writer, v any) error {
	data, err := sonnet.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// printLayouts writes views as JSON, as key grids for a terminal, or as
// "score<TAB>layout" lines for pipes.
func printLayouts(w io.Writer, jsonOut bool, views []layoutView) error {
	if jsonOut {
		return printJSON(w, views)
	}
	if !isTerminal(w) {
		for _, v := range views {
			if _, err := fmt.Fprintf(w, "%.6f\t%s\n", v.Score, v.Layout); err != nil {
				return err
			}
		}
		return nil
	}

	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "#%d  score %.6f", i+1, v.Score)
		if v.Exhausted {
			fmt.Fprint(w, "  (search capped)")
		}
		if v.ID != "" {
			fmt.Fprintf(w, "  id %s", v.ID)
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, grid(v.Layout))
	}
	return nil
}

// grid renders 30 runes as three rows split between the hands.
func grid(compact string) string {
	runes := []rune(compact)
	if len(runes) != kb.PositionCount {
		return compact + "\n"
	}
	var b strings.Builder
	for row := 0; row < kb.Rows; row++ {
		b.WriteString("  ")
		for col := 0; col < kb.Columns; col++ {
			if col > 0 {
				b.WriteByte(' ')
			}
			if col == kb.Columns/2 {
				b.WriteByte(' ')
			}
			b.WriteRune(runes[row*kb.Columns+col])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// printRecords writes stored records as JSON or as a table.
func printRecords(w io.Writer, jsonOut bool, recs []results.Record) error {
	if jsonOut {
		return printJSON(w, recs)
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no stored layouts")
		return err
	}
	for _, r := range recs {
		_, err := fmt.Fprintf(w, "%s  %s  %-8s %-10s %12.6f  %s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Mode, r.Language, r.Score, r.Layout)
		if err != nil {
			return err
		}
	}
	return nil
}
