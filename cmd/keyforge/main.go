// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command keyforge scores and generates 30-key keyboard layouts.
//
// Usage:
//
//	keyforge --corpus english.json generate --count 500
//	keyforge --corpus english.json improve "qwertyuiopasdfghjkl;zxcvbnm,./" --pins "xxxxx ....."
//	keyforge --corpus english.json analyze "qwertyuiopasdfghjkl;zxcvbnm,./"
//	keyforge --db ~/.keyforge/results results top --n 5
//
// Interrupting a run (Ctrl-C) cancels the search; commands that can return
// a partial answer print the best layout found so far.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, errUsage):
		return exitUsage
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitError
	}
}
