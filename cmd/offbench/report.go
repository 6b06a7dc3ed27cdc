// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/LynnColeArt/offbench"
)

// consoleReporter prints per-iteration timings and verdicts in the
// harness's plain text format.
type consoleReporter struct {
	w io.Writer
}

func (c *consoleReporter) Iteration(s offbench.Sample) {
	fmt.Fprintf(c.w, "Iteration: %d\n", s.Iteration)
	fmt.Fprintf(c.w, "Write    : %d\n", s.Write)
	fmt.Fprintf(c.w, "X        : %d\n", s.Kernel)
	fmt.Fprintf(c.w, "Reading  : %d\n", s.Read)
	fmt.Fprintf(c.w, "Total    : %d\n", s.Total)
	fmt.Fprintln(c.w)
}

func (c *consoleReporter) Verdict(v offbench.Verdict) {
	if v.Mismatch != nil {
		fmt.Fprintf(c.w, "First divergence: %s\n", v.Mismatch)
	}
	fmt.Fprintln(c.w, v)
	fmt.Fprintln(c.w)
}

var medianLabels = map[offbench.Series]string{
	offbench.SeriesKernel: "KernelTime",
	offbench.SeriesWrite:  "CopyInTime",
	offbench.SeriesRead:   "CopyOutTime",
	offbench.SeriesTotal:  "TotalTime",
}

func printMedians(w io.Writer, stats *offbench.Stats) {
	for _, s := range offbench.AllSeries {
		fmt.Fprintf(w, "Median %s: %g (ns)\n", medianLabels[s], stats.Median(s))
	}
}
