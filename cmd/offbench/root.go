// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/offbench/workloads"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "offbench",
		Short:         "Benchmark offloading a computation to an OpenCL-style device",
		Version:       version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log encoding (console, json)")
	root.PersistentFlags().Bool("print-config", false, "print the effective configuration and exit")

	root.AddCommand(
		newWorkloadCmd(workloads.MatVecName, "Matrix-vector multiply C = A x B", false),
		newWorkloadCmd(workloads.KTMName, "Curve radius map over CAN bus telemetry", true),
		newWorkloadCmd(workloads.QueryName, "Tuple projection with two computed columns", false),
		newDevicesCmd(),
	)
	return root
}

// version reports the module version of the binary. Development builds
// report "(devel)" followed by the VCS revision when the toolchain stamped
// one.
func version() string {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	return buildVersion(b)
}

func buildVersion(b *debug.BuildInfo) string {
	v := b.Main.Version
	if v == "" {
		v = "(devel)"
	}
	if v != "(devel)" {
		return v
	}
	var rev string
	var dirty bool
	for _, s := range b.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return v
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "+dirty"
	}
	return v + " " + rev
}
