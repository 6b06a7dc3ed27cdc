// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"runtime/debug"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/offbench"
)

const kernelDir = "../../kernels"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestApplyArgs(t *testing.T) {
	s := settings{Config: offbench.DefaultConfig()}
	require.NoError(t, applyArgs(&s, []string{"1", "2048", "ride.csv"}))
	assert.Equal(t, 1, s.PlatformIndex)
	assert.Equal(t, 2048, s.Elements)
	assert.Equal(t, "ride.csv", s.DatasetPath)

	s = settings{Config: offbench.DefaultConfig()}
	require.NoError(t, applyArgs(&s, nil))
	assert.Equal(t, 1024, s.Elements)

	for _, args := range [][]string{{"first"}, {"0", "many"}} {
		err := applyArgs(&s, args)
		assert.True(t, offbench.IsKind(err, offbench.KindInvalidArgument), "args %v: %v", args, err)
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &consoleReporter{w: &buf}
	r.Iteration(offbench.Sample{Iteration: 0, Write: 10, Kernel: 20, Read: 30, Total: 70})
	r.Verdict(offbench.Verdict{Correct: true})
	r.Verdict(offbench.Verdict{Mismatch: &offbench.Mismatch{Index: 3, Field: "radius", Device: 1, Reference: 2, Diff: 1}})

	want := "Iteration: 0\n" +
		"Write    : 10\n" +
		"X        : 20\n" +
		"Reading  : 30\n" +
		"Total    : 70\n\n" +
		"Result is correct\n\n" +
		"First divergence: [3] radius: device 1 - reference 2 (diff 1)\n" +
		"Result is not correct\n\n"
	assert.Equal(t, want, buf.String())
}

func TestPrintMedians(t *testing.T) {
	var stats offbench.Stats
	stats.Record(offbench.Sample{Write: 1, Kernel: 2, Read: 3, Total: 10})
	stats.Record(offbench.Sample{Write: 2, Kernel: 4, Read: 5, Total: 20})

	var buf bytes.Buffer
	printMedians(&buf, &stats)
	assert.Equal(t, "Median KernelTime: 3 (ns)\n"+
		"Median CopyInTime: 1.5 (ns)\n"+
		"Median CopyOutTime: 4 (ns)\n"+
		"Median TotalTime: 15 (ns)\n", buf.String())
}

func TestRunQuery(t *testing.T) {
	logDir := t.TempDir()
	metrics := filepath.Join(t.TempDir(), "offbench.prom")

	out, err := execute(t, "query", "0", "128",
		"--kernel-dir", kernelDir,
		"--iterations", "2",
		"--json-log", logDir,
		"--metrics-file", metrics)
	require.NoError(t, err, out)

	assert.Equal(t, 2, strings.Count(out, "Result is correct"))
	assert.Contains(t, out, "Iteration: 1\n")
	assert.Contains(t, out, "Median KernelTime: ")
	assert.Contains(t, out, "Median TotalTime: ")

	logs, err := filepath.Glob(filepath.Join(logDir, "query_*.json"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	rec, err := offbench.ReadRunLog(logs[0])
	require.NoError(t, err)
	assert.Equal(t, 128, rec.Elements)
	assert.Equal(t, 16, rec.LocalSize)
	assert.Len(t, rec.Samples, 2)
	assert.Empty(t, rec.Error)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `offbench_iterations_total{workload="query"} 2`)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
		kind offbench.Kind
	}{
		{"missing kernels", []string{"mxm", "0", "64", "--kernel-dir", "/nonexistent"}, offbench.KindSourceReadError},
		{"bad platform", []string{"query", "9", "64", "--kernel-dir", kernelDir}, offbench.KindNoPlatformFound},
		{"zero count", []string{"query", "0", "0", "--kernel-dir", kernelDir}, offbench.KindInvalidArgument},
		{"bad dataset", []string{"ktm", "0", "64", "/nonexistent.csv", "--kernel-dir", kernelDir}, offbench.KindInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.True(t, offbench.IsKind(err, tc.kind), "got %v", err)
		})
	}
}

func TestTooManyArgs(t *testing.T) {
	_, err := execute(t, "query", "0", "64", "extra.csv")
	assert.Error(t, err)
}

func TestDatasetFlagOnlyOnKTM(t *testing.T) {
	for _, name := range []string{"mxm", "query"} {
		_, err := execute(t, name, "0", "64", "--dataset", "ride.csv", "--print-config")
		assert.ErrorContains(t, err, "unknown flag: --dataset", name)
	}

	out, err := execute(t, "ktm", "0", "64", "--dataset", "ride.csv", "--print-config")
	require.NoError(t, err)
	assert.Contains(t, out, "dataset: ride.csv\n")
}

func TestPrintConfig(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "offbench.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("iterations: 3\nelements: 99\nseed: 5\n"), 0o644))
	t.Setenv("OFFBENCH_SEED", "11")

	out, err := execute(t, "ktm", "0", "64", "ride.csv",
		"--config", cfgFile, "--tolerance", "0.5", "--print-config")
	require.NoError(t, err)

	assert.Contains(t, out, "workload: ktm\n")
	assert.Contains(t, out, "elements: 64\n", "positional arguments win")
	assert.Contains(t, out, "iterations: 3\n", "config file beats defaults")
	assert.Contains(t, out, "seed: 11\n", "environment beats config file")
	assert.Contains(t, out, "tolerance: 0.5\n", "flags beat everything")
	assert.Contains(t, out, "dataset: ride.csv\n")
	assert.NotContains(t, out, "Iteration:")
}

func TestDevices(t *testing.T) {
	out, err := execute(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform 0\n")
	assert.Contains(t, out, "Host Emulated Platform")
	assert.Contains(t, out, "[cpu 0] Host CPU")
}

func TestBuildVersion(t *testing.T) {
	tests := []struct {
		name string
		info debug.BuildInfo
		want string
	}{
		{"tagged", debug.BuildInfo{Main: debug.Module{Version: "v0.3.1"}}, "v0.3.1"},
		{"empty", debug.BuildInfo{}, "(devel)"},
		{"devel without vcs", debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "(devel)"},
		{"devel with revision", debug.BuildInfo{
			Main: debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.modified", Value: "true"},
			},
		}, "(devel) 0123456789ab+dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildVersion(&tc.info))
		})
	}
}
