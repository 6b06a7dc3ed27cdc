// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LynnColeArt/offbench"
)

// settings is the effective configuration of one invocation: the run
// parameters plus output and logging options.
type settings struct {
	offbench.Config `mapstructure:",squash" yaml:",inline"`

	JSONLogDir  string `mapstructure:"json_log" yaml:"json_log,omitempty"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`
	Trace       bool   `mapstructure:"trace" yaml:"trace"`
	Progress    bool   `mapstructure:"progress" yaml:"progress"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"platform":     "platform",
	"elements":     "elements",
	"dataset":      "dataset",
	"iterations":   "iterations",
	"local-size":   "local_size",
	"tolerance":    "tolerance",
	"check":        "check_result",
	"kernel-dir":   "kernel_dir",
	"seed":         "seed",
	"json-log":     "json_log",
	"metrics-file": "metrics_file",
	"trace":        "trace",
	"progress":     "progress",
	"log-level":    "log_level",
	"log-format":   "log_format",
}

// addRunFlags registers the run flags. Only workloads that read a dataset
// file get --dataset.
func addRunFlags(cmd *cobra.Command, dataset bool) {
	d := offbench.DefaultConfig()
	f := cmd.PersistentFlags()
	f.Int("platform", d.PlatformIndex, "platform index")
	f.Int("elements", d.Elements, "number of elements")
	if dataset {
		f.String("dataset", "", "CSV dataset file")
	}
	f.Int("iterations", d.Iterations, "offload iterations")
	f.Int("local-size", 0, "work-group size, 0 for the workload default")
	f.Float64("tolerance", d.Tolerance, "absolute tolerance of the result check")
	f.Bool("check", d.CheckResult, "compare device results with the sequential reference")
	f.String("kernel-dir", d.KernelDir, "directory holding the kernel sources")
	f.Int64("seed", d.Seed, "seed of synthetic datasets")
	f.String("json-log", "", "write a JSON run log into this directory")
	f.String("metrics-file", "", "write Prometheus metrics to this file")
	f.Bool("trace", false, "export OpenTelemetry spans to stderr")
	f.Bool("progress", false, "show a progress bar on stderr")
}

// loadSettings merges defaults, the optional config file, OFFBENCH_*
// environment variables and flags, in increasing precedence.
func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	d := offbench.DefaultConfig()
	v.SetDefault("platform", d.PlatformIndex)
	v.SetDefault("elements", d.Elements)
	v.SetDefault("iterations", d.Iterations)
	v.SetDefault("tolerance", d.Tolerance)
	v.SetDefault("check_result", d.CheckResult)
	v.SetDefault("kernel_dir", d.KernelDir)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")

	v.SetEnvPrefix("OFFBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil {
			if err := v.BindPFlag(key, fl); err != nil {
				return settings{}, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return settings{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return s, nil
}
