// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"fmt"
)

// Run defaults
const (
	// DefaultIterations is the number of offload cycles per run.
	DefaultIterations = 1

	// DefaultLocalSize is the work-group size used when a workload does not
	// choose one.
	DefaultLocalSize = 256

	// DefaultKernelDir holds the kernel sources, relative to the working
	// directory.
	DefaultKernelDir = "kernels"

	// DefaultSeed seeds synthetic dataset generators.
	DefaultSeed = 1
)

// Config holds the parameters of one benchmark run.
type Config struct {
	Workload      string  `mapstructure:"workload" yaml:"workload"`
	PlatformIndex int     `mapstructure:"platform" yaml:"platform"`
	Elements      int     `mapstructure:"elements" yaml:"elements"`
	DatasetPath   string  `mapstructure:"dataset" yaml:"dataset,omitempty"`
	Iterations    int     `mapstructure:"iterations" yaml:"iterations"`
	LocalSize     int     `mapstructure:"local_size" yaml:"local_size"` // 0 selects the workload default
	Tolerance     float64 `mapstructure:"tolerance" yaml:"tolerance"`
	CheckResult   bool    `mapstructure:"check_result" yaml:"check_result"`
	KernelDir     string  `mapstructure:"kernel_dir" yaml:"kernel_dir"`
	Seed          int64   `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the defaults of the original harness.
func DefaultConfig() Config {
	return Config{
		Elements:    1024,
		Iterations:  DefaultIterations,
		Tolerance:   DefaultTolerance,
		CheckResult: true,
		KernelDir:   DefaultKernelDir,
		Seed:        DefaultSeed,
	}
}

// Validate checks the numeric parameters. The platform index is checked
// by device discovery.
func (c Config) Validate() error {
	switch {
	case c.Elements <= 0:
		return NewError(KindInvalidArgument, "Config", fmt.Sprintf("elements must be positive, got %d", c.Elements), nil)
	case c.Elements > maxElements:
		return NewError(KindInvalidArgument, "Config", fmt.Sprintf("elements must not exceed %d, got %d", maxElements, c.Elements), nil)
	case c.Iterations < 0:
		return NewError(KindInvalidArgument, "Config", fmt.Sprintf("iterations must not be negative, got %d", c.Iterations), nil)
	case c.LocalSize < 0:
		return NewError(KindInvalidArgument, "Config", fmt.Sprintf("local size must not be negative, got %d", c.LocalSize), nil)
	case c.Tolerance < 0:
		return NewError(KindInvalidArgument, "Config", fmt.Sprintf("tolerance must not be negative, got %g", c.Tolerance), nil)
	}
	return nil
}

// maxElements keeps the scalar count argument within int32.
const maxElements = 1<<31 - 1
