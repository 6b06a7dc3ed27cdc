// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workloads provides the compute payloads offbench can offload:
// a dense matrix-vector multiply, a telemetry map over motorcycle CAN bus
// samples, and a tuple projection query.
//
// Each workload knows its kernel entry point, the record layout of its
// arrays, how to fill its inputs, and how to compute the expected output
// sequentially on the host. Importing the package also registers the host
// implementation of every kernel with the hostcl platform.
package workloads

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LynnColeArt/offbench"
)

// Options configures workload construction.
type Options struct {
	// DatasetPath is an optional input file. Only ktm reads one.
	DatasetPath string
	// Seed drives the synthetic dataset generators.
	Seed int64
}

type factory func(Options) offbench.Workload

var factories = map[string]factory{
	MatVecName: func(o Options) offbench.Workload { return NewMatVec(o.Seed) },
	KTMName:    func(o Options) offbench.Workload { return NewKTM(o.DatasetPath, o.Seed) },
	QueryName:  func(Options) offbench.Workload { return NewQuery() },
}

// New returns the workload called name.
func New(name string, opts Options) (offbench.Workload, error) {
	f, ok := factories[name]
	if !ok {
		return nil, offbench.NewError(offbench.KindInvalidArgument, "workloads.New",
			fmt.Sprintf("unknown workload %q (available: %s)", name, strings.Join(Names(), ", ")), nil)
	}
	return f(opts), nil
}

// Names lists the available workloads.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// single returns the only input of a one-input workload.
func single(name string, inputs [][]byte) ([]byte, error) {
	if len(inputs) != 1 {
		return nil, offbench.NewError(offbench.KindInvalidArgument, name,
			fmt.Sprintf("expected 1 input array, got %d", len(inputs)), nil)
	}
	return inputs[0], nil
}
