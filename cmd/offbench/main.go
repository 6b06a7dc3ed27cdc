// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command offbench offloads a fixed computation to a compute device,
// times every stage of the transfer and execution pipeline, and checks
// the result against a sequential reference.
//
// Usage:
//
//	offbench mxm   [platformIndex] [elementCount]
//	offbench ktm   [platformIndex] [elementCount] [datasetPath]
//	offbench query [platformIndex] [elementCount]
//	offbench devices
package main

import (
	"fmt"
	"os"

	_ "github.com/LynnColeArt/offbench/hostcl"
	_ "github.com/LynnColeArt/offbench/opencl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "offbench:", err)
		os.Exit(-1)
	}
}
