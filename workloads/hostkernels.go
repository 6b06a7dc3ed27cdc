// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workloads

import (
	"github.com/LynnColeArt/offbench"
	"github.com/LynnColeArt/offbench/hostcl"
)

// Host implementations of the kernels in the kernel directory. Each
// mirrors its OpenCL C source, including the bounds guard for padded
// work-items.
func init() {
	hostcl.RegisterKernel(matVecKernel,
		[]hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
		func(item hostcl.WorkItem, args hostcl.Args) {
			n := int(args.Int32(3))
			if item.GlobalID >= n {
				return
			}
			a := offbench.View[float32](args.Buffer(0))
			b := offbench.View[float32](args.Buffer(1))
			c := offbench.View[float32](args.Buffer(2))
			c[item.GlobalID] = matVecRow(a, b, n, item.GlobalID)
		})

	hostcl.RegisterKernel(ktmKernel,
		[]hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
		func(item hostcl.WorkItem, args hostcl.Args) {
			if item.GlobalID >= int(args.Int32(2)) {
				return
			}
			in := offbench.View[CanData](args.Buffer(0))
			out := offbench.View[AggregationInput](args.Buffer(1))
			out[item.GlobalID] = mapRiding(in[item.GlobalID])
		})

	hostcl.RegisterKernel(queryKernel,
		[]hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
		func(item hostcl.WorkItem, args hostcl.Args) {
			if item.GlobalID >= int(args.Int32(2)) {
				return
			}
			in := offbench.View[InputRecord](args.Buffer(0))
			out := offbench.View[OutputRecord](args.Buffer(1))
			out[item.GlobalID] = project(in[item.GlobalID])
		})
}
