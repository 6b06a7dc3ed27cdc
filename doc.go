// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package offbench measures the cost of offloading a computation to an
// OpenCL-style compute device and checks the offloaded result.
//
// A run selects a platform and device through a Catalog, stages input
// arrays in host-accessible mapped memory, and drives an ExecutionContext
// through repeated iterations of three stages:
//   - write: non-blocking host to device transfers of every input
//   - dispatch: one kernel launch over a 1-D range of work-items
//   - read: a blocking device to host transfer of the result
//
// Every stage is timed with the device's own event clock, the iteration is
// timed with the host's wall clock, and the medians of each series are
// reported at the end. After every iteration the result is compared with
// a sequential reference computed on the host.
//
// Compute runtimes plug in as Drivers. The hostcl package provides an
// emulated platform that is always present; the opencl package binds real
// OpenCL platforms when built with the opencl tag.
package offbench
