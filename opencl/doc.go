// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package opencl binds native OpenCL platforms as offbench drivers.
//
// The driver needs cgo and an OpenCL ICD loader and is only compiled with
// the opencl build tag:
//
//	go build -tags opencl ./cmd/offbench
//
// Importing the package registers the driver. Native platforms are listed
// before the emulated host platform, so platform index 0 is the first
// OpenCL platform when one is installed.
package opencl
