// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// cpuFeatures lists the SIMD extensions relevant to kernel throughput.
func cpuFeatures() []string {
	var features []string
	switch runtime.GOARCH {
	case "amd64", "386":
		if cpu.X86.HasSSE41 || cpu.X86.HasSSE42 {
			features = append(features, "SSE4")
		}
		if cpu.X86.HasAVX {
			features = append(features, "AVX")
		}
		if cpu.X86.HasAVX2 {
			features = append(features, "AVX2")
		}
		if cpu.X86.HasFMA {
			features = append(features, "FMA")
		}
		if cpu.X86.HasAVX512F {
			features = append(features, "AVX512F")
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			features = append(features, "NEON")
		}
		if cpu.ARM64.HasFPHP {
			features = append(features, "FP16")
		}
		if cpu.ARM64.HasSVE {
			features = append(features, "SVE")
		}
	}
	return features
}

func cpuDeviceName() string {
	name := "Host CPU " + runtime.GOARCH
	if f := cpuFeatures(); len(f) > 0 {
		name += " (" + strings.Join(f, ", ") + ")"
	}
	return name
}
