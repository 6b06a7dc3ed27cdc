// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package hostcl

func systemMemory() uint64 {
	return defaultSystemMemory
}
