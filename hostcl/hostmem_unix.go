// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package hostcl

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/LynnColeArt/offbench"
)

// mapHost maps an anonymous shared region, the host-side analogue of a
// runtime-allocated, host-accessible buffer.
func mapHost(size int) ([]byte, func([]byte) error, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return nil, nil, offbench.NewError(offbench.KindAllocationFailed, "AllocHost",
			fmt.Sprintf("mapping %d bytes", size), err)
	}
	return b, unix.Munmap, nil
}
