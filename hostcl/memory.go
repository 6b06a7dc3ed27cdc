// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"errors"
	"fmt"
	"sync"

	"github.com/LynnColeArt/offbench"
)

const (
	// alignment is the cache line size device regions are rounded to.
	alignment = 64

	defaultSystemMemory = 16 << 30
)

var errDoubleFree = errors.New("hostcl: buffer released twice")

// memoryPool manages device-resident regions with reuse. It keeps a free
// list of previously released blocks and enforces the device memory limit.
type memoryPool struct {
	mu       sync.Mutex
	limit    int64
	inUse    int64
	peak     int64
	freeList [][]byte
}

func newMemoryPool(limit int64) *memoryPool {
	return &memoryPool{limit: limit}
}

// allocate returns a zeroed region of at least size bytes.
func (mp *memoryPool) allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, offbench.NewError(offbench.KindAllocationFailed, "AllocDevice",
			fmt.Sprintf("size must be positive, got %d", size), nil)
	}
	aligned := (size + alignment - 1) &^ (alignment - 1)

	mp.mu.Lock()
	defer mp.mu.Unlock()

	for i, blk := range mp.freeList {
		if cap(blk) >= aligned {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			blk = blk[:cap(blk)]
			clear(blk)
			mp.track(int64(cap(blk)))
			return blk[:size], nil
		}
	}

	if mp.limit > 0 && mp.inUse+int64(aligned) > mp.limit {
		return nil, offbench.NewError(offbench.KindAllocationFailed, "AllocDevice",
			fmt.Sprintf("requested %d bytes, %d of %d in use", size, mp.inUse, mp.limit), nil)
	}
	blk := make([]byte, aligned)
	mp.track(int64(aligned))
	return blk[:size], nil
}

func (mp *memoryPool) track(n int64) {
	mp.inUse += n
	if mp.inUse > mp.peak {
		mp.peak = mp.inUse
	}
}

// free returns a region to the pool.
func (mp *memoryPool) free(blk []byte) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.inUse -= int64(cap(blk))
	mp.freeList = append(mp.freeList, blk)
}

// Stats returns the bytes currently in use and the peak.
func (mp *memoryPool) stats() (inUse, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.inUse, mp.peak
}

// deviceBuffer is a device-resident region owned by one queue.
type deviceBuffer struct {
	owner    *Queue
	data     []byte
	released bool
}

// Size implements offbench.DeviceBuffer.
func (b *deviceBuffer) Size() int { return len(b.data) }

// Release implements offbench.DeviceBuffer.
func (b *deviceBuffer) Release() error {
	if b.released {
		return errDoubleFree
	}
	b.released = true
	b.owner.memory.free(b.data)
	b.data = nil
	return nil
}

// hostBuffer is a mapped staging region.
type hostBuffer struct {
	owner    *Queue
	data     []byte
	access   offbench.MapAccess
	unmap    func([]byte) error
	released bool
}

// Bytes implements offbench.HostBuffer.
func (b *hostBuffer) Bytes() []byte { return b.data }

// Release implements offbench.HostBuffer.
func (b *hostBuffer) Release() error {
	if b.released {
		return errDoubleFree
	}
	b.released = true
	data := b.data
	b.data = nil
	return b.unmap(data)
}
