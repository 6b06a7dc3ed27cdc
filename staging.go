// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"fmt"

	"go.uber.org/multierr"
)

// MappedBuffer is a host-accessible staging region backing one input
// dataset or one result array. Its bytes stay valid until the manager that
// allocated it is released.
type MappedBuffer struct {
	buf      HostBuffer
	access   MapAccess
	size     int
	released bool
}

// Bytes returns the mapped region, or nil once the buffer is unmapped.
func (m *MappedBuffer) Bytes() []byte {
	if m.released {
		return nil
	}
	return m.buf.Bytes()[:m.size]
}

// Size returns the requested size in bytes.
func (m *MappedBuffer) Size() int { return m.size }

// Access returns the mapping mode.
func (m *MappedBuffer) Access() MapAccess { return m.access }

// StagingManager allocates mapped buffers from a queue's context and
// releases all of them together at teardown.
type StagingManager struct {
	queue   Queue
	buffers []*MappedBuffer
}

// NewStagingManager creates a manager allocating from q.
func NewStagingManager(q Queue) *StagingManager {
	return &StagingManager{queue: q}
}

// AllocateInput allocates a buffer mapped for host writes.
func (s *StagingManager) AllocateInput(size int) (*MappedBuffer, error) {
	return s.allocate(size, MapWrite)
}

// AllocateOutput allocates a buffer mapped for host reads.
func (s *StagingManager) AllocateOutput(size int) (*MappedBuffer, error) {
	return s.allocate(size, MapRead)
}

func (s *StagingManager) allocate(size int, access MapAccess) (*MappedBuffer, error) {
	if size <= 0 {
		return nil, NewError(KindAllocationFailed, "Staging",
			fmt.Sprintf("size must be positive, got %d", size), nil)
	}
	hb, err := s.queue.AllocHost(size, access)
	if err != nil {
		if IsKind(err, KindAllocationFailed) {
			return nil, err
		}
		return nil, NewError(KindAllocationFailed, "Staging",
			fmt.Sprintf("mapping %d bytes for %s", size, access), err)
	}
	if len(hb.Bytes()) < size {
		_ = hb.Release()
		return nil, NewError(KindAllocationFailed, "Staging",
			fmt.Sprintf("runtime mapped %d bytes, requested %d", len(hb.Bytes()), size), nil)
	}
	mb := &MappedBuffer{buf: hb, access: access, size: size}
	s.buffers = append(s.buffers, mb)
	return mb, nil
}

// Release unmaps every buffer. It is safe to call more than once.
func (s *StagingManager) Release() error {
	var err error
	for _, b := range s.buffers {
		err = multierr.Append(err, b.buf.Release())
		b.released = true
	}
	s.buffers = nil
	return err
}
