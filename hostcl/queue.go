// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"fmt"
	"sync"
	"time"

	"github.com/LynnColeArt/offbench"
)

// queueDepth bounds the number of flushed commands awaiting the worker.
const queueDepth = 1000

// command is one unit of work on a queue.
type command struct {
	run func() error
	ev  *Event
}

// Queue is an in-order, profiling-enabled command queue on a host device.
// Commands are held until Flush or a blocking call and then executed one
// at a time by a worker goroutine.
type Queue struct {
	device *Device
	memory *memoryPool
	epoch  time.Time

	mu       sync.Mutex
	pending  []*command
	tasks    chan *command
	done     chan struct{}
	released bool
}

// NewQueue creates a queue on d and starts its worker.
func NewQueue(d *Device) *Queue {
	q := &Queue{
		device: d,
		memory: newMemoryPool(d.TotalMem),
		epoch:  time.Now(),
		tasks:  make(chan *command, queueDepth),
		done:   make(chan struct{}),
	}
	go q.worker()
	return q
}

// worker processes commands in submission order.
func (q *Queue) worker() {
	for cmd := range q.tasks {
		cmd.ev.begin(q.now())
		err := cmd.run()
		cmd.ev.complete(q.now(), err)
	}
	close(q.done)
}

// now is the device clock in nanoseconds since the queue was created.
func (q *Queue) now() uint64 {
	return uint64(time.Since(q.epoch).Nanoseconds())
}

// MemoryStats reports device-resident bytes in use and the peak.
func (q *Queue) MemoryStats() (inUse, peak int64) {
	return q.memory.stats()
}

// AllocHost implements offbench.Queue.
func (q *Queue) AllocHost(size int, access offbench.MapAccess) (offbench.HostBuffer, error) {
	if size <= 0 {
		return nil, offbench.NewError(offbench.KindAllocationFailed, "AllocHost",
			fmt.Sprintf("size must be positive, got %d", size), nil)
	}
	data, unmap, err := mapHost(size)
	if err != nil {
		return nil, err
	}
	return &hostBuffer{owner: q, data: data, access: access, unmap: unmap}, nil
}

// AllocDevice implements offbench.Queue.
func (q *Queue) AllocDevice(size int) (offbench.DeviceBuffer, error) {
	data, err := q.memory.allocate(size)
	if err != nil {
		return nil, err
	}
	return &deviceBuffer{owner: q, data: data}, nil
}

// EnqueueWrite implements offbench.Queue.
func (q *Queue) EnqueueWrite(dst offbench.DeviceBuffer, src offbench.HostBuffer) (offbench.Event, error) {
	db, err := q.deviceBuffer("EnqueueWrite", dst)
	if err != nil {
		return nil, err
	}
	hb, err := q.hostBuffer("EnqueueWrite", src)
	if err != nil {
		return nil, err
	}
	if len(hb.data) < len(db.data) {
		return nil, offbench.NewError(offbench.KindInvalidArgument, "EnqueueWrite",
			fmt.Sprintf("source holds %d bytes, destination needs %d", len(hb.data), len(db.data)), nil)
	}
	return q.enqueue(func() error {
		copy(db.data, hb.data)
		return nil
	})
}

// EnqueueRead implements offbench.Queue. It blocks until the transfer
// completes.
func (q *Queue) EnqueueRead(dst offbench.HostBuffer, src offbench.DeviceBuffer) (offbench.Event, error) {
	hb, err := q.hostBuffer("EnqueueRead", dst)
	if err != nil {
		return nil, err
	}
	db, err := q.deviceBuffer("EnqueueRead", src)
	if err != nil {
		return nil, err
	}
	if len(hb.data) < len(db.data) {
		return nil, offbench.NewError(offbench.KindInvalidArgument, "EnqueueRead",
			fmt.Sprintf("destination holds %d bytes, source has %d", len(hb.data), len(db.data)), nil)
	}
	ev, err := q.enqueue(func() error {
		copy(hb.data, db.data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := q.Flush(); err != nil {
		return ev, err
	}
	e := ev.(*Event)
	<-e.done
	return ev, e.err
}

// EnqueueKernel implements offbench.Queue.
func (q *Queue) EnqueueKernel(k offbench.Kernel, global, local int) (offbench.Event, error) {
	kern, ok := k.(*kernel)
	if !ok || kern.owner != q {
		return nil, offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
			"kernel was not built on this queue", nil)
	}
	if err := checkRange(global, local); err != nil {
		return nil, err
	}
	args, err := kern.snapshot()
	if err != nil {
		return nil, err
	}
	return q.enqueue(func() error {
		if err := q.launch(kern.fn, args, global, local); err != nil {
			return offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
				fmt.Sprintf("kernel %s failed", kern.name), err)
		}
		return nil
	})
}

// Build implements offbench.Queue.
func (q *Queue) Build(source, name string) (offbench.Kernel, error) {
	k, err := build(q, source, name)
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (q *Queue) enqueue(run func() error) (offbench.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil, offbench.NewError(offbench.KindDeviceError, "Enqueue", "queue has been released", nil)
	}
	ev := newEvent(q)
	q.pending = append(q.pending, &command{run: run, ev: ev})
	return ev, nil
}

// Flush implements offbench.Queue.
func (q *Queue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return nil
	}
	for _, cmd := range q.pending {
		q.tasks <- cmd
	}
	q.pending = nil
	return nil
}

// Finish flushes the queue and waits until every command has completed.
func (q *Queue) Finish() error {
	ev, err := q.enqueue(func() error { return nil })
	if err != nil {
		return err
	}
	if err := q.Flush(); err != nil {
		return err
	}
	<-ev.(*Event).done
	return nil
}

// Release implements offbench.Queue. Outstanding commands are executed
// before the worker exits.
func (q *Queue) Release() error {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return nil
	}
	for _, cmd := range q.pending {
		q.tasks <- cmd
	}
	q.pending = nil
	q.released = true
	close(q.tasks)
	q.mu.Unlock()
	<-q.done
	return nil
}

func (q *Queue) deviceBuffer(op string, b offbench.DeviceBuffer) (*deviceBuffer, error) {
	db, ok := b.(*deviceBuffer)
	if !ok || db.owner != q {
		return nil, offbench.NewError(offbench.KindInvalidArgument, op, "device buffer belongs to another context", nil)
	}
	if db.released {
		return nil, offbench.NewError(offbench.KindInvalidArgument, op, "device buffer has been released", nil)
	}
	return db, nil
}

func (q *Queue) hostBuffer(op string, b offbench.HostBuffer) (*hostBuffer, error) {
	hb, ok := b.(*hostBuffer)
	if !ok || hb.owner != q {
		return nil, offbench.NewError(offbench.KindInvalidArgument, op, "host buffer belongs to another context", nil)
	}
	if hb.released {
		return nil, offbench.NewError(offbench.KindInvalidArgument, op, "host buffer has been released", nil)
	}
	return hb, nil
}
