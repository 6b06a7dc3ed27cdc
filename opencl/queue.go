// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build opencl

package opencl

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"github.com/LynnColeArt/offbench"
)

type queue struct {
	dev      *cl.Device
	ctx      *cl.Context
	q        *cl.CommandQueue
	programs []*cl.Program
	released bool
}

// hostBuffer is a buffer allocated by the runtime in host-accessible
// memory and kept mapped for its whole lifetime.
type hostBuffer struct {
	q      *queue
	mem    *cl.MemObject
	mapped *cl.MappedMemObject
	data   []byte
}

func (b *hostBuffer) Bytes() []byte { return b.data }

func (b *hostBuffer) Release() error {
	if b.mem == nil {
		return nil
	}
	ev, err := b.q.q.EnqueueUnmapMemObject(b.mem, b.mapped, nil)
	if err == nil {
		err = cl.WaitForEvents([]*cl.Event{ev})
		ev.Release()
	}
	b.mem.Release()
	b.mem, b.data = nil, nil
	if err != nil {
		return clError(offbench.KindDeviceError, "EnqueueUnmapMemObject", err, "unmapping staging buffer")
	}
	return nil
}

type deviceBuffer struct {
	mem  *cl.MemObject
	size int
}

func (b *deviceBuffer) Size() int { return b.size }

func (b *deviceBuffer) Release() error {
	if b.mem != nil {
		b.mem.Release()
		b.mem = nil
	}
	return nil
}

func (q *queue) AllocHost(size int, access offbench.MapAccess) (offbench.HostBuffer, error) {
	mem, err := q.ctx.CreateEmptyBuffer(cl.MemAllocHostPtr|cl.MemReadWrite, size)
	if err != nil {
		return nil, clError(offbench.KindAllocationFailed, "CreateBuffer", err, "host-accessible buffer of %d bytes", size)
	}
	flag := cl.MapFlagWrite
	if access == offbench.MapRead {
		flag = cl.MapFlagRead
	}
	mapped, ev, err := q.q.EnqueueMapBuffer(mem, true, flag, 0, size, nil)
	if err != nil {
		mem.Release()
		return nil, clError(offbench.KindAllocationFailed, "EnqueueMapBuffer", err, "mapping %d bytes for %s", size, access)
	}
	if ev != nil {
		ev.Release()
	}
	data := unsafe.Slice((*byte)(mapped.Ptr()), mapped.Size())
	return &hostBuffer{q: q, mem: mem, mapped: mapped, data: data}, nil
}

func (q *queue) AllocDevice(size int) (offbench.DeviceBuffer, error) {
	mem, err := q.ctx.CreateEmptyBuffer(cl.MemReadWrite, size)
	if err != nil {
		return nil, clError(offbench.KindAllocationFailed, "CreateBuffer", err, "device buffer of %d bytes", size)
	}
	return &deviceBuffer{mem: mem, size: size}, nil
}

func (q *queue) Build(source, name string) (offbench.Kernel, error) {
	prog, err := q.ctx.CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, offbench.NewBuildError("CreateProgramWithSource", "creating program", "", err)
	}
	q.programs = append(q.programs, prog)
	if err := prog.BuildProgram([]*cl.Device{q.dev}, ""); err != nil {
		return nil, offbench.NewBuildError("BuildProgram",
			fmt.Sprintf("program build failed for kernel %s", name), err.Error(), nil)
	}
	k, err := prog.CreateKernel(name)
	if err != nil {
		return nil, offbench.NewBuildError("CreateKernel", fmt.Sprintf("kernel %s not found", name), "", err)
	}
	n, err := k.NumArgs()
	if err != nil {
		k.Release()
		return nil, offbench.NewBuildError("CreateKernel", fmt.Sprintf("querying arguments of %s", name), "", err)
	}
	return &kernel{k: k, name: name, nargs: n}, nil
}

func (q *queue) EnqueueWrite(dst offbench.DeviceBuffer, src offbench.HostBuffer) (offbench.Event, error) {
	db, hb, err := buffers(dst, src)
	if err != nil {
		return nil, err
	}
	ev, err := q.q.EnqueueWriteBuffer(db.mem, false, 0, db.size, unsafe.Pointer(&hb.data[0]), nil)
	if err != nil {
		return nil, clError(offbench.KindDispatchError, "EnqueueWriteBuffer", err, "writing %d bytes", db.size)
	}
	return &event{ev: ev}, nil
}

func (q *queue) EnqueueRead(dst offbench.HostBuffer, src offbench.DeviceBuffer) (offbench.Event, error) {
	db, hb, err := buffers(src, dst)
	if err != nil {
		return nil, err
	}
	ev, err := q.q.EnqueueReadBuffer(db.mem, true, 0, db.size, unsafe.Pointer(&hb.data[0]), nil)
	if err != nil {
		return nil, clError(offbench.KindDispatchError, "EnqueueReadBuffer", err, "reading %d bytes", db.size)
	}
	return &event{ev: ev}, nil
}

func (q *queue) EnqueueKernel(k offbench.Kernel, global, local int) (offbench.Event, error) {
	kk, ok := k.(*kernel)
	if !ok {
		return nil, offbench.NewError(offbench.KindDispatchError, "EnqueueNDRangeKernel", "kernel was not built by this driver", nil)
	}
	ev, err := q.q.EnqueueNDRangeKernel(kk.k, nil, []int{global}, []int{local}, nil)
	if err != nil {
		return nil, clError(offbench.KindDispatchError, "EnqueueNDRangeKernel", err, "kernel %s over %d/%d", kk.name, global, local)
	}
	return &event{ev: ev}, nil
}

func (q *queue) Flush() error {
	if err := q.q.Flush(); err != nil {
		return clError(offbench.KindDispatchError, "Flush", err, "flushing command queue")
	}
	return nil
}

func (q *queue) Finish() error {
	if q.released {
		return offbench.NewError(offbench.KindDeviceError, "Finish", "command queue released", nil)
	}
	if err := q.q.Finish(); err != nil {
		return clError(offbench.KindDeviceError, "Finish", err, "draining command queue")
	}
	return nil
}

func (q *queue) Release() error {
	if q.released {
		return nil
	}
	q.released = true
	err := q.q.Finish()
	for _, p := range q.programs {
		p.Release()
	}
	q.q.Release()
	q.ctx.Release()
	if err != nil {
		return clError(offbench.KindDeviceError, "Finish", err, "draining command queue")
	}
	return nil
}

func buffers(d offbench.DeviceBuffer, h offbench.HostBuffer) (*deviceBuffer, *hostBuffer, error) {
	db, ok1 := d.(*deviceBuffer)
	hb, ok2 := h.(*hostBuffer)
	if !ok1 || !ok2 || db.mem == nil || hb.mem == nil {
		return nil, nil, offbench.NewError(offbench.KindInvalidArgument, "Enqueue", "buffers were not allocated by this driver or were released", nil)
	}
	if len(hb.data) < db.size {
		return nil, nil, offbench.NewError(offbench.KindInvalidArgument, "Enqueue",
			fmt.Sprintf("host buffer holds %d bytes, device buffer %d", len(hb.data), db.size), nil)
	}
	return db, hb, nil
}

type kernel struct {
	k     *cl.Kernel
	name  string
	nargs int
}

func (k *kernel) Name() string { return k.name }
func (k *kernel) NumArgs() int { return k.nargs }

func (k *kernel) SetArg(index int, value any) error {
	var arg any
	switch v := value.(type) {
	case *deviceBuffer:
		arg = v.mem
	case int32:
		arg = v
	default:
		return offbench.NewError(offbench.KindDispatchError, "SetKernelArg",
			fmt.Sprintf("kernel %s: unsupported argument %d of type %T", k.name, index, value), nil)
	}
	if err := k.k.SetArg(index, arg); err != nil {
		return clError(offbench.KindDispatchError, "SetKernelArg", err, "kernel %s argument %d", k.name, index)
	}
	return nil
}

func (k *kernel) Release() error {
	if k.k != nil {
		k.k.Release()
		k.k = nil
	}
	return nil
}

type event struct {
	ev *cl.Event
}

func (e *event) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- cl.WaitForEvents([]*cl.Event{e.ev}) }()
	select {
	case err := <-done:
		if err != nil {
			return clError(offbench.KindDeviceError, "WaitForEvents", err, "waiting for command")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *event) Timestamps() (start, end uint64, err error) {
	s, err := e.ev.GetEventProfilingInfo(cl.ProfilingInfoCommandStart)
	if err != nil {
		return 0, 0, clError(offbench.KindDeviceError, "GetEventProfilingInfo", err, "command start")
	}
	f, err := e.ev.GetEventProfilingInfo(cl.ProfilingInfoCommandEnd)
	if err != nil {
		return 0, 0, clError(offbench.KindDeviceError, "GetEventProfilingInfo", err, "command end")
	}
	return uint64(s), uint64(f), nil
}

func (e *event) Release() error {
	if e.ev != nil {
		e.ev.Release()
		e.ev = nil
	}
	return nil
}
