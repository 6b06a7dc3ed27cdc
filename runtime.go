// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"context"
	"sort"
	"sync"
)

// DeviceType selects a class of compute device.
type DeviceType int

const (
	// DeviceTypeAccelerator covers GPUs and dedicated accelerators.
	DeviceTypeAccelerator DeviceType = iota
	// DeviceTypeCPU is a general-purpose processor exposed as a device.
	DeviceTypeCPU
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeAccelerator:
		return "accelerator"
	case DeviceTypeCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// MapAccess is the host access mode of a mapped staging buffer.
type MapAccess int

const (
	// MapWrite maps a buffer for host writes (kernel inputs).
	MapWrite MapAccess = iota
	// MapRead maps a buffer for host reads (kernel results).
	MapRead
)

func (a MapAccess) String() string {
	if a == MapRead {
		return "read"
	}
	return "write"
}

// Driver exposes the platforms of one compute runtime.
type Driver interface {
	// Name identifies the driver in logs.
	Name() string
	// Priority orders drivers during enumeration, lower first.
	Priority() int
	// Platforms lists the platforms this driver can reach.
	Platforms() ([]Platform, error)
}

// Platform is one compute platform within a driver.
type Platform interface {
	Name() string
	Vendor() string
	// Devices returns the devices of type t. An empty result with a nil
	// error means the platform has no such devices.
	Devices(t DeviceType) ([]Device, error)
}

// Device is a single compute device.
type Device interface {
	Name() string
	Type() DeviceType
	// Open creates a context and an in-order, profiling-enabled command
	// queue bound to the device.
	Open() (Queue, error)
}

// Queue is an in-order command queue together with the context that owns
// its memory objects and programs. Implementations are not safe for
// concurrent use.
type Queue interface {
	// AllocHost allocates a host-accessible region and maps it for access.
	AllocHost(size int, access MapAccess) (HostBuffer, error)
	// AllocDevice allocates a device-resident region.
	AllocDevice(size int) (DeviceBuffer, error)
	// Build compiles source for the queue's device and returns kernel name.
	Build(source, name string) (Kernel, error)
	// EnqueueWrite submits a non-blocking host to device transfer.
	EnqueueWrite(dst DeviceBuffer, src HostBuffer) (Event, error)
	// EnqueueKernel submits the kernel over a 1-D range of global items
	// partitioned into work-groups of local items.
	EnqueueKernel(k Kernel, global, local int) (Event, error)
	// EnqueueRead submits a blocking device to host transfer. It returns
	// after the data is visible in dst.
	EnqueueRead(dst HostBuffer, src DeviceBuffer) (Event, error)
	// Flush hands all queued commands to the device.
	Flush() error
	// Finish flushes and blocks until every submitted command completed.
	Finish() error
	Release() error
}

// HostBuffer is a mapped host-accessible region.
type HostBuffer interface {
	Bytes() []byte
	Release() error
}

// DeviceBuffer is a device-resident region.
type DeviceBuffer interface {
	Size() int
	Release() error
}

// Kernel is a compiled entry point with positional arguments.
type Kernel interface {
	Name() string
	NumArgs() int
	// SetArg binds a DeviceBuffer or an int32 scalar at index.
	SetArg(index int, value any) error
	Release() error
}

// Event tracks one submitted command through submitted, running and
// complete.
type Event interface {
	// Wait suspends the caller until the command completes.
	Wait(ctx context.Context) error
	// Timestamps returns the device clock start and end of the command in
	// nanoseconds. It fails if the command has not completed.
	Timestamps() (start, end uint64, err error)
	Release() error
}

var (
	driversMu sync.RWMutex
	drivers   []Driver
)

// RegisterDriver makes a driver available to catalogs built without an
// explicit driver list. It is meant to be called from init functions.
func RegisterDriver(d Driver) {
	if d == nil {
		panic("offbench: RegisterDriver driver is nil")
	}
	driversMu.Lock()
	defer driversMu.Unlock()
	for _, existing := range drivers {
		if existing.Name() == d.Name() {
			panic("offbench: RegisterDriver called twice for driver " + d.Name())
		}
	}
	drivers = append(drivers, d)
}

// Drivers returns the registered drivers ordered by priority.
func Drivers() []Driver {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := append([]Driver(nil), drivers...)
	sortDrivers(out)
	return out
}

func sortDrivers(ds []Driver) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Priority() < ds[j].Priority()
	})
}
