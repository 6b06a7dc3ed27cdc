// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostcl provides an emulated OpenCL-style platform that executes
// kernels on host goroutines. It is always available, so every run can
// fall back to it when no native platform is present.
//
// Kernels are written in OpenCL C for native platforms. On the host
// platform each entry point is bound at build time to a Go implementation
// registered with RegisterKernel, after the source has been checked for
// the kernel declaration and a matching parameter list.
//
// Example usage:
//
//	hostcl.RegisterKernel("scale", []hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
//		func(item hostcl.WorkItem, args hostcl.Args) { ... })
//
//	q, _ := hostcl.NewDriver().CPU().Open()
//	defer q.Release()
package hostcl

import (
	"runtime"

	"github.com/LynnColeArt/offbench"
)

const (
	// DriverName identifies the host driver.
	DriverName = "host"

	// driverPriority places the host platform after native platforms.
	driverPriority = 100

	// MaxWorkGroupSize matches the common OpenCL device limit.
	MaxWorkGroupSize = 1024
)

func init() {
	offbench.RegisterDriver(NewDriver())
}

// Driver exposes a single host platform.
type Driver struct {
	platform *Platform
}

// Option configures the host driver.
type Option func(*Driver)

// WithAccelerator adds an emulated accelerator device next to the CPU
// device, so that discovery does not need the CPU fallback.
func WithAccelerator(name string) Option {
	return func(d *Driver) {
		d.platform.devices = append(d.platform.devices, newDevice(len(d.platform.devices), name, offbench.DeviceTypeAccelerator))
	}
}

// WithoutCPU removes the CPU device.
func WithoutCPU() Option {
	return func(d *Driver) {
		kept := d.platform.devices[:0]
		for _, dev := range d.platform.devices {
			if dev.typ != offbench.DeviceTypeCPU {
				kept = append(kept, dev)
			}
		}
		d.platform.devices = kept
	}
}

// WithMemoryLimit caps device-resident memory of every device.
func WithMemoryLimit(bytes int64) Option {
	return func(d *Driver) {
		for _, dev := range d.platform.devices {
			dev.TotalMem = bytes
		}
	}
}

// WithWorkers sets how many goroutines execute work-groups concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		for _, dev := range d.platform.devices {
			if n > 0 {
				dev.Workers = n
			}
		}
	}
}

// NewDriver creates a host driver with one CPU device.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{platform: &Platform{}}
	d.platform.devices = []*Device{newDevice(0, cpuDeviceName(), offbench.DeviceTypeCPU)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements offbench.Driver.
func (d *Driver) Name() string { return DriverName }

// Priority implements offbench.Driver.
func (d *Driver) Priority() int { return driverPriority }

// Platforms implements offbench.Driver.
func (d *Driver) Platforms() ([]offbench.Platform, error) {
	return []offbench.Platform{d.platform}, nil
}

// CPU returns the CPU device, or nil if it was removed.
func (d *Driver) CPU() *Device {
	for _, dev := range d.platform.devices {
		if dev.typ == offbench.DeviceTypeCPU {
			return dev
		}
	}
	return nil
}

// Platform is the host platform.
type Platform struct {
	devices []*Device
}

// Name implements offbench.Platform.
func (p *Platform) Name() string { return "Host Emulated Platform" }

// Vendor implements offbench.Platform.
func (p *Platform) Vendor() string { return "offbench" }

// Devices implements offbench.Platform.
func (p *Platform) Devices(t offbench.DeviceType) ([]offbench.Device, error) {
	var out []offbench.Device
	for _, d := range p.devices {
		if d.typ == t {
			out = append(out, d)
		}
	}
	return out, nil
}

// Device is a host compute device. Each device has a unique ID and
// capabilities.
type Device struct {
	ID       int    // Unique device identifier
	name     string // Human-readable device name
	typ      offbench.DeviceType
	TotalMem int64 // Device-resident memory limit in bytes
	NumCores int   // Number of CPU cores
	Workers  int   // Concurrent work-group executors
}

func newDevice(id int, name string, typ offbench.DeviceType) *Device {
	return &Device{
		ID:       id,
		name:     name,
		typ:      typ,
		TotalMem: int64(systemMemory()),
		NumCores: runtime.NumCPU(),
		Workers:  runtime.NumCPU(),
	}
}

// Name implements offbench.Device.
func (d *Device) Name() string { return d.name }

// Type implements offbench.Device.
func (d *Device) Type() offbench.DeviceType { return d.typ }

// Open implements offbench.Device.
func (d *Device) Open() (offbench.Queue, error) {
	return NewQueue(d), nil
}
