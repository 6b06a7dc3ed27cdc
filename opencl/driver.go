// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build opencl

package opencl

import (
	"fmt"

	"github.com/jgillich/go-opencl/cl"

	"github.com/LynnColeArt/offbench"
)

// DriverName identifies the native OpenCL driver.
const DriverName = "opencl"

func init() {
	offbench.RegisterDriver(Driver{})
}

// Driver enumerates the platforms of the installed OpenCL ICDs.
type Driver struct{}

// Name implements offbench.Driver.
func (Driver) Name() string { return DriverName }

// Priority implements offbench.Driver.
func (Driver) Priority() int { return 0 }

// Platforms implements offbench.Driver.
func (Driver) Platforms() ([]offbench.Platform, error) {
	ps, err := cl.GetPlatforms()
	if err != nil {
		return nil, offbench.NewError(offbench.KindNoPlatformFound, "GetPlatforms", "enumerating OpenCL platforms", err)
	}
	out := make([]offbench.Platform, len(ps))
	for i, p := range ps {
		out[i] = &platform{p: p}
	}
	return out, nil
}

type platform struct {
	p *cl.Platform
}

func (p *platform) Name() string   { return p.p.Name() }
func (p *platform) Vendor() string { return p.p.Vendor() }

func (p *platform) Devices(t offbench.DeviceType) ([]offbench.Device, error) {
	clType := cl.DeviceTypeGPU | cl.DeviceTypeAccelerator
	if t == offbench.DeviceTypeCPU {
		clType = cl.DeviceTypeCPU
	}
	ds, err := p.p.GetDevices(clType)
	if err != nil {
		// CL_DEVICE_NOT_FOUND is reported as an error by the runtime.
		return nil, nil
	}
	out := make([]offbench.Device, len(ds))
	for i, d := range ds {
		out[i] = &device{d: d, typ: t}
	}
	return out, nil
}

type device struct {
	d   *cl.Device
	typ offbench.DeviceType
}

func (d *device) Name() string              { return d.d.Name() }
func (d *device) Type() offbench.DeviceType { return d.typ }

// Open creates a context and a profiling-enabled in-order queue.
func (d *device) Open() (offbench.Queue, error) {
	ctx, err := cl.CreateContext([]*cl.Device{d.d})
	if err != nil {
		return nil, offbench.NewError(offbench.KindDeviceError, "CreateContext", d.d.Name(), err)
	}
	q, err := ctx.CreateCommandQueue(d.d, cl.CommandQueueProfilingEnable)
	if err != nil {
		ctx.Release()
		return nil, offbench.NewError(offbench.KindDeviceError, "CreateCommandQueue", d.d.Name(), err)
	}
	return &queue{dev: d.d, ctx: ctx, q: q}, nil
}

func clError(kind offbench.Kind, op string, err error, format string, args ...any) error {
	return offbench.NewError(kind, op, fmt.Sprintf(format, args...), err)
}
