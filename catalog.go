// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"fmt"

	"go.uber.org/zap"
)

// DeviceHandle is the platform and device bound for a run. It is a value;
// once returned by Discover the selection does not change.
type DeviceHandle struct {
	PlatformIndex int
	Platform      Platform
	Device        Device
	// Fallback is true when no accelerator was available and a CPU device
	// was selected instead.
	Fallback bool
}

// String describes the handle for reports.
func (h DeviceHandle) String() string {
	if h.Device == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("platform %d (%s) / %s [%s]",
		h.PlatformIndex, h.Platform.Vendor(), h.Device.Name(), h.Device.Type())
}

// Catalog enumerates compute platforms across drivers and selects a device.
type Catalog struct {
	drivers []Driver
	logger  *zap.Logger
}

// NewCatalog builds a catalog over the given drivers. With no drivers it
// uses the registered ones.
func NewCatalog(logger *zap.Logger, ds ...Driver) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(ds) == 0 {
		ds = Drivers()
	} else {
		ds = append([]Driver(nil), ds...)
		sortDrivers(ds)
	}
	return &Catalog{drivers: ds, logger: logger}
}

// Platforms lists every platform of every driver, in driver priority order.
// A failing driver is logged and skipped.
func (c *Catalog) Platforms() []Platform {
	var all []Platform
	for _, d := range c.drivers {
		ps, err := d.Platforms()
		if err != nil {
			c.logger.Warn("driver enumeration failed",
				zap.String("driver", d.Name()), zap.Error(err))
			continue
		}
		all = append(all, ps...)
	}
	return all
}

// Discover selects the first device of the platform at platformIndex,
// preferring accelerators and falling back to CPU devices.
func (c *Catalog) Discover(platformIndex int) (DeviceHandle, error) {
	platforms := c.Platforms()
	if len(platforms) == 0 {
		return DeviceHandle{}, ErrNoPlatformFound
	}

	c.logger.Info("platforms detected", zap.Int("count", len(platforms)))
	for i, p := range platforms {
		c.logger.Info("platform",
			zap.Int("index", i),
			zap.String("vendor", p.Vendor()),
			zap.String("name", p.Name()))
	}

	if platformIndex < 0 || platformIndex >= len(platforms) {
		return DeviceHandle{}, NewError(KindNoPlatformFound, "Discover",
			fmt.Sprintf("platform index %d out of range [0, %d)", platformIndex, len(platforms)), nil)
	}

	platform := platforms[platformIndex]
	c.logger.Info("using platform",
		zap.Int("index", platformIndex), zap.String("vendor", platform.Vendor()))

	handle := DeviceHandle{PlatformIndex: platformIndex, Platform: platform}

	devices, err := platform.Devices(DeviceTypeAccelerator)
	if err != nil || len(devices) == 0 {
		c.logger.Warn("no accelerator available, using CPU", zap.Error(err))
		devices, err = platform.Devices(DeviceTypeCPU)
		if err != nil || len(devices) == 0 {
			return DeviceHandle{}, NewError(KindNoDeviceFound, "Discover",
				fmt.Sprintf("platform %d has neither accelerator nor CPU devices", platformIndex), err)
		}
		handle.Fallback = true
	}

	handle.Device = devices[0]
	c.logger.Info("selected device",
		zap.String("name", handle.Device.Name()),
		zap.Stringer("type", handle.Device.Type()),
		zap.Bool("fallback", handle.Fallback))
	return handle, nil
}
