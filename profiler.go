// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"context"
)

// ElapsedNanos suspends the caller until ev completes, then returns the
// device-clock duration of the command. Timestamps are never read from an
// incomplete event.
func ElapsedNanos(ctx context.Context, ev Event) (int64, error) {
	if ev == nil {
		return 0, NewError(KindDeviceError, "Profile", "nil event", nil)
	}
	if err := ev.Wait(ctx); err != nil {
		return 0, wrapDevice("Profile", "waiting for event", err)
	}
	start, end, err := ev.Timestamps()
	if err != nil {
		return 0, wrapDevice("Profile", "reading event timestamps", err)
	}
	if end < start {
		return 0, NewError(KindDeviceError, "Profile", "event ended before it started", nil)
	}
	return int64(end - start), nil
}

// wrapDevice keeps kinds already assigned by a driver and classifies
// anything else as a device failure.
func wrapDevice(op, msg string, err error) error {
	var e *Error
	if ok := asError(err, &e); ok {
		return err
	}
	return NewError(KindDeviceError, op, msg, err)
}
