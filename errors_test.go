// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuredErrors(t *testing.T) {
	cause := errors.New("CL_OUT_OF_RESOURCES")
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
		wantMsg  string
	}{
		{
			name:     "Allocation",
			err:      NewError(KindAllocationFailed, "AllocDevice", "device buffer A", cause),
			sentinel: ErrAllocationFailed,
			kind:     KindAllocationFailed,
			wantMsg:  "AllocationFailed in AllocDevice: device buffer A (caused by: CL_OUT_OF_RESOURCES)",
		},
		{
			name:     "Build",
			err:      NewBuildError("Build", "program build failed", "<source>:3: error: x", nil),
			sentinel: ErrBuildError,
			kind:     KindBuildError,
			wantMsg:  "BuildError in Build: program build failed\n<source>:3: error: x",
		},
		{
			name:     "Wrapped",
			err:      fmt.Errorf("run: %w", NewError(KindDispatchError, "EnqueueKernel", "bad range", nil)),
			sentinel: ErrDispatchError,
			kind:     KindDispatchError,
			wantMsg:  "run: DispatchError in EnqueueKernel: bad range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.True(t, IsKind(tt.err, tt.kind))
			assert.False(t, errors.Is(tt.err, ErrNoPlatformFound))
		})
	}

	assert.True(t, errors.Is(NewError(KindAllocationFailed, "x", "y", cause), cause), "cause must be reachable")
	assert.False(t, IsKind(cause, KindDeviceError))
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindNoPlatformFound:  "NoPlatformFound",
		KindNoDeviceFound:    "NoDeviceFound",
		KindAllocationFailed: "AllocationFailed",
		KindBuildError:       "BuildError",
		KindDispatchError:    "DispatchError",
		KindSourceReadError:  "SourceReadError",
		KindDeviceError:      "DeviceError",
		KindInvalidArgument:  "InvalidArgument",
	}
	for k, want := range kinds {
		assert.Equal(t, want, k.String())
	}
}
