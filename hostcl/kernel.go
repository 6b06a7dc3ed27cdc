// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"fmt"

	"github.com/LynnColeArt/offbench"
)

// kernel is a built entry point with its bound arguments.
type kernel struct {
	owner  *Queue
	name   string
	params []ArgKind
	fn     KernelFunc
	args   []any
}

func newKernel(q *Queue, name string, reg registration) *kernel {
	return &kernel{
		owner:  q,
		name:   name,
		params: reg.params,
		fn:     reg.fn,
		args:   make([]any, len(reg.params)),
	}
}

// Name implements offbench.Kernel.
func (k *kernel) Name() string { return k.name }

// NumArgs implements offbench.Kernel.
func (k *kernel) NumArgs() int { return len(k.params) }

// SetArg implements offbench.Kernel.
func (k *kernel) SetArg(index int, value any) error {
	if index < 0 || index >= len(k.params) {
		return offbench.NewError(offbench.KindDispatchError, "SetArg",
			fmt.Sprintf("kernel %s: argument index %d out of range [0,%d)", k.name, index, len(k.params)), nil)
	}
	switch k.params[index] {
	case ArgBuffer:
		b, ok := value.(offbench.DeviceBuffer)
		if !ok {
			return k.argError(index, value)
		}
		db, err := k.owner.deviceBuffer("SetArg", b)
		if err != nil {
			return err
		}
		k.args[index] = db
	case ArgInt32:
		v, ok := value.(int32)
		if !ok {
			return k.argError(index, value)
		}
		k.args[index] = v
	}
	return nil
}

func (k *kernel) argError(index int, value any) error {
	return offbench.NewError(offbench.KindDispatchError, "SetArg",
		fmt.Sprintf("kernel %s: argument %d expects %s, got %T", k.name, index, k.params[index], value), nil)
}

// snapshot captures the bound arguments at enqueue time.
func (k *kernel) snapshot() (Args, error) {
	vals := make([]any, len(k.args))
	for i, a := range k.args {
		switch v := a.(type) {
		case nil:
			return Args{}, offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
				fmt.Sprintf("kernel %s: argument %d is not set", k.name, i), nil)
		case *deviceBuffer:
			if v.released {
				return Args{}, offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
					fmt.Sprintf("kernel %s: argument %d refers to a released buffer", k.name, i), nil)
			}
			vals[i] = v.data
		default:
			vals[i] = v
		}
	}
	return Args{values: vals}, nil
}

// Release implements offbench.Kernel.
func (k *kernel) Release() error {
	k.args = nil
	return nil
}
