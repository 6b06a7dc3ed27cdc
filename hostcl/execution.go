// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/LynnColeArt/offbench"
)

// WorkItem identifies one invocation within a 1-D range, the equivalent
// of get_global_id(0), get_local_id(0) and get_group_id(0).
type WorkItem struct {
	GlobalID   int
	LocalID    int
	GroupID    int
	GlobalSize int
	LocalSize  int
}

// Args gives a kernel positional access to its arguments.
type Args struct {
	values []any
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.values) }

// Buffer returns the device memory bound at index i.
func (a Args) Buffer(i int) []byte { return a.values[i].([]byte) }

// Int32 returns the scalar bound at index i.
func (a Args) Int32(i int) int32 { return a.values[i].(int32) }

func checkRange(global, local int) error {
	switch {
	case global <= 0 || local <= 0:
		return offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
			fmt.Sprintf("invalid range: global %d, local %d", global, local), nil)
	case local > MaxWorkGroupSize:
		return offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
			fmt.Sprintf("work-group size %d exceeds device maximum %d", local, MaxWorkGroupSize), nil)
	case global%local != 0:
		return offbench.NewError(offbench.KindDispatchError, "EnqueueKernel",
			fmt.Sprintf("global size %d is not a multiple of work-group size %d", global, local), nil)
	}
	return nil
}

// launch runs fn over global work-items. Work-groups are divided into
// contiguous chunks, one per worker goroutine. A panic in any work-item
// fails the launch.
func (q *Queue) launch(fn KernelFunc, args Args, global, local int) error {
	groups := global / local
	workers := min(q.device.Workers, groups)
	if workers < 1 {
		workers = 1
	}
	perWorker := (groups + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for first := 0; first < groups; first += perWorker {
		last := min(first+perWorker, groups)
		g.Go(func() (err error) {
			group := first
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("work-group %d panicked: %v", group, r)
				}
			}()
			for ; group < last; group++ {
				base := group * local
				for l := 0; l < local; l++ {
					fn(WorkItem{
						GlobalID:   base + l,
						LocalID:    l,
						GroupID:    group,
						GlobalSize: global,
						LocalSize:  local,
					}, args)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
