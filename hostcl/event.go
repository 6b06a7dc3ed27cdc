// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"context"
	"sync/atomic"

	"github.com/LynnColeArt/offbench"
)

// Status is the execution state of a command.
type Status int32

const (
	StatusSubmitted Status = iota
	StatusRunning
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Event tracks a command on a host queue.
type Event struct {
	queue  *Queue
	status atomic.Int32
	done   chan struct{}

	// Written by the worker before done is closed.
	start, end uint64
	err        error
}

func newEvent(q *Queue) *Event {
	return &Event{queue: q, done: make(chan struct{})}
}

func (e *Event) begin(ts uint64) {
	e.start = ts
	e.status.Store(int32(StatusRunning))
}

func (e *Event) complete(ts uint64, err error) {
	e.end = ts
	e.err = err
	e.status.Store(int32(StatusComplete))
	close(e.done)
}

// Status returns the current state of the command.
func (e *Event) Status() Status {
	return Status(e.status.Load())
}

// Wait implements offbench.Event. Like clWaitForEvents it flushes the
// queue first so that waiting on an unflushed command cannot deadlock.
func (e *Event) Wait(ctx context.Context) error {
	if err := e.queue.Flush(); err != nil {
		return err
	}
	select {
	case <-e.done:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timestamps implements offbench.Event.
func (e *Event) Timestamps() (start, end uint64, err error) {
	select {
	case <-e.done:
		return e.start, e.end, nil
	default:
		return 0, 0, offbench.NewError(offbench.KindDeviceError, "Timestamps",
			"profiling info not available, command is "+e.Status().String(), nil)
	}
}

// Release implements offbench.Event.
func (e *Event) Release() error { return nil }
