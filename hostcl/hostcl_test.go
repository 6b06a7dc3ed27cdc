// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/offbench"
)

const scaleSource = `
// y[i] = x[i] * k
__kernel void test_scale(__global const float *x, __global float *y, const int n) {
	int i = get_global_id(0);
	if (i < n) {
		y[i] = x[i] * 3.0f;
	}
}
`

func init() {
	RegisterKernel("test_scale", []ArgKind{ArgBuffer, ArgBuffer, ArgInt32}, func(item WorkItem, args Args) {
		n := int(args.Int32(2))
		if item.GlobalID >= n {
			return
		}
		x := offbench.View[float32](args.Buffer(0))
		y := offbench.View[float32](args.Buffer(1))
		y[item.GlobalID] = x[item.GlobalID] * 3
	})
	RegisterKernel("test_panic", []ArgKind{ArgInt32}, func(item WorkItem, args Args) {
		if item.GlobalID == 7 {
			panic("boom")
		}
	})
	RegisterKernel("test_ids", []ArgKind{ArgBuffer}, func(item WorkItem, args Args) {
		ids := offbench.View[int32](args.Buffer(0))
		ids[item.GlobalID] = int32(item.GroupID*1000 + item.LocalID)
	})
}

func openQueue(t *testing.T, opts ...Option) *Queue {
	t.Helper()
	q, err := NewDriver(opts...).CPU().Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Release() })
	return q.(*Queue)
}

func TestDriverDevices(t *testing.T) {
	d := NewDriver()
	platforms, err := d.Platforms()
	require.NoError(t, err)
	require.Len(t, platforms, 1)

	acc, err := platforms[0].Devices(offbench.DeviceTypeAccelerator)
	require.NoError(t, err)
	assert.Empty(t, acc)

	cpus, err := platforms[0].Devices(offbench.DeviceTypeCPU)
	require.NoError(t, err)
	require.Len(t, cpus, 1)
	assert.Contains(t, cpus[0].Name(), "Host CPU")

	d = NewDriver(WithAccelerator("Emulated Accelerator"), WithoutCPU())
	platforms, _ = d.Platforms()
	acc, _ = platforms[0].Devices(offbench.DeviceTypeAccelerator)
	require.Len(t, acc, 1)
	assert.Equal(t, "Emulated Accelerator", acc[0].Name())
	assert.Nil(t, d.CPU())
}

func TestScaleKernel(t *testing.T) {
	const N = 1000
	ctx := context.Background()
	q := openQueue(t)

	k, err := q.Build(scaleSource, "test_scale")
	require.NoError(t, err)
	assert.Equal(t, 3, k.NumArgs())

	in, err := q.AllocHost(N*4, offbench.MapWrite)
	require.NoError(t, err)
	defer in.Release()
	out, err := q.AllocHost(N*4, offbench.MapRead)
	require.NoError(t, err)
	defer out.Release()
	x, err := q.AllocDevice(N * 4)
	require.NoError(t, err)
	defer x.Release()
	y, err := q.AllocDevice(N * 4)
	require.NoError(t, err)
	defer y.Release()

	src := offbench.View[float32](in.Bytes())
	for i := range src {
		src[i] = float32(i)
	}

	wev, err := q.EnqueueWrite(x, in)
	require.NoError(t, err)
	require.NoError(t, k.SetArg(0, x))
	require.NoError(t, k.SetArg(1, y))
	require.NoError(t, k.SetArg(2, int32(N)))
	kev, err := q.EnqueueKernel(k, 1024, 256)
	require.NoError(t, err)
	rev, err := q.EnqueueRead(out, y)
	require.NoError(t, err)

	for _, ev := range []offbench.Event{wev, kev, rev} {
		require.NoError(t, ev.Wait(ctx))
		start, end, err := ev.Timestamps()
		require.NoError(t, err)
		assert.LessOrEqual(t, start, end)
	}
	_, kend, _ := kev.Timestamps()
	rstart, _, _ := rev.Timestamps()
	assert.LessOrEqual(t, kend, rstart, "commands must execute in order")

	dst := offbench.View[float32](out.Bytes())
	for i := 0; i < N; i++ {
		if dst[i] != float32(i)*3 {
			t.Fatalf("index %d: expected %f, got %f", i, float32(i)*3, dst[i])
		}
	}
}

func TestWorkItemIDs(t *testing.T) {
	q := openQueue(t, WithWorkers(3))
	k, err := q.Build(`__kernel void test_ids(__global int *ids) { ids[get_global_id(0)] = 0; }`, "test_ids")
	require.NoError(t, err)

	const global, local = 64, 16
	buf, err := q.AllocDevice(global * 4)
	require.NoError(t, err)
	out, err := q.AllocHost(global*4, offbench.MapRead)
	require.NoError(t, err)
	require.NoError(t, k.SetArg(0, buf))
	_, err = q.EnqueueKernel(k, global, local)
	require.NoError(t, err)
	_, err = q.EnqueueRead(out, buf)
	require.NoError(t, err)

	ids := offbench.View[int32](out.Bytes())
	for i := 0; i < global; i++ {
		want := int32((i/local)*1000 + i%local)
		if ids[i] != want {
			t.Errorf("item %d: expected %d, got %d", i, want, ids[i])
		}
	}
}

func TestPendingUntilFlush(t *testing.T) {
	q := openQueue(t)
	hb, err := q.AllocHost(64, offbench.MapWrite)
	require.NoError(t, err)
	db, err := q.AllocDevice(64)
	require.NoError(t, err)

	ev, err := q.EnqueueWrite(db, hb)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, ev.(*Event).Status())
	_, _, err = ev.Timestamps()
	assert.True(t, offbench.IsKind(err, offbench.KindDeviceError))

	require.NoError(t, q.Flush())
	require.NoError(t, ev.Wait(context.Background()))
	assert.Equal(t, StatusComplete, ev.(*Event).Status())
}

func TestKernelPanicFailsEvent(t *testing.T) {
	q := openQueue(t)
	k, err := q.Build(`kernel void test_panic(const int n) {}`, "test_panic")
	require.NoError(t, err)
	require.NoError(t, k.SetArg(0, int32(1)))
	ev, err := q.EnqueueKernel(k, 32, 8)
	require.NoError(t, err)

	err = ev.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, offbench.IsKind(err, offbench.KindDispatchError))
	assert.Contains(t, err.Error(), "boom")
}

func TestEnqueueKernelValidation(t *testing.T) {
	q := openQueue(t)
	k, err := q.Build(scaleSource, "test_scale")
	require.NoError(t, err)

	_, err = q.EnqueueKernel(k, 256, 256)
	assert.True(t, offbench.IsKind(err, offbench.KindDispatchError), "unset arguments: %v", err)

	db, _ := q.AllocDevice(1024)
	require.NoError(t, k.SetArg(0, db))
	require.NoError(t, k.SetArg(1, db))
	require.NoError(t, k.SetArg(2, int32(256)))

	tests := []struct {
		name          string
		global, local int
	}{
		{"zero global", 0, 256},
		{"zero local", 256, 0},
		{"not a multiple", 300, 256},
		{"oversized group", 4096, 2048},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.EnqueueKernel(k, tc.global, tc.local)
			assert.True(t, offbench.IsKind(err, offbench.KindDispatchError), "got %v", err)
		})
	}
}

func TestSetArgValidation(t *testing.T) {
	q := openQueue(t)
	k, err := q.Build(scaleSource, "test_scale")
	require.NoError(t, err)

	assert.Error(t, k.SetArg(3, int32(1)))
	assert.Error(t, k.SetArg(-1, int32(1)))
	assert.Error(t, k.SetArg(0, int32(1)))
	assert.Error(t, k.SetArg(2, 1), "plain int is not a 32-bit scalar")

	other := openQueue(t)
	foreign, _ := other.AllocDevice(64)
	assert.Error(t, k.SetArg(0, foreign))
}

func TestBuildErrors(t *testing.T) {
	q := openQueue(t)
	tests := []struct {
		name   string
		source string
		kernel string
		log    string
	}{
		{"missing kernel", scaleSource, "test_missing", `no kernel named "test_missing"`},
		{"no implementation", `__kernel void nothing_here(int n) {}`, "nothing_here", "has no implementation"},
		{"param mismatch", `__kernel void test_scale(__global float *x, const int n) {}`, "test_scale", "declares (buffer, int32)"},
		{"unbalanced", "__kernel void test_scale(__global float *x, __global float *y, int n) {\n", "test_scale", "<source>:1: error: unclosed '{'"},
		{"unsupported param", `__kernel void test_scale(__global float *x, __global float *y, float n) {}`, "test_scale", "unsupported parameter"},
		{"commented out", "/* __kernel void test_scale(__global float *x, __global float *y, int n) {} */", "test_scale", "no kernel named"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.Build(tc.source, tc.kernel)
			require.Error(t, err)
			var e *offbench.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, offbench.KindBuildError, e.Kind)
			assert.Contains(t, e.Log, tc.log)
		})
	}
}

func TestMemoryLimit(t *testing.T) {
	q := openQueue(t, WithMemoryLimit(4096))
	a, err := q.AllocDevice(4000)
	require.NoError(t, err)

	_, err = q.AllocDevice(1000)
	assert.True(t, offbench.IsKind(err, offbench.KindAllocationFailed))

	require.NoError(t, a.Release())
	assert.Error(t, a.Release(), "double release")

	b, err := q.AllocDevice(1000)
	require.NoError(t, err, "freed block should be reused")
	assert.Equal(t, 1000, b.Size())

	inUse, peak := q.MemoryStats()
	assert.Equal(t, int64(4032), inUse)
	assert.Equal(t, int64(4032), peak)
}

func TestInvalidAllocations(t *testing.T) {
	q := openQueue(t)
	_, err := q.AllocDevice(0)
	assert.True(t, offbench.IsKind(err, offbench.KindAllocationFailed))
	_, err = q.AllocHost(-1, offbench.MapRead)
	assert.True(t, offbench.IsKind(err, offbench.KindAllocationFailed))
}

func TestReleasedQueue(t *testing.T) {
	q := openQueue(t)
	require.NoError(t, q.Release())
	require.NoError(t, q.Release())
	_, err := q.enqueue(func() error { return nil })
	assert.True(t, offbench.IsKind(err, offbench.KindDeviceError))
}

func TestFinish(t *testing.T) {
	q := openQueue(t)
	hb, _ := q.AllocHost(256, offbench.MapWrite)
	db, _ := q.AllocDevice(256)
	ev, err := q.EnqueueWrite(db, hb)
	require.NoError(t, err)
	require.NoError(t, q.Finish())
	assert.Equal(t, StatusComplete, ev.(*Event).Status())
}
