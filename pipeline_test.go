// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LynnColeArt/offbench"
	"github.com/LynnColeArt/offbench/hostcl"
)

const doubleSource = `
// doubles every element
__kernel void pipeline_double(__global const float *in, __global float *out, const int n) {
	int i = get_global_id(0);
	if (i < n) {
		out[i] = in[i] * 2.0f;
	}
}
`

const pairSource = `
typedef struct __attribute__((packed)) {
	float lo;
	float hi;
} Pair;

__kernel void pipeline_double(__global const Pair *in, __global float *out, const int n) {
}
`

const identitySource = `
typedef struct __attribute__((packed)) {
	uint id;
	uint value;
} Record;

__kernel void pipeline_identity(__global const Record *in, __global Record *out, const int n) {
	int i = get_global_id(0);
	if (i < n) {
		out[i] = in[i];
	}
}
`

const recordSize = 8

func init() {
	hostcl.RegisterKernel("pipeline_identity",
		[]hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
		func(item hostcl.WorkItem, args hostcl.Args) {
			if item.GlobalID >= int(args.Int32(2)) {
				return
			}
			off := item.GlobalID * recordSize
			copy(args.Buffer(1)[off:off+recordSize], args.Buffer(0)[off:off+recordSize])
		})
	hostcl.RegisterKernel("pipeline_double",
		[]hostcl.ArgKind{hostcl.ArgBuffer, hostcl.ArgBuffer, hostcl.ArgInt32},
		func(item hostcl.WorkItem, args hostcl.Args) {
			n := int(args.Int32(2))
			if item.GlobalID >= n {
				return
			}
			in := offbench.View[float32](args.Buffer(0))
			out := offbench.View[float32](args.Buffer(1))
			out[item.GlobalID] = in[item.GlobalID] * 2
		})
}

func hostHandle(t *testing.T) offbench.DeviceHandle {
	t.Helper()
	h, err := offbench.NewCatalog(nil, hostcl.NewDriver()).Discover(0)
	require.NoError(t, err)
	return h
}

func writeKernel(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "double.cl"), []byte(source), 0644))
	return dir
}

func doubleSpec(n, local int) offbench.KernelSpec {
	f32 := offbench.ScalarSchema(offbench.Float32)
	return offbench.KernelSpec{
		Name:       "pipeline_double",
		SourceFile: "double.cl",
		Inputs:     []offbench.Array{{Name: "in", Schema: f32, Records: n}},
		Output:     offbench.Array{Name: "out", Schema: f32, Records: n},
		GlobalSize: n,
		LocalSize:  local,
		Count:      int32(n),
	}
}

func TestExecutionContextRoundTrip(t *testing.T) {
	const n = 1000
	ec, err := offbench.NewExecutionContext(hostHandle(t), doubleSpec(n, 64),
		offbench.WithKernelDir(writeKernel(t, doubleSource)))
	require.NoError(t, err)
	defer ec.Close()

	in := offbench.View[float32](ec.Inputs()[0].Bytes())
	require.Len(t, in, n)
	for i := range in {
		in[i] = float32(i)
	}

	for iter := 0; iter < 3; iter++ {
		s, err := ec.RunIteration(context.Background(), iter)
		require.NoError(t, err)
		assert.Equal(t, iter, s.Iteration)
		assert.Positive(t, s.Total)
		assert.GreaterOrEqual(t, s.Kernel, int64(0))
	}

	out := offbench.View[float32](ec.Output().Bytes())
	for i := range out {
		if out[i] != float32(2*i) {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], float32(2*i))
		}
	}
}

func TestIdentityRoundTripIsByteExact(t *testing.T) {
	const n = 1000
	record := offbench.NewSchema("Record",
		offbench.FieldDef{Name: "id", Type: offbench.Uint32},
		offbench.FieldDef{Name: "value", Type: offbench.Uint32})
	require.Equal(t, recordSize, record.Size())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "identity.cl"), []byte(identitySource), 0644))
	spec := offbench.KernelSpec{
		Name:       "pipeline_identity",
		SourceFile: "identity.cl",
		Inputs:     []offbench.Array{{Name: "in", Schema: record, Records: n}},
		Output:     offbench.Array{Name: "out", Schema: record, Records: n},
		GlobalSize: n,
		LocalSize:  64,
		Count:      n,
	}
	ec, err := offbench.NewExecutionContext(hostHandle(t), spec, offbench.WithKernelDir(dir))
	require.NoError(t, err)
	defer ec.Close()

	// Bit patterns a float path would canonicalize: signalling and quiet
	// NaNs with payloads, negative zero, infinities and denormals.
	patterns := []uint32{0x7fa00001, 0xffc0dead, 0x80000000, 0x7f800000, 0xff800000, 0x00000001, 0xffffffff, 0}
	input := ec.Inputs()[0].Bytes()
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(input[i*recordSize:], uint32(i)*2654435761)
		binary.LittleEndian.PutUint32(input[i*recordSize+4:], patterns[i%len(patterns)]^uint32(i>>3))
	}
	want := bytes.Clone(input)

	for iter := 0; iter < 2; iter++ {
		_, err := ec.RunIteration(context.Background(), iter)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(want, ec.Output().Bytes()), "iteration %d changed the data", iter)
	}
	assert.Equal(t, want, ec.Inputs()[0].Bytes(), "input staging buffer was modified")
}

func TestExecutionContextErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		spec   func() offbench.KernelSpec
		kind   offbench.Kind
	}{
		{
			name:   "empty source",
			source: "",
			spec:   func() offbench.KernelSpec { return doubleSpec(16, 16) },
			kind:   offbench.KindSourceReadError,
		},
		{
			name:   "unknown entry point",
			source: doubleSource,
			spec: func() offbench.KernelSpec {
				s := doubleSpec(16, 16)
				s.Name = "pipeline_missing"
				return s
			},
			kind: offbench.KindBuildError,
		},
		{
			name:   "struct layout mismatch",
			source: pairSource,
			spec: func() offbench.KernelSpec {
				s := doubleSpec(16, 16)
				s.Inputs[0].Schema = offbench.NewSchema("Pair",
					offbench.FieldDef{Name: "lo", Type: offbench.Float32},
					offbench.FieldDef{Name: "high", Type: offbench.Float32})
				return s
			},
			kind: offbench.KindBuildError,
		},
		{
			name:   "argument count",
			source: doubleSource,
			spec: func() offbench.KernelSpec {
				s := doubleSpec(16, 16)
				s.Inputs = append(s.Inputs, s.Inputs[0])
				return s
			},
			kind: offbench.KindBuildError,
		},
		{
			name:   "empty output",
			source: doubleSource,
			spec: func() offbench.KernelSpec {
				s := doubleSpec(16, 16)
				s.Output.Records = 0
				return s
			},
			kind: offbench.KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := offbench.NewExecutionContext(hostHandle(t), tt.spec(),
				offbench.WithKernelDir(writeKernel(t, tt.source)))
			require.Error(t, err)
			assert.True(t, offbench.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestReadSourceMissing(t *testing.T) {
	_, err := offbench.ReadSource(filepath.Join(t.TempDir(), "nope.cl"))
	assert.ErrorIs(t, err, offbench.ErrSourceReadError)
}

func TestUnboundHandle(t *testing.T) {
	_, err := offbench.NewExecutionContext(offbench.DeviceHandle{}, doubleSpec(16, 16))
	assert.True(t, offbench.IsKind(err, offbench.KindNoDeviceFound))
	assert.Equal(t, "<unbound>", offbench.DeviceHandle{}.String())
}

func TestNDRange(t *testing.T) {
	tests := []struct {
		global, local int
		wantG, wantL  int
	}{
		{1024, 256, 1024, 256},
		{1000, 256, 1024, 256},
		{1, 16, 16, 16},
		{10, 0, 10, 1},
	}
	for _, tt := range tests {
		s := doubleSpec(tt.global, tt.local)
		g, l := s.NDRange()
		assert.Equal(t, tt.wantG, g, "global for %d/%d", tt.global, tt.local)
		assert.Equal(t, tt.wantL, l, "local for %d/%d", tt.global, tt.local)
	}
}

func TestCloseIdempotent(t *testing.T) {
	ec, err := offbench.NewExecutionContext(hostHandle(t), doubleSpec(32, 16),
		offbench.WithKernelDir(writeKernel(t, doubleSource)))
	require.NoError(t, err)

	_, err = ec.RunIteration(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, ec.Close())
	require.NoError(t, ec.Close())

	_, err = ec.RunIteration(context.Background(), 1)
	assert.True(t, offbench.IsKind(err, offbench.KindDeviceError))
}

func TestStagingManager(t *testing.T) {
	q, err := hostcl.NewDriver().CPU().Open()
	require.NoError(t, err)
	defer q.Release()

	s := offbench.NewStagingManager(q)
	in, err := s.AllocateInput(100)
	require.NoError(t, err)
	assert.Equal(t, 100, in.Size())
	assert.Len(t, in.Bytes(), 100)
	assert.Equal(t, offbench.MapWrite, in.Access())

	out, err := s.AllocateOutput(8)
	require.NoError(t, err)
	assert.Equal(t, offbench.MapRead, out.Access())

	_, err = s.AllocateInput(0)
	assert.True(t, offbench.IsKind(err, offbench.KindAllocationFailed))

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.Nil(t, in.Bytes())
	assert.Nil(t, out.Bytes())
}

func TestCloseDrainsInflightWrites(t *testing.T) {
	const n = 1 << 20
	ec, err := offbench.NewExecutionContext(hostHandle(t), doubleSpec(n, 256),
		offbench.WithKernelDir(writeKernel(t, doubleSource)))
	require.NoError(t, err)

	in := offbench.View[float32](ec.Inputs()[0].Bytes())
	for i := range in {
		in[i] = float32(i)
	}

	// A cycle that stops after the flushed write leaves the transfer on
	// the queue. Close must wait for it before freeing the buffers.
	require.NoError(t, ec.Write(context.Background()))
	require.NoError(t, ec.Close())
	assert.Nil(t, ec.Output().Bytes())
	assert.Nil(t, ec.Inputs()[0].Bytes())
}

func TestCloseDrainsInflightKernel(t *testing.T) {
	const n = 1 << 16
	ec, err := offbench.NewExecutionContext(hostHandle(t), doubleSpec(n, 256),
		offbench.WithKernelDir(writeKernel(t, doubleSource)))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ec.Write(ctx))
	require.NoError(t, ec.Dispatch(ctx))
	require.NoError(t, ec.Close())
}
