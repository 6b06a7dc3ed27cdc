// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const tracerName = "github.com/LynnColeArt/offbench"

// Array describes one dataset or result array of a kernel.
type Array struct {
	Name    string
	Schema  Schema
	Records int
}

// Bytes returns the array size in bytes.
func (a Array) Bytes() int { return a.Records * a.Schema.Size() }

// KernelSpec describes a kernel and the arrays it is bound to. Arguments
// are bound left to right as Inputs, Output, Count.
type KernelSpec struct {
	Name       string // Entry point in the source
	SourceFile string // File name inside the kernel directory
	Inputs     []Array
	Output     Array
	GlobalSize int // Logical index space
	LocalSize  int // Work-group size
	Count      int32
}

// NumArgs returns the number of kernel arguments the spec binds.
func (k KernelSpec) NumArgs() int { return len(k.Inputs) + 2 }

// NDRange returns the global size rounded up to a whole number of
// work-groups and the local size. Kernels guard against the padding.
func (k KernelSpec) NDRange() (global, local int) {
	local = k.LocalSize
	if local < 1 {
		local = 1
	}
	groups := (k.GlobalSize + local - 1) / local
	return groups * local, local
}

// Validate checks that every array is non-empty.
func (k KernelSpec) Validate() error {
	if k.Name == "" || k.SourceFile == "" {
		return NewError(KindInvalidArgument, "KernelSpec", "kernel name and source file are required", nil)
	}
	if len(k.Inputs) == 0 {
		return NewError(KindInvalidArgument, "KernelSpec", "at least one input array is required", nil)
	}
	for _, a := range append([]Array{k.Output}, k.Inputs...) {
		if a.Bytes() <= 0 {
			return NewError(KindInvalidArgument, "KernelSpec", fmt.Sprintf("array %q is empty", a.Name), nil)
		}
	}
	if k.GlobalSize <= 0 {
		return NewError(KindInvalidArgument, "KernelSpec", "global size must be positive", nil)
	}
	return nil
}

// ExecutionContext owns the device queue, the built kernel and the staging
// and device-resident buffers of a run, and drives the write, dispatch and
// read cycle. Buffers and the kernel are reused across iterations. It is
// not safe for concurrent use.
type ExecutionContext struct {
	handle DeviceHandle
	spec   KernelSpec
	logger *zap.Logger
	tracer trace.Tracer

	queue   Queue
	kernel  Kernel
	staging *StagingManager
	inputs  []*MappedBuffer
	output  *MappedBuffer
	devIn   []DeviceBuffer
	devOut  DeviceBuffer

	writeEvents []Event
	kernelEvent Event
	readEvent   Event

	closed bool
}

// Option configures an ExecutionContext.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	kernelDir string
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer sets the tracer used for iteration and stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithKernelDir sets the directory kernel sources are read from.
func WithKernelDir(dir string) Option {
	return func(o *options) { o.kernelDir = dir }
}

// NewExecutionContext opens the device, builds the kernel and allocates
// every buffer. Any failure releases what was acquired so far.
func NewExecutionContext(handle DeviceHandle, spec KernelSpec, opts ...Option) (*ExecutionContext, error) {
	o := options{kernelDir: DefaultKernelDir}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if handle.Device == nil {
		return nil, NewError(KindNoDeviceFound, "NewExecutionContext", "device handle is not bound", nil)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	source, err := ReadSource(filepath.Join(o.kernelDir, spec.SourceFile))
	if err != nil {
		return nil, err
	}

	ec := &ExecutionContext{
		handle: handle,
		spec:   spec,
		logger: o.logger.With(zap.String("kernel", spec.Name)),
		tracer: o.tracer,
	}
	if err := ec.setup(source); err != nil {
		return nil, multierr.Append(err, ec.Close())
	}
	return ec, nil
}

func (e *ExecutionContext) setup(source string) error {
	q, err := e.handle.Device.Open()
	if err != nil {
		return wrapDevice("Open", "creating context and command queue", err)
	}
	e.queue = q
	e.staging = NewStagingManager(q)

	for _, a := range append([]Array{e.spec.Output}, e.spec.Inputs...) {
		if err := a.Schema.ValidateSource(source); err != nil {
			return err
		}
	}

	k, err := q.Build(source, e.spec.Name)
	if err != nil {
		if IsKind(err, KindBuildError) {
			return err
		}
		return NewBuildError("Build", fmt.Sprintf("building kernel %s", e.spec.Name), "", err)
	}
	e.kernel = k
	if k.NumArgs() != e.spec.NumArgs() {
		return NewBuildError("Build",
			fmt.Sprintf("kernel %s takes %d arguments, host binds %d", e.spec.Name, k.NumArgs(), e.spec.NumArgs()), "", nil)
	}

	for _, a := range e.spec.Inputs {
		mb, err := e.staging.AllocateInput(a.Bytes())
		if err != nil {
			return err
		}
		db, err := e.allocDevice(a)
		if err != nil {
			return err
		}
		e.inputs = append(e.inputs, mb)
		e.devIn = append(e.devIn, db)
	}
	if e.output, err = e.staging.AllocateOutput(e.spec.Output.Bytes()); err != nil {
		return err
	}
	if e.devOut, err = e.allocDevice(e.spec.Output); err != nil {
		return err
	}

	e.logger.Debug("execution context ready",
		zap.Int("inputs", len(e.inputs)),
		zap.Int("output_bytes", e.output.Size()))
	return nil
}

func (e *ExecutionContext) allocDevice(a Array) (DeviceBuffer, error) {
	db, err := e.queue.AllocDevice(a.Bytes())
	if err != nil {
		if IsKind(err, KindAllocationFailed) {
			return nil, err
		}
		return nil, NewError(KindAllocationFailed, "AllocDevice",
			fmt.Sprintf("device buffer %s (%d bytes)", a.Name, a.Bytes()), err)
	}
	return db, nil
}

// ReadSource reads a kernel source file.
func ReadSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", NewError(KindSourceReadError, "ReadSource", fmt.Sprintf("could not open kernel file %s", path), err)
	}
	if len(b) == 0 {
		return "", NewError(KindSourceReadError, "ReadSource", fmt.Sprintf("kernel file %s is empty", path), nil)
	}
	return string(b), nil
}

// Handle returns the device the context is bound to.
func (e *ExecutionContext) Handle() DeviceHandle { return e.handle }

// Spec returns the kernel spec.
func (e *ExecutionContext) Spec() KernelSpec { return e.spec }

// Inputs returns the input staging buffers in argument order.
func (e *ExecutionContext) Inputs() []*MappedBuffer { return e.inputs }

// InputBytes returns the bytes of every input staging buffer.
func (e *ExecutionContext) InputBytes() [][]byte {
	out := make([][]byte, len(e.inputs))
	for i, in := range e.inputs {
		out[i] = in.Bytes()
	}
	return out
}

// Output returns the result staging buffer.
func (e *ExecutionContext) Output() *MappedBuffer { return e.output }

// Write submits one non-blocking transfer per input array and flushes the
// queue so the transfers start before dependent work is issued.
func (e *ExecutionContext) Write(ctx context.Context) error {
	_, span := e.tracer.Start(ctx, "write")
	defer span.End()

	if err := e.releaseEvents(); err != nil {
		e.logger.Warn("releasing events of previous iteration", zap.Error(err))
	}
	for i, in := range e.inputs {
		ev, err := e.queue.EnqueueWrite(e.devIn[i], in.buf)
		if err != nil {
			return e.fail(span, NewError(KindDispatchError, "Write",
				fmt.Sprintf("enqueue write of %s", e.spec.Inputs[i].Name), err))
		}
		e.writeEvents = append(e.writeEvents, ev)
	}
	if err := e.queue.Flush(); err != nil {
		return e.fail(span, NewError(KindDispatchError, "Write", "flush", err))
	}
	return nil
}

// Dispatch binds the device buffers and the element count and submits the
// kernel over the work-group partitioned index space.
func (e *ExecutionContext) Dispatch(ctx context.Context) error {
	global, local := e.spec.NDRange()
	_, span := e.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		attribute.Int("global", global), attribute.Int("local", local)))
	defer span.End()

	idx := 0
	for _, db := range e.devIn {
		if err := e.kernel.SetArg(idx, db); err != nil {
			return e.fail(span, NewError(KindDispatchError, "SetArg", fmt.Sprintf("argument %d", idx), err))
		}
		idx++
	}
	if err := e.kernel.SetArg(idx, e.devOut); err != nil {
		return e.fail(span, NewError(KindDispatchError, "SetArg", fmt.Sprintf("argument %d", idx), err))
	}
	idx++
	if err := e.kernel.SetArg(idx, e.spec.Count); err != nil {
		return e.fail(span, NewError(KindDispatchError, "SetArg", fmt.Sprintf("argument %d", idx), err))
	}

	ev, err := e.queue.EnqueueKernel(e.kernel, global, local)
	if err != nil {
		return e.fail(span, NewError(KindDispatchError, "EnqueueKernel", e.spec.Name, err))
	}
	e.kernelEvent = ev
	return nil
}

// ReadBack transfers the result into the output staging buffer and returns
// once it is host-visible.
func (e *ExecutionContext) ReadBack(ctx context.Context) error {
	_, span := e.tracer.Start(ctx, "read")
	defer span.End()

	ev, err := e.queue.EnqueueRead(e.output.buf, e.devOut)
	if err != nil {
		return e.fail(span, NewError(KindDispatchError, "Read", e.spec.Output.Name, err))
	}
	e.readEvent = ev
	return nil
}

// RunIteration performs one write, dispatch and read cycle, measuring host
// wall-clock time around the three calls, then profiles each event.
func (e *ExecutionContext) RunIteration(ctx context.Context, iteration int) (Sample, error) {
	ctx, span := e.tracer.Start(ctx, "iteration", trace.WithAttributes(
		attribute.Int("iteration", iteration), attribute.String("kernel", e.spec.Name)))
	defer span.End()

	if e.closed {
		return Sample{}, NewError(KindDeviceError, "RunIteration", "execution context is closed", nil)
	}

	start := time.Now()
	if err := e.Write(ctx); err != nil {
		return Sample{}, err
	}
	if err := e.Dispatch(ctx); err != nil {
		return Sample{}, err
	}
	if err := e.ReadBack(ctx); err != nil {
		return Sample{}, err
	}
	total := time.Since(start)

	s, err := e.Profile(ctx)
	if err != nil {
		return Sample{}, e.fail(span, err)
	}
	s.Iteration = iteration
	s.Total = total.Nanoseconds()
	return s, nil
}

// Profile waits on the events of the last cycle and returns their device
// durations. Write is the sum over all input transfers.
func (e *ExecutionContext) Profile(ctx context.Context) (Sample, error) {
	var s Sample
	for _, ev := range e.writeEvents {
		ns, err := ElapsedNanos(ctx, ev)
		if err != nil {
			return Sample{}, err
		}
		s.Write += ns
	}
	var err error
	if s.Kernel, err = ElapsedNanos(ctx, e.kernelEvent); err != nil {
		return Sample{}, err
	}
	if s.Read, err = ElapsedNanos(ctx, e.readEvent); err != nil {
		return Sample{}, err
	}
	return s, nil
}

func (e *ExecutionContext) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (e *ExecutionContext) releaseEvents() error {
	var err error
	for _, ev := range e.writeEvents {
		err = multierr.Append(err, ev.Release())
	}
	e.writeEvents = e.writeEvents[:0]
	for _, ev := range []Event{e.kernelEvent, e.readEvent} {
		if ev != nil {
			err = multierr.Append(err, ev.Release())
		}
	}
	e.kernelEvent, e.readEvent = nil, nil
	return err
}

// Close drains the queue, then releases events, the kernel, device
// buffers, staging buffers and the queue, in that order. Commands still in
// flight when a cycle aborts complete before any memory they touch is
// released. It is safe to call more than once and from a partially
// constructed context.
func (e *ExecutionContext) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	var err error
	if e.queue != nil {
		if ferr := e.queue.Finish(); ferr != nil {
			err = wrapDevice("Finish", "draining command queue", ferr)
		}
	}
	err = multierr.Append(err, e.releaseEvents())
	if e.kernel != nil {
		err = multierr.Append(err, e.kernel.Release())
	}
	for _, db := range e.devIn {
		err = multierr.Append(err, db.Release())
	}
	if e.devOut != nil {
		err = multierr.Append(err, e.devOut.Release())
	}
	if e.staging != nil {
		err = multierr.Append(err, e.staging.Release())
	}
	if e.queue != nil {
		err = multierr.Append(err, e.queue.Release())
	}
	if err != nil {
		e.logger.Warn("teardown reported errors", zap.Error(err))
	}
	return err
}
