// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Workload is a pluggable compute payload: the kernel it runs, how its
// inputs are produced and how the expected output is computed on the host.
type Workload interface {
	Name() string
	// DefaultLocalSize is the work-group size used when none is configured.
	DefaultLocalSize() int
	// Spec describes the kernel and arrays for a run over n elements.
	Spec(n, localSize int) (KernelSpec, error)
	// Populate fills the input staging buffers, in argument order.
	Populate(inputs [][]byte) error
	// Reference recomputes the output sequentially from the inputs.
	Reference(inputs [][]byte) ([]byte, error)
}

// Reporter receives per-iteration results as they are produced.
type Reporter interface {
	Iteration(s Sample)
	Verdict(v Verdict)
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Workload string
	Config   Config
	Device   DeviceHandle
	Started  time.Time
	Stats    Stats
	Verdicts []Verdict
}

// Runner drives a complete benchmark run: device discovery, execution
// context setup, the iteration loop with oracle checks, and teardown.
type Runner struct {
	Config   Config
	Catalog  *Catalog
	Logger   *zap.Logger
	Tracer   trace.Tracer
	Metrics  *Metrics
	Reporter Reporter
	// Progress, if set, is called after every iteration.
	Progress func(done int)
}

// Run executes w. Setup and runtime failures are returned as errors along
// with whatever was measured before the failure. Oracle mismatches are
// reported in the result and do not stop the run.
func (r *Runner) Run(ctx context.Context, w Workload) (res *Result, err error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := r.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	catalog := r.Catalog
	if catalog == nil {
		catalog = NewCatalog(logger)
	}

	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LocalSize == 0 {
		cfg.LocalSize = w.DefaultLocalSize()
	}

	res = &Result{
		RunID:    uuid.NewString(),
		Workload: w.Name(),
		Config:   cfg,
		Started:  time.Now(),
	}
	logger = logger.With(zap.String("run_id", res.RunID), zap.String("workload", w.Name()))

	handle, err := catalog.Discover(cfg.PlatformIndex)
	if err != nil {
		return res, err
	}
	res.Device = handle

	spec, err := w.Spec(cfg.Elements, cfg.LocalSize)
	if err != nil {
		return res, err
	}

	ec, err := NewExecutionContext(handle, spec,
		WithLogger(logger), WithTracer(tracer), WithKernelDir(cfg.KernelDir))
	if err != nil {
		return res, err
	}
	defer func() {
		err = multierr.Append(err, ec.Close())
	}()

	if err := w.Populate(ec.InputBytes()); err != nil {
		return res, err
	}

	for i := 0; i < cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sample, err := ec.RunIteration(ctx, i)
		if err != nil {
			return res, err
		}
		res.Stats.Record(sample)
		r.Metrics.ObserveSample(w.Name(), sample)
		if r.Reporter != nil {
			r.Reporter.Iteration(sample)
		}
		logger.Debug("iteration complete",
			zap.Int("iteration", i),
			zap.Int64("write_ns", sample.Write),
			zap.Int64("kernel_ns", sample.Kernel),
			zap.Int64("read_ns", sample.Read),
			zap.Int64("total_ns", sample.Total))

		if cfg.CheckResult {
			v, err := r.check(w, ec, cfg.Tolerance)
			if err != nil {
				return res, err
			}
			res.Verdicts = append(res.Verdicts, v)
			r.Metrics.ObserveVerdict(w.Name(), v)
			if r.Reporter != nil {
				r.Reporter.Verdict(v)
			}
			if !v.Correct {
				logger.Warn("device result diverges from reference",
					zap.Stringer("mismatch", v.Mismatch))
			}
		}
		if r.Progress != nil {
			r.Progress(i + 1)
		}
	}
	return res, nil
}

func (r *Runner) check(w Workload, ec *ExecutionContext, tolerance float64) (Verdict, error) {
	ref, err := w.Reference(ec.InputBytes())
	if err != nil {
		return Verdict{}, fmt.Errorf("reference %s: %w", w.Name(), err)
	}
	return Compare(ec.Spec().Output.Schema, ec.Output().Bytes(), ref, tolerance), nil
}

// Correct reports whether every recorded verdict passed.
func (r *Result) Correct() bool {
	for _, v := range r.Verdicts {
		if !v.Correct {
			return false
		}
	}
	return true
}
