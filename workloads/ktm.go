// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workloads

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/LynnColeArt/offbench"
)

const (
	// KTMName is the CLI name of the telemetry map workload.
	KTMName = "ktm"

	ktmKernel = "map"
	ktmSource = "ktm_map.cl"

	gravity = 9.81
)

// CanData is one CAN bus telemetry sample.
type CanData struct {
	Time               float32
	AbsLeanAngle       float32 // degrees
	AbsPitchInfo       float32
	AbsFrontWheelSpeed float32 // km/h
}

// AggregationInput is the per-sample value fed to curve aggregation.
type AggregationInput struct {
	Radius             float32 // metres
	AbsLeanAngle       float32
	AbsFrontWheelSpeed float32
}

var (
	canDataSchema = offbench.NewSchema("CanData",
		offbench.FieldDef{Name: "time", Type: offbench.Float32},
		offbench.FieldDef{Name: "abs_lean_angle", Type: offbench.Float32},
		offbench.FieldDef{Name: "abs_pitch_info", Type: offbench.Float32},
		offbench.FieldDef{Name: "abs_front_wheel_speed", Type: offbench.Float32},
	)
	aggregationSchema = offbench.NewSchema("AggregationInput",
		offbench.FieldDef{Name: "radius", Type: offbench.Float32},
		offbench.FieldDef{Name: "abs_lean_angle", Type: offbench.Float32},
		offbench.FieldDef{Name: "abs_front_wheel_speed", Type: offbench.Float32},
	)
)

// KTM maps riding telemetry to curve radii. Samples come from a CSV file
// when a dataset path is given and from a seeded generator otherwise.
type KTM struct {
	path string
	seed int64
	n    int
}

// NewKTM creates the workload. An empty path selects synthetic data.
func NewKTM(path string, seed int64) *KTM {
	return &KTM{path: path, seed: seed}
}

// Name implements offbench.Workload.
func (k *KTM) Name() string { return KTMName }

// DefaultLocalSize implements offbench.Workload.
func (k *KTM) DefaultLocalSize() int { return 256 }

// Spec implements offbench.Workload.
func (k *KTM) Spec(n, localSize int) (offbench.KernelSpec, error) {
	if err := canDataSchema.ValidateGo(CanData{}); err != nil {
		return offbench.KernelSpec{}, err
	}
	if err := aggregationSchema.ValidateGo(AggregationInput{}); err != nil {
		return offbench.KernelSpec{}, err
	}
	k.n = n
	return offbench.KernelSpec{
		Name:       ktmKernel,
		SourceFile: ktmSource,
		Inputs:     []offbench.Array{{Name: "input", Schema: canDataSchema, Records: n}},
		Output:     offbench.Array{Name: "result", Schema: aggregationSchema, Records: n},
		GlobalSize: n,
		LocalSize:  localSize,
		Count:      int32(n),
	}, nil
}

// Populate implements offbench.Workload.
func (k *KTM) Populate(inputs [][]byte) error {
	in, err := single(KTMName, inputs)
	if err != nil {
		return err
	}
	samples := offbench.View[CanData](in)
	if k.path != "" {
		return ReadCanData(k.path, samples)
	}
	r := rand.New(rand.NewPCG(uint64(k.seed), uint64(len(samples))))
	for i := range samples {
		samples[i] = syntheticSample(r, i)
	}
	return nil
}

// syntheticSample produces a plausible 100 Hz riding sample. Lean angles
// stay away from zero so that radii are finite.
func syntheticSample(r *rand.Rand, i int) CanData {
	lean := 2 + r.Float32()*55
	if r.IntN(2) == 0 {
		lean = -lean
	}
	return CanData{
		Time:               float32(i) / 100,
		AbsLeanAngle:       lean,
		AbsPitchInfo:       r.Float32()*4 - 2,
		AbsFrontWheelSpeed: 20 + r.Float32()*180,
	}
}

// Reference implements offbench.Workload.
func (k *KTM) Reference(inputs [][]byte) ([]byte, error) {
	in, err := single(KTMName, inputs)
	if err != nil {
		return nil, err
	}
	samples := offbench.View[CanData](in)
	out := make([]AggregationInput, len(samples))
	for i := range samples {
		out[i] = mapRiding(samples[i])
	}
	return offbench.AsBytes(out), nil
}

// mapRiding computes the curve radius r = |cot(lean)| * v² / g with the
// lean angle in degrees and the speed converted from km/h to m/s.
func mapRiding(s CanData) AggregationInput {
	lean := float64(radians(s.AbsLeanAngle))
	cot := float32(math.Cos(lean) / math.Sin(lean))
	speed := s.AbsFrontWheelSpeed / 3.6
	return AggregationInput{
		Radius:             float32(math.Abs(float64(cot))) * speed * speed / gravity,
		AbsLeanAngle:       float32(math.Abs(float64(s.AbsLeanAngle))),
		AbsFrontWheelSpeed: s.AbsFrontWheelSpeed,
	}
}

func radians(degrees float32) float32 {
	return degrees * (math.Pi / 180)
}

func (k *KTM) String() string {
	if k.path == "" {
		return fmt.Sprintf("%s (synthetic, seed %d)", KTMName, k.seed)
	}
	return fmt.Sprintf("%s (%s)", KTMName, k.path)
}
