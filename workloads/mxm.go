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
	// MatVecName is the CLI name of the matrix-vector workload.
	MatVecName = "mxm"

	matVecKernel = "matrixVectorMultiplication"
	matVecSource = "mxm.cl"
)

var floatSchema = offbench.ScalarSchema(offbench.Float32)

// MatVec computes C = A x B for an n x n matrix A and a vector B of
// length n. Inputs are pseudo-random in [0, n).
type MatVec struct {
	seed int64
	n    int
}

// NewMatVec creates the workload with a seeded generator.
func NewMatVec(seed int64) *MatVec {
	return &MatVec{seed: seed}
}

// Name implements offbench.Workload.
func (m *MatVec) Name() string { return MatVecName }

// DefaultLocalSize implements offbench.Workload.
func (m *MatVec) DefaultLocalSize() int { return 256 }

// Spec implements offbench.Workload.
func (m *MatVec) Spec(n, localSize int) (offbench.KernelSpec, error) {
	if n <= 0 || n > math.MaxInt32/n {
		return offbench.KernelSpec{}, offbench.NewError(offbench.KindInvalidArgument, "mxm",
			fmt.Sprintf("matrix order %d out of range", n), nil)
	}
	m.n = n
	return offbench.KernelSpec{
		Name:       matVecKernel,
		SourceFile: matVecSource,
		Inputs: []offbench.Array{
			{Name: "A", Schema: floatSchema, Records: n * n},
			{Name: "B", Schema: floatSchema, Records: n},
		},
		Output:     offbench.Array{Name: "C", Schema: floatSchema, Records: n},
		GlobalSize: n,
		LocalSize:  localSize,
		Count:      int32(n),
	}, nil
}

// Populate implements offbench.Workload.
func (m *MatVec) Populate(inputs [][]byte) error {
	a, b, err := m.split(inputs)
	if err != nil {
		return err
	}
	r := rand.New(rand.NewPCG(uint64(m.seed), uint64(m.n)))
	scale := float32(m.n)
	for i := range a {
		a[i] = r.Float32() * scale
	}
	for i := range b {
		b[i] = r.Float32() * scale
	}
	return nil
}

// Reference implements offbench.Workload.
func (m *MatVec) Reference(inputs [][]byte) ([]byte, error) {
	a, b, err := m.split(inputs)
	if err != nil {
		return nil, err
	}
	c := make([]float32, m.n)
	for row := range c {
		c[row] = matVecRow(a, b, m.n, row)
	}
	return offbench.AsBytes(c), nil
}

func (m *MatVec) split(inputs [][]byte) (a, b []float32, err error) {
	if len(inputs) != 2 {
		return nil, nil, offbench.NewError(offbench.KindInvalidArgument, MatVecName,
			fmt.Sprintf("expected 2 input arrays, got %d", len(inputs)), nil)
	}
	a = offbench.View[float32](inputs[0])
	b = offbench.View[float32](inputs[1])
	if len(a) != m.n*m.n || len(b) != m.n {
		return nil, nil, offbench.NewError(offbench.KindInvalidArgument, MatVecName,
			fmt.Sprintf("inputs hold %d and %d values, want %d and %d", len(a), len(b), m.n*m.n, m.n), nil)
	}
	return a, b, nil
}

// matVecRow is the dot product of row of a with b, accumulated in float32
// in column order.
func matVecRow(a, b []float32, n, row int) float32 {
	var sum float32
	for j, v := range a[row*n : (row+1)*n] {
		sum += v * b[j]
	}
	return sum
}
