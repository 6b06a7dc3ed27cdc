// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workloads

import (
	"github.com/LynnColeArt/offbench"
)

const (
	// QueryName is the CLI name of the query workload.
	QueryName = "query"

	queryKernel = "computeNesMap"
	querySource = "query_map.cl"
)

// InputRecord is one input tuple.
type InputRecord struct {
	ID    uint32
	Value uint32
}

// OutputRecord is an input tuple with two computed columns.
type OutputRecord struct {
	ID    uint32
	Value uint32
	New1  int32 // value * 2
	New2  int32 // value + 2
}

var (
	inputSchema = offbench.NewSchema("InputRecord",
		offbench.FieldDef{Name: "id", Type: offbench.Uint32},
		offbench.FieldDef{Name: "value", Type: offbench.Uint32},
	)
	outputSchema = offbench.NewSchema("OutputRecord",
		offbench.FieldDef{Name: "id", Type: offbench.Uint32},
		offbench.FieldDef{Name: "value", Type: offbench.Uint32},
		offbench.FieldDef{Name: "new1", Type: offbench.Int32},
		offbench.FieldDef{Name: "new2", Type: offbench.Int32},
	)
)

// Query projects every tuple and appends value*2 and value+2.
type Query struct{}

// NewQuery creates the workload.
func NewQuery() *Query { return &Query{} }

// Name implements offbench.Workload.
func (q *Query) Name() string { return QueryName }

// DefaultLocalSize implements offbench.Workload.
func (q *Query) DefaultLocalSize() int { return 16 }

// Spec implements offbench.Workload.
func (q *Query) Spec(n, localSize int) (offbench.KernelSpec, error) {
	if err := inputSchema.ValidateGo(InputRecord{}); err != nil {
		return offbench.KernelSpec{}, err
	}
	if err := outputSchema.ValidateGo(OutputRecord{}); err != nil {
		return offbench.KernelSpec{}, err
	}
	return offbench.KernelSpec{
		Name:       queryKernel,
		SourceFile: querySource,
		Inputs:     []offbench.Array{{Name: "input", Schema: inputSchema, Records: n}},
		Output:     offbench.Array{Name: "result", Schema: outputSchema, Records: n},
		GlobalSize: n,
		LocalSize:  localSize,
		Count:      int32(n),
	}, nil
}

// Populate implements offbench.Workload. Tuple i is {i, i}.
func (q *Query) Populate(inputs [][]byte) error {
	in, err := single(QueryName, inputs)
	if err != nil {
		return err
	}
	tuples := offbench.View[InputRecord](in)
	for i := range tuples {
		tuples[i] = InputRecord{ID: uint32(i), Value: uint32(i)}
	}
	return nil
}

// Reference implements offbench.Workload.
func (q *Query) Reference(inputs [][]byte) ([]byte, error) {
	in, err := single(QueryName, inputs)
	if err != nil {
		return nil, err
	}
	tuples := offbench.View[InputRecord](in)
	out := make([]OutputRecord, len(tuples))
	for i, t := range tuples {
		out[i] = project(t)
	}
	return offbench.AsBytes(out), nil
}

func project(t InputRecord) OutputRecord {
	return OutputRecord{
		ID:    t.ID,
		Value: t.Value,
		New1:  int32(t.Value) * 2,
		New2:  int32(t.Value) + 2,
	}
}
