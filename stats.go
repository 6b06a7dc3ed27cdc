// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"sort"
)

// Sample is the timing of one iteration, all in nanoseconds. Write, Kernel
// and Read come from device profiling; Total is host wall-clock around the
// write, dispatch and read sequence.
type Sample struct {
	Iteration int   `json:"iteration"`
	Write     int64 `json:"write_ns"`
	Kernel    int64 `json:"kernel_ns"`
	Read      int64 `json:"read_ns"`
	Total     int64 `json:"total_ns"`
}

// Series selects one timing category.
type Series int

const (
	SeriesWrite Series = iota
	SeriesKernel
	SeriesRead
	SeriesTotal
)

func (s Series) String() string {
	switch s {
	case SeriesWrite:
		return "write"
	case SeriesKernel:
		return "kernel"
	case SeriesRead:
		return "read"
	case SeriesTotal:
		return "total"
	default:
		return "unknown"
	}
}

// AllSeries lists the series in report order.
var AllSeries = []Series{SeriesKernel, SeriesWrite, SeriesRead, SeriesTotal}

// Stats accumulates samples across iterations.
type Stats struct {
	samples []Sample
}

// Record appends one sample.
func (s *Stats) Record(sample Sample) {
	s.samples = append(s.samples, sample)
}

// Len returns the number of recorded samples.
func (s *Stats) Len() int { return len(s.samples) }

// Samples returns a copy of the recorded samples.
func (s *Stats) Samples() []Sample {
	return append([]Sample(nil), s.samples...)
}

// Values returns the selected series in recording order.
func (s *Stats) Values(series Series) []float64 {
	out := make([]float64, len(s.samples))
	for i, sm := range s.samples {
		switch series {
		case SeriesWrite:
			out[i] = float64(sm.Write)
		case SeriesKernel:
			out[i] = float64(sm.Kernel)
		case SeriesRead:
			out[i] = float64(sm.Read)
		case SeriesTotal:
			out[i] = float64(sm.Total)
		}
	}
	return out
}

// Median returns the median of the selected series, 0 when empty.
func (s *Stats) Median(series Series) float64 {
	return Median(s.Values(series))
}

// Median sorts a copy of values and returns the middle element, or the
// mean of the two middle elements for an even count. It returns 0 for an
// empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
