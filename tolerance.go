// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"fmt"
	"math"
)

// DefaultTolerance is the absolute per-field tolerance of the oracle. Its
// unit is that of the compared field (degrees, m/s, counts).
const DefaultTolerance = 0.1

// Mismatch is the first field that diverged from the reference.
type Mismatch struct {
	Index     int // Record index, -1 for a length mismatch
	Field     string
	Device    float64
	Reference float64
	Diff      float64
}

func (m Mismatch) String() string {
	if m.Index < 0 {
		return fmt.Sprintf("record count differs: device %d, reference %d",
			int(m.Device), int(m.Reference))
	}
	return fmt.Sprintf("[%d] %s: device %g - reference %g (diff %g)",
		m.Index, m.Field, m.Device, m.Reference, m.Diff)
}

// Verdict is the outcome of one oracle comparison.
type Verdict struct {
	Correct  bool
	Checked  int // Records compared before stopping
	Mismatch *Mismatch
}

func (v Verdict) String() string {
	if v.Correct {
		return "Result is correct"
	}
	return "Result is not correct"
}

// Compare checks every field of every record of device against reference
// and stops at the first field whose absolute difference exceeds tolerance.
// Equal values, including matching infinities, and pairs of NaN are within
// tolerance.
func Compare(schema Schema, device, reference []byte, tolerance float64) Verdict {
	nd, nr := schema.Records(device), schema.Records(reference)
	if nd != nr {
		return Verdict{Mismatch: &Mismatch{Index: -1, Field: "length", Device: float64(nd), Reference: float64(nr)}}
	}

	for i := 0; i < nd; i++ {
		for f := range schema.Fields {
			d := schema.Value(device, i, f)
			r := schema.Value(reference, i, f)
			if withinTolerance(d, r, tolerance) {
				continue
			}
			return Verdict{
				Checked: i + 1,
				Mismatch: &Mismatch{
					Index:     i,
					Field:     schema.Fields[f].Name,
					Device:    d,
					Reference: r,
					Diff:      math.Abs(d - r),
				},
			}
		}
	}
	return Verdict{Correct: true, Checked: nd}
}

func withinTolerance(a, b, tol float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	// NaN against a number fails here too.
	return math.Abs(a-b) <= tol
}
