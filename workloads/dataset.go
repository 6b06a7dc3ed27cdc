// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workloads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/LynnColeArt/offbench"
)

// CSVSeparator is the field separator of KTM telemetry exports.
const CSVSeparator = '*'

// canDataColumns are the header labels read into CanData, in field order.
var canDataColumns = []string{"Time", "ABS_Lean_Angle", "ABS_Pitch_Info", "ABS_Front_Wheel_Speed"}

// ReadCanData fills dst from the CSV file at path. The file must start
// with a header row naming at least the CanData columns, and must hold at
// least len(dst) value rows.
func ReadCanData(path string, dst []CanData) error {
	f, err := os.Open(path)
	if err != nil {
		return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
			fmt.Sprintf("could not open dataset %s", path), err)
	}
	defer f.Close()
	return DecodeCanData(f, dst)
}

// DecodeCanData is ReadCanData over a reader.
func DecodeCanData(r io.Reader, dst []CanData) error {
	cr := csv.NewReader(r)
	cr.Comma = CSVSeparator
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData", "reading CSV header", err)
	}
	cols := make([]int, len(canDataColumns))
	for i, want := range canDataColumns {
		cols[i] = -1
		for j, h := range header {
			if strings.TrimSpace(h) == want {
				cols[i] = j
				break
			}
		}
		if cols[i] < 0 {
			return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
				fmt.Sprintf("CSV header lacks column %q", want), nil)
		}
	}

	rows := 0
	for rows < len(dst) {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
				fmt.Sprintf("reading CSV row %d", rows+1), err)
		}
		var vals [4]float32
		for i, c := range cols {
			if c >= len(rec) {
				return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
					fmt.Sprintf("row %d has %d fields, column %q is missing", rows+1, len(rec), canDataColumns[i]), nil)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 32)
			if err != nil {
				return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
					fmt.Sprintf("row %d column %q", rows+1, canDataColumns[i]), err)
			}
			vals[i] = float32(v)
		}
		dst[rows] = CanData{
			Time:               vals[0],
			AbsLeanAngle:       vals[1],
			AbsPitchInfo:       vals[2],
			AbsFrontWheelSpeed: vals[3],
		}
		rows++
	}
	if rows < len(dst) {
		return offbench.NewError(offbench.KindInvalidArgument, "ReadCanData",
			fmt.Sprintf("CSV must contain at least %d value rows, found %d", len(dst), rows), nil)
	}
	return nil
}
