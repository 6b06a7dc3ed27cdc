// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunRecord is the JSON form of a run, one file per run.
type RunRecord struct {
	RunID      string             `json:"run_id"`
	Workload   string             `json:"workload"`
	Device     string             `json:"device"`
	Fallback   bool               `json:"cpu_fallback"`
	Elements   int                `json:"elements"`
	Iterations int                `json:"iterations"`
	LocalSize  int                `json:"local_size"`
	Tolerance  float64            `json:"tolerance"`
	Samples    []Sample           `json:"samples"`
	Verdicts   []VerdictRecord    `json:"verdicts,omitempty"`
	Medians    map[string]float64 `json:"medians_ns"`
	Error      string             `json:"error,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// VerdictRecord is the JSON form of a Verdict.
type VerdictRecord struct {
	Correct  bool   `json:"correct"`
	Mismatch string `json:"mismatch,omitempty"` // Rendered, values may be NaN or Inf
}

// Record converts the result, and the error that ended the run if any.
func (r *Result) Record(runErr error) RunRecord {
	rec := RunRecord{
		RunID:      r.RunID,
		Workload:   r.Workload,
		Device:     r.Device.String(),
		Fallback:   r.Device.Fallback,
		Elements:   r.Config.Elements,
		Iterations: r.Config.Iterations,
		LocalSize:  r.Config.LocalSize,
		Tolerance:  r.Config.Tolerance,
		Samples:    r.Stats.Samples(),
		Medians:    make(map[string]float64, len(AllSeries)),
		Timestamp:  r.Started,
	}
	for _, s := range AllSeries {
		rec.Medians[s.String()] = r.Stats.Median(s)
	}
	for _, v := range r.Verdicts {
		vr := VerdictRecord{Correct: v.Correct}
		if v.Mismatch != nil {
			vr.Mismatch = v.Mismatch.String()
		}
		rec.Verdicts = append(rec.Verdicts, vr)
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return rec
}

// WriteRunLog writes rec as indented JSON into dir, creating it if needed,
// and returns the file path.
func WriteRunLog(dir string, rec RunRecord) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	id := rec.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := fmt.Sprintf("%s_%s_%s.json", rec.Workload, rec.Timestamp.Format("20060102_150405"), id)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRunLog loads a record written by WriteRunLog.
func ReadRunLog(path string) (RunRecord, error) {
	var rec RunRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse run record %s: %w", path, err)
	}
	return rec, nil
}
