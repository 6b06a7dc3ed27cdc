// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package offbench

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports stage timings and oracle verdicts. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	iterations    *prometheus.CounterVec
	verdicts      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// stageDuration tracks device and wall-clock time per stage
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "offbench_stage_duration_seconds",
			Help:    "Duration of each offload stage in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12), // 1us to ~4s
		}, []string{"workload", "stage"}),

		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "offbench_iterations_total",
			Help: "Completed offload iterations",
		}, []string{"workload"}),

		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "offbench_oracle_verdicts_total",
			Help: "Reference oracle verdicts by result",
		}, []string{"workload", "result"}),
	}
}

// ObserveSample records one iteration's timings.
func (m *Metrics) ObserveSample(workload string, s Sample) {
	if m == nil {
		return
	}
	m.iterations.WithLabelValues(workload).Inc()
	m.stageDuration.WithLabelValues(workload, SeriesWrite.String()).Observe(float64(s.Write) / 1e9)
	m.stageDuration.WithLabelValues(workload, SeriesKernel.String()).Observe(float64(s.Kernel) / 1e9)
	m.stageDuration.WithLabelValues(workload, SeriesRead.String()).Observe(float64(s.Read) / 1e9)
	m.stageDuration.WithLabelValues(workload, SeriesTotal.String()).Observe(float64(s.Total) / 1e9)
}

// ObserveVerdict counts one oracle verdict.
func (m *Metrics) ObserveVerdict(workload string, v Verdict) {
	if m == nil {
		return
	}
	result := "correct"
	if !v.Correct {
		result = "incorrect"
	}
	m.verdicts.WithLabelValues(workload, result).Inc()
}
