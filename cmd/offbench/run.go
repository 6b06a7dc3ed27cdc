// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/LynnColeArt/offbench"
	"github.com/LynnColeArt/offbench/logutil"
	"github.com/LynnColeArt/offbench/workloads"
)

func newWorkloadCmd(name, short string, dataset bool) *cobra.Command {
	use := name + " [platformIndex] [elementCount]"
	maxArgs := 2
	if dataset {
		use += " [datasetPath]"
		maxArgs = 3
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(maxArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if err := applyArgs(&s, args); err != nil {
				return err
			}
			s.Workload = name

			if printConfig, _ := cmd.Flags().GetBool("print-config"); printConfig {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				defer enc.Close()
				return enc.Encode(s)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWorkload(ctx, s, cmd.OutOrStdout())
		},
	}
	addRunFlags(cmd, dataset)
	return cmd
}

// applyArgs overrides the platform, element count and dataset with the
// positional arguments that are present.
func applyArgs(s *settings, args []string) error {
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return offbench.NewError(offbench.KindInvalidArgument, "args",
				fmt.Sprintf("platform index %q is not an integer", args[0]), err)
		}
		s.PlatformIndex = p
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return offbench.NewError(offbench.KindInvalidArgument, "args",
				fmt.Sprintf("element count %q is not an integer", args[1]), err)
		}
		s.Elements = n
	}
	if len(args) > 2 {
		s.DatasetPath = args[2]
	}
	return nil
}

func runWorkload(ctx context.Context, s settings, out io.Writer) (err error) {
	logger := logutil.InitLogger(s.LogLevel, s.LogFormat)
	defer logger.Sync() //nolint:errcheck

	w, err := workloads.New(s.Workload, workloads.Options{DatasetPath: s.DatasetPath, Seed: s.Seed})
	if err != nil {
		return err
	}

	runner := &offbench.Runner{
		Config:   s.Config,
		Catalog:  offbench.NewCatalog(logger),
		Logger:   logger,
		Reporter: &consoleReporter{w: out},
	}

	if s.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithSampler(sdktrace.AlwaysSample()))
		defer func() {
			err = multierr.Append(err, tp.Shutdown(context.WithoutCancel(ctx)))
		}()
		runner.Tracer = tp.Tracer("offbench")
	}

	var reg *prometheus.Registry
	if s.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		runner.Metrics = offbench.NewMetrics(reg)
	}

	if s.Progress || (s.Iterations > 1 && isatty.IsTerminal(os.Stderr.Fd())) {
		bar := progressbar.NewOptions(s.Iterations,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(s.Workload),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		runner.Progress = func(done int) { _ = bar.Set(done) }
		defer bar.Finish() //nolint:errcheck
	}

	res, runErr := runner.Run(ctx, w)
	if res != nil {
		if runErr == nil {
			printMedians(out, &res.Stats)
		}
		if s.JSONLogDir != "" {
			path, err := offbench.WriteRunLog(s.JSONLogDir, res.Record(runErr))
			if err != nil {
				logger.Error("failed to write run log", zap.Error(err))
			} else {
				logger.Info("run log written", zap.String("path", path))
			}
		}
	}
	if reg != nil {
		if err := prometheus.WriteToTextfile(s.MetricsFile, reg); err != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("write metrics: %w", err))
		}
	}
	return runErr
}
