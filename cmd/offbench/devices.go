// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/offbench"
	"github.com/LynnColeArt/offbench/logutil"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List compute platforms and their devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			logger := logutil.InitLogger(level, format)
			defer logger.Sync() //nolint:errcheck

			platforms := offbench.NewCatalog(logger).Platforms()
			if len(platforms) == 0 {
				return offbench.ErrNoPlatformFound
			}
			out := cmd.OutOrStdout()
			for i, p := range platforms {
				fmt.Fprintf(out, "Platform %d\n", i)
				fmt.Fprintf(out, "  Vendor: %s\n", p.Vendor())
				fmt.Fprintf(out, "  Name  : %s\n", p.Name())
				for _, t := range []offbench.DeviceType{offbench.DeviceTypeAccelerator, offbench.DeviceTypeCPU} {
					devs, err := p.Devices(t)
					if err != nil {
						fmt.Fprintf(out, "  %s devices: %v\n", t, err)
						continue
					}
					for j, d := range devs {
						fmt.Fprintf(out, "  [%s %d] %s\n", t, j, d.Name())
					}
				}
			}
			return nil
		},
	}
}
