// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the research-assistant version and build details",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("research-assistant %s\n", version)
		if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
			return
		}
		fmt.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" || s.Key == "vcs.time" {
					fmt.Printf("  %-9s %s\n", s.Key+":", s.Value)
				}
			}
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "include Go and VCS build details")
	rootCmd.AddCommand(versionCmd)
}
