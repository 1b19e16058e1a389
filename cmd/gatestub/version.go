package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dshills/gatestub/internal/storage"
)

// versionInfo is what the version command reports
type versionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	BuildMode string `json:"build_mode"`
	Driver    string `json:"sqlite_driver"`
	GoVersion string `json:"go_version"`
}

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   version,
				BuildTime: buildTime,
				BuildMode: storage.BuildMode,
				Driver:    storage.DriverName,
				GoVersion: runtime.Version(),
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintf(out, "gatestub %s\n", info.Version)
			fmt.Fprintf(out, "  Build time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "  Build mode: %s (%s)\n", info.BuildMode, info.Driver)
			fmt.Fprintf(out, "  Go:         %s\n", info.GoVersion)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
