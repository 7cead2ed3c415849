package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// currentBuildInfo falls back to the VCS stamp of the Go toolchain when the
// binary was built without ldflags
func currentBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "none":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.BuildDate == "unknown":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var (
		short  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			info := currentBuildInfo()

			switch {
			case short:
				fmt.Fprintln(w, info.Version)
			case output == "json":
				return json.NewEncoder(w).Encode(info)
			case output == "" || output == "human":
				fmt.Fprintf(w, "bulkops %s\n", info.Version)
				fmt.Fprintf(w, "  Commit:     %s\n", info.Commit)
				fmt.Fprintf(w, "  Built:      %s\n", info.BuildDate)
				fmt.Fprintf(w, "  Go version: %s\n", info.GoVersion)
				fmt.Fprintf(w, "  OS/Arch:    %s\n", info.Platform)
			default:
				return fmt.Errorf("unknown output format: %s", output)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version number")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: human, json")

	return cmd
}
