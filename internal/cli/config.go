package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/bulkops/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create the bulkops configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Max Concurrent Tasks: %d\n", cfg.Tasks.MaxConcurrent)
			fmt.Fprintf(w, "Progress Interval: %s\n", cfg.Tasks.ProgressInterval)
			fmt.Fprintf(w, "Copy Buffer Size: %d\n", cfg.Copy.BufferSize)
			fmt.Fprintf(w, "Bandwidth Limit: %s\n", bandwidthString(cfg.Copy.BandwidthLimit))
			fmt.Fprintf(w, "Preserve Times: %v\n", cfg.Copy.PreserveTimes)
			fmt.Fprintf(w, "Verify Copies: %v\n", cfg.Copy.Verify)
			fmt.Fprintf(w, "Sort Entries: %v\n", cfg.Traversal.Sort)
			fmt.Fprintf(w, "Exclude: %s\n", strings.Join(cfg.Traversal.Exclude, ", "))
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Logging: %v\n", cfg.Logging.Enabled)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if _, err := config.LoadFromFile(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

func bandwidthString(limit int64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(limit)) + "/s"
}
