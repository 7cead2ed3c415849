package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sdejongh/bulkops/pkg/config"
	"github.com/sdejongh/bulkops/pkg/logging"
	"github.com/sdejongh/bulkops/pkg/models"
)

// loadConfig loads --config, or the default file when present
func loadConfig() (*config.Config, error) {
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) error {
	// Concurrent tasks (default: 5)
	if operationFlags.Parallel > 0 {
		cfg.Tasks.MaxConcurrent = operationFlags.Parallel
	} else if cfg.Tasks.MaxConcurrent == 0 {
		cfg.Tasks.MaxConcurrent = 5
	}

	// Bandwidth limit
	if operationFlags.Bandwidth != "" {
		limit, err := parseBandwidth(operationFlags.Bandwidth)
		if err != nil {
			return err
		}
		cfg.Copy.BandwidthLimit = limit
	}

	if operationFlags.NoPreserveTimes {
		cfg.Copy.PreserveTimes = false
	}
	if operationFlags.Verify {
		cfg.Copy.Verify = true
	}

	// Exclude patterns
	if len(operationFlags.Exclude) > 0 {
		cfg.Traversal.Exclude = operationFlags.Exclude
	}
	if operationFlags.Sort {
		cfg.Traversal.Sort = true
	}

	// Output format
	if operationFlags.Output != "" {
		cfg.Output.Format = operationFlags.Output
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Enable progress in verbose mode
	if globalFlags.Verbose {
		cfg.Output.Progress = true
	}

	// Logging
	if globalFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = globalFlags.LogFile
	}
	if cmd != nil && cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if cmd != nil && cmd.Flags().Changed("log-level") {
		cfg.Logging.Enabled = true
		cfg.Logging.Level = globalFlags.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// parseBandwidth parses a byte rate such as "10M" or "1.5GiB"
func parseBandwidth(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, &models.ValidationError{Field: "bandwidth", Message: err.Error()}
	}
	return int64(n), nil
}

// createLogger creates a logger based on configuration
func createLogger(cfg config.LoggingConfig) (logging.Logger, error) {
	if !cfg.Enabled {
		return logging.Noop, nil
	}

	// Parse log format
	var format logging.Format
	switch cfg.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	return logging.NewLogrusLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Level),
		File: logging.RotatingFileConfig{
			Path:       cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
		},
	})
}
